package models

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
)

type Course struct {
	ID int `db:"id"`

	// Composite natural key.
	StudyCourseID int    `db:"study_course_id"`
	TermID        int    `db:"term_id"`
	CourseTypeID  int    `db:"course_type_id"`
	Slug          string `db:"slug"`

	Name     string `db:"name"`
	Language string `db:"language"`

	// Bibliographic metadata of the source document.
	Doi          string `db:"doi"`
	Isbn         string `db:"isbn"`
	Publisher    string `db:"publisher"`
	SourceFormat string `db:"source_format"`

	// Static courses are frozen archives and have no git repository.
	IsStatic      bool          `db:"is_static"`
	EditingStatus EditingStatus `db:"editing_status"`

	MetadataAudience Audience `db:"metadata_audience"`
	MaterialAudience Audience `db:"material_audience"`

	// The latest tracked revisions of the edit/ and src/ subtrees.
	// Empty string means "no revision tracked yet" (or ref deleted).
	MaterialRevision    string     `db:"material_revision"`
	MaterialLastUpdated *time.Time `db:"material_last_updated"`
	SourcesRevision     string     `db:"sources_revision"`
	SourcesLastUpdated  *time.Time `db:"sources_last_updated"`

	// Settings forwarded into the generated matuc config.
	MagsbsAppendixPrefix   bool   `db:"magsbs_appendix_prefix"`
	MagsbsPageNumberingGap int    `db:"magsbs_page_numbering_gap"`
	MagsbsSourceAuthor     string `db:"magsbs_source_author"`
	MagsbsGenerateToc      bool   `db:"magsbs_generate_toc"`
	MagsbsTocDepth         int    `db:"magsbs_toc_depth"`

	DateCreated time.Time `db:"date_created"`
}

// RepositoryPath returns the on-disk location of the course's bare
// repository under the configured git root.
func (c *Course) RepositoryPath() string {
	return filepath.Join(config.Config.Git.Root, fmt.Sprintf("%d.git", c.ID))
}

// DownloadName is the base filename used for built material artifacts.
func (c *Course) DownloadName() string {
	return fmt.Sprintf("%s-%d", c.Slug, c.ID)
}

// EnsureNotStatic returns an error when the course is static and must not
// have repository content written to it.
func (c *Course) EnsureNotStatic() error {
	if c.IsStatic {
		return oops.New(nil, "course %d (%s) is static and has no repository", c.ID, c.Slug)
	}
	return nil
}

// Super/sub-course aggregation. A sub-course may not itself aggregate
// further courses; that is enforced when the relation is created.
type SubCourseRelation struct {
	ID            int `db:"id"`
	SuperCourseID int `db:"super_course_id"`
	SubCourseID   int `db:"sub_course_id"`
}
