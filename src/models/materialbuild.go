package models

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
)

// One build of one course revision into one output format. Rows are unique
// per (course, format, revision) and are created lazily on first request;
// a new revision yields a new row, which is how rebuilds happen.
type MaterialBuild struct {
	ID int `db:"id"`

	CourseID int         `db:"course_id"`
	Format   BuildFormat `db:"format"`
	Revision string      `db:"revision"`

	Status       BuildStatus `db:"status"`
	ErrorMessage string      `db:"error_message"`

	DateCreated time.Time  `db:"date_created"`
	DateDone    *time.Time `db:"date_done"`
}

// AbsolutePath is the directory under the media root where the builder
// places this build's output.
func (b *MaterialBuild) AbsolutePath() string {
	return filepath.Join(
		config.Config.Media.Root,
		"material",
		fmt.Sprintf("%d", b.CourseID),
		b.Format.Extension(),
		b.Revision,
	)
}
