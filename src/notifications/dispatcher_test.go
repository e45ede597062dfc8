package notifications

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msdata"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msgit"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCourseAndStuff(id int) msdata.CourseAndStuff {
	return msdata.CourseAndStuff{
		Course:      models.Course{ID: id, Slug: "analysis-1", Name: "Analysis 1"},
		StudyCourse: models.StudyCourse{Slug: "inf"},
		Term:        models.Term{Slug: "ws25"},
		CourseType:  models.CourseType{Slug: "vl"},
	}
}

func TestCourseDigestBoundedAndNewestFirst(t *testing.T) {
	previous := config.Config.Git.Root
	config.Config.Git.Root = t.TempDir()
	t.Cleanup(func() { config.Config.Git.Root = previous })

	cs := testCourseAndStuff(5)
	repo, err := msgit.InitBareRepository(cs.Course.RepositoryPath())
	require.Nil(t, err)

	browser, err := msgit.Open(repo, "")
	require.Nil(t, err)
	var head string
	for i := 1; i <= 15; i++ {
		require.Nil(t, browser.PutBytes("edit/ch.md", []byte(fmt.Sprintf("version %d", i)), filemode.Regular))
		head, err = browser.Commit(msgit.AdminSignature(), fmt.Sprintf("change %d", i), config.Config.Git.MainRef)
		require.Nil(t, err)
	}

	digest, err := courseDigest(cs, "", head, config.Config.Git.EditSubdir)
	require.Nil(t, err)

	assert.Len(t, digest.Commits, digestCommitLimit)
	assert.Equal(t, "change 15", digest.Commits[0].Summary)
	assert.Equal(t, "change 6", digest.Commits[len(digest.Commits)-1].Summary)
	assert.Contains(t, digest.CourseUrl, "/inf/ws25/vl/analysis-1/")
}

func TestCourseDigestStopsAtNotifiedRevision(t *testing.T) {
	previous := config.Config.Git.Root
	config.Config.Git.Root = t.TempDir()
	t.Cleanup(func() { config.Config.Git.Root = previous })

	cs := testCourseAndStuff(6)
	repo, err := msgit.InitBareRepository(cs.Course.RepositoryPath())
	require.Nil(t, err)

	browser, err := msgit.Open(repo, "")
	require.Nil(t, err)
	var revisions []string
	for i := 1; i <= 4; i++ {
		require.Nil(t, browser.PutBytes("edit/ch.md", []byte(fmt.Sprintf("version %d", i)), filemode.Regular))
		rev, err := browser.Commit(msgit.AdminSignature(), fmt.Sprintf("change %d", i), config.Config.Git.MainRef)
		require.Nil(t, err)
		revisions = append(revisions, rev)
	}

	digest, err := courseDigest(cs, revisions[1], revisions[3], config.Config.Git.EditSubdir)
	require.Nil(t, err)
	require.Len(t, digest.Commits, 2)
	assert.Equal(t, "change 4", digest.Commits[0].Summary)
	assert.Equal(t, "change 3", digest.Commits[1].Summary)
}

// A material digest only reports commits that touched the material subtree,
// and the commit bound counts only those. Pure source edits stay out of
// student mail, and vice versa.
func TestCourseDigestFiltersBySubtree(t *testing.T) {
	previous := config.Config.Git.Root
	config.Config.Git.Root = t.TempDir()
	t.Cleanup(func() { config.Config.Git.Root = previous })

	cs := testCourseAndStuff(8)
	repo, err := msgit.InitBareRepository(cs.Course.RepositoryPath())
	require.Nil(t, err)

	browser, err := msgit.Open(repo, "")
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("src/ch.tex", []byte("source v1"), filemode.Regular))
	_, err = browser.Commit(msgit.AdminSignature(), "source only 1", config.Config.Git.MainRef)
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("edit/ch.md", []byte("material v1"), filemode.Regular))
	_, err = browser.Commit(msgit.AdminSignature(), "material change", config.Config.Git.MainRef)
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("src/ch.tex", []byte("source v2"), filemode.Regular))
	head, err := browser.Commit(msgit.AdminSignature(), "source only 2", config.Config.Git.MainRef)
	require.Nil(t, err)

	material, err := courseDigest(cs, "", head, config.Config.Git.EditSubdir)
	require.Nil(t, err)
	require.Len(t, material.Commits, 1)
	assert.Equal(t, "material change", material.Commits[0].Summary)

	sources, err := courseDigest(cs, "", head, config.Config.Git.SrcSubdir)
	require.Nil(t, err)
	require.Len(t, sources.Commits, 2)
	assert.Equal(t, "source only 2", sources.Commits[0].Summary)
	assert.Equal(t, "source only 1", sources.Commits[1].Summary)
}

func TestCourseDigestStaticOrEmpty(t *testing.T) {
	cs := testCourseAndStuff(7)
	cs.Course.IsStatic = true

	digest, err := courseDigest(cs, "", "whatever", config.Config.Git.EditSubdir)
	require.Nil(t, err)
	assert.Empty(t, digest.Commits)

	cs.Course.IsStatic = false
	digest, err = courseDigest(cs, "", "", config.Config.Git.EditSubdir)
	require.Nil(t, err)
	assert.Empty(t, digest.Commits)
}

// Records Exec calls and refuses everything else. Good enough to observe
// whether subscription flags get touched.
type execRecorder struct {
	execs []string
}

func (r *execRecorder) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.execs = append(r.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (r *execRecorder) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("unexpected Query")
}

func (r *execRecorder) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("unexpected QueryRow")
}

func (r *execRecorder) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("unexpected CopyFrom")
}

func (r *execRecorder) Begin(ctx context.Context) (pgx.Tx, error) {
	panic("unexpected Begin")
}

func TestCommitDigestsRetainsFlagsOnSendFailure(t *testing.T) {
	rec := &execRecorder{}
	advances := []subscriptionAdvance{
		{subID: 1, revisions: models.RevisionMap{"1": "aaa"}},
		{subID: 2, revisions: models.RevisionMap{"2": "bbb"}},
	}

	sendErr := errors.New("smtp down")
	err := commitDigests(context.Background(), rec, "course_student_subscription", advances, func() error {
		return sendErr
	})
	require.ErrorIs(t, err, sendErr)
	assert.Empty(t, rec.execs)
}

func TestCommitDigestsAdvancesAfterSend(t *testing.T) {
	rec := &execRecorder{}
	advances := []subscriptionAdvance{
		{subID: 1, revisions: models.RevisionMap{"1": "aaa"}},
		{subID: 2, revisions: models.RevisionMap{"2": "bbb"}},
	}

	sent := false
	err := commitDigests(context.Background(), rec, "course_editor_subscription", advances, func() error {
		sent = true
		return nil
	})
	require.Nil(t, err)
	assert.True(t, sent)
	require.Len(t, rec.execs, 2)
	assert.Contains(t, rec.execs[0], "course_editor_subscription")
}

func TestCommitDigestsNoMailStillAdvances(t *testing.T) {
	rec := &execRecorder{}
	advances := []subscriptionAdvance{{subID: 3, revisions: models.RevisionMap{}}}

	err := commitDigests(context.Background(), rec, "course_student_subscription", advances, nil)
	require.Nil(t, err)
	assert.Len(t, rec.execs, 1)
}

func TestCloneRevisionMap(t *testing.T) {
	original := models.RevisionMap{"1": "aaa"}
	clone := cloneRevisionMap(original)
	clone["1"] = "bbb"
	assert.Equal(t, "aaa", original["1"])
}
