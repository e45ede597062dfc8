package msdata

import (
	"context"

	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msgit"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	"github.com/go-git/go-git/v5/plumbing/object"
)

/*
MarkMaterialUpdated records a new material revision on the course and flags
every student subscription of the course, or of any super-course
aggregating it, as needing notification. The null-revision sentinel is
normalized to the empty string (reference deleted).
*/
func MarkMaterialUpdated(ctx context.Context, dbConn db.ConnOrTx, courseID int, newRevision string) error {
	newRevision = msgit.NormalizeRevision(newRevision)

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	course, err := db.QueryOne[models.Course](ctx, tx,
		`SELECT $columns FROM course WHERE id = $1 FOR UPDATE`,
		courseID,
	)
	if err != nil {
		return oops.New(err, "failed to fetch course %d", courseID)
	}
	err = course.EnsureNotStatic()
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`
		UPDATE course
		SET material_revision = $2, material_last_updated = NOW()
		WHERE id = $1
		`,
		courseID, newRevision,
	)
	if err != nil {
		return oops.New(err, "failed to update material revision")
	}

	_, err = tx.Exec(ctx,
		`
		UPDATE course_student_subscription
		SET needs_notification = TRUE
		WHERE
			course_id = $1
			OR course_id IN (
				SELECT super_course_id FROM sub_course_relation WHERE sub_course_id = $1
			)
		`,
		courseID,
	)
	if err != nil {
		return oops.New(err, "failed to flag student subscriptions")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit material revision update")
	}
	return nil
}

/*
MarkSourcesUpdated records a new sources revision and flags editor
subscriptions of this exact course. Sources are not inherited through
sub-course aggregation, so super-courses are not touched.
*/
func MarkSourcesUpdated(ctx context.Context, dbConn db.ConnOrTx, courseID int, newRevision string) error {
	newRevision = msgit.NormalizeRevision(newRevision)

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	course, err := db.QueryOne[models.Course](ctx, tx,
		`SELECT $columns FROM course WHERE id = $1 FOR UPDATE`,
		courseID,
	)
	if err != nil {
		return oops.New(err, "failed to fetch course %d", courseID)
	}
	err = course.EnsureNotStatic()
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`
		UPDATE course
		SET sources_revision = $2, sources_last_updated = NOW()
		WHERE id = $1
		`,
		courseID, newRevision,
	)
	if err != nil {
		return oops.New(err, "failed to update sources revision")
	}

	_, err = tx.Exec(ctx,
		`
		UPDATE course_editor_subscription
		SET needs_notification = TRUE
		WHERE course_id = $1
		`,
		courseID,
	)
	if err != nil {
		return oops.New(err, "failed to flag editor subscriptions")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit sources revision update")
	}
	return nil
}

/*
ApplyReferenceUpdate processes a push (or a system-made commit) to a
course's tracked reference: it diffs the old and new commits and updates
whichever of the edit/ and src/ revision pointers saw changes. Called with
the old and new revision of the reference, as a post-receive hook would
report them.
*/
func ApplyReferenceUpdate(
	ctx context.Context,
	dbConn db.ConnOrTx,
	course *models.Course,
	repo *msgit.Repository,
	oldRevision, newRevision string,
	editSubdir, srcSubdir string,
) error {
	oldRevision = msgit.NormalizeRevision(oldRevision)
	newRevision = msgit.NormalizeRevision(newRevision)

	if newRevision == "" {
		// Reference deleted; both pointers go empty.
		err := MarkMaterialUpdated(ctx, dbConn, course.ID, "")
		if err != nil {
			return err
		}
		return MarkSourcesUpdated(ctx, dbConn, course.ID, "")
	}

	newCommit, err := repo.ResolveCommittish(newRevision)
	if err != nil {
		return oops.New(err, "failed to resolve pushed revision %s", newRevision)
	}

	var oldCommit *object.Commit
	if oldRevision != "" {
		oldCommit, err = repo.ResolveCommittish(oldRevision)
		if err != nil {
			return oops.New(err, "failed to resolve previous revision %s", oldRevision)
		}
	}

	changed, err := repo.PathsChanged(oldCommit, newCommit, editSubdir, srcSubdir)
	if err != nil {
		return err
	}

	if changed[0] {
		err = MarkMaterialUpdated(ctx, dbConn, course.ID, newRevision)
		if err != nil {
			return err
		}
	}
	if changed[1] {
		err = MarkSourcesUpdated(ctx, dbConn, course.ID, newRevision)
		if err != nil {
			return err
		}
	}
	return nil
}
