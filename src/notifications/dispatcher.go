package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/email"
	"github.com/TUD-INF-IAI-MCI/matshare/src/jobs"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msdata"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msgit"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msurl"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	"github.com/TUD-INF-IAI-MCI/matshare/src/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Digests include at most this many commits per course; older changes are
// summarized away by the bound.
const digestCommitLimit = 10

/*
PeriodicallyDispatch runs the notification dispatcher until cancelled. Each
cadence tier fires on its own schedule; within a tick, editor digests and
student digests are processed independently.
*/
func PeriodicallyDispatch(conn *pgxpool.Pool, sender email.Sender) *jobs.Job {
	job := jobs.New("notification dispatcher")

	go func() {
		defer job.Finish()

		nextRuns := make(map[models.NotificationFrequency]time.Time)
		for _, freq := range AllFrequencies {
			nextRuns[freq] = NextRun(freq, time.Now())
		}

		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				now := time.Now()
				for _, freq := range AllFrequencies {
					if now.Before(nextRuns[freq]) {
						continue
					}
					nextRuns[freq] = NextRun(freq, now)
					dispatchTier(job.Ctx, conn, sender, freq, &job.Logger)
				}
			case <-job.Ctx.Done():
				return
			}
		}
	}()
	return job
}

func dispatchTier(
	ctx context.Context,
	conn *pgxpool.Pool,
	sender email.Sender,
	freq models.NotificationFrequency,
	logger *zerolog.Logger,
) {
	err := func() (err error) {
		defer utils.RecoverPanicAsError(&err)
		return DispatchEditorDigests(ctx, conn, sender, freq)
	}()
	if err != nil {
		logger.Error().Err(err).Stringer("frequency", freq).Msg("failed to dispatch editor digests")
	}

	err = func() (err error) {
		defer utils.RecoverPanicAsError(&err)
		return DispatchStudentDigests(ctx, conn, sender, freq)
	}()
	if err != nil {
		logger.Error().Err(err).Stringer("frequency", freq).Msg("failed to dispatch student digests")
	}
}

// A pending flag/marker update for one subscription row, applied only after
// the digest mail went out.
type subscriptionAdvance struct {
	subID     int
	revisions models.RevisionMap
}

/*
commitDigests delivers one user's digest and, only when sending succeeded,
clears the dirty flags and advances the notified markers. A send failure
leaves every flag set and every marker unadvanced, so the next tick
retries. That can repeat content across two consecutive digests, which is
preferred over dropping it.
*/
func commitDigests(
	ctx context.Context,
	dbConn db.ConnOrTx,
	table string,
	advances []subscriptionAdvance,
	send func() error,
) error {
	if send != nil {
		err := send()
		if err != nil {
			// Dirty flags stay set; retried next tick.
			return err
		}
	}

	for _, adv := range advances {
		_, err := dbConn.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET needs_notification = FALSE, notified_revisions = $2 WHERE id = $1`, table),
			adv.subID, adv.revisions,
		)
		if err != nil {
			return oops.New(err, "failed to advance subscription %d", adv.subID)
		}
	}
	return nil
}

type editorDigestRow struct {
	Subscription models.CourseEditorSubscription `db:"sub"`
	User         models.User                     `db:"ms_user"`
}

/*
DispatchEditorDigests emails every editor on the given cadence whose
subscriptions are flagged dirty. Editor digests cover sources of the exact
subscribed course; sub-course aggregation does not apply to sources.

Each user's dirty subscriptions are re-read under a row lock in their own
transaction, so a push that flags a subscription while its digest is being
assembled is not clobbered by the flag reset.
*/
func DispatchEditorDigests(
	ctx context.Context,
	conn *pgxpool.Pool,
	sender email.Sender,
	freq models.NotificationFrequency,
) error {
	userIDs, err := db.QueryScalar[int](ctx, conn,
		`
		SELECT DISTINCT sub.user_id
		FROM
			course_editor_subscription AS sub
			JOIN ms_user ON ms_user.id = sub.user_id
		WHERE
			sub.needs_notification
			AND ms_user.is_active
			AND ms_user.editor_notification_frequency = $1
		`,
		freq,
	)
	if err != nil {
		return oops.New(err, "failed to fetch editors with dirty subscriptions")
	}

	for _, userID := range userIDs {
		err := dispatchEditorUser(ctx, conn, sender, freq, userID)
		if err != nil {
			return err
		}
	}
	return nil
}

func dispatchEditorUser(
	ctx context.Context,
	conn *pgxpool.Pool,
	sender email.Sender,
	freq models.NotificationFrequency,
	userID int,
) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	rows, err := db.Query[editorDigestRow](ctx, tx,
		`
		SELECT $columns
		FROM
			course_editor_subscription AS sub
			JOIN ms_user ON ms_user.id = sub.user_id
		WHERE
			sub.user_id = $1
			AND sub.needs_notification
			AND ms_user.is_active
			AND ms_user.editor_notification_frequency = $2
		FOR UPDATE OF sub
		`,
		userID, freq,
	)
	if err != nil {
		return oops.New(err, "failed to claim dirty editor subscriptions")
	}
	if len(rows) == 0 {
		return nil
	}

	var digestCourses []email.DigestCourse
	var advances []subscriptionAdvance
	for _, row := range rows {
		cs, err := msdata.FetchCourse(ctx, tx, row.Subscription.CourseID)
		if err != nil {
			return err
		}

		current := map[int]string{cs.Course.ID: cs.Course.SourcesRevision}
		stale := msdata.UnnotifiedCourses(row.Subscription.NotifiedRevisions, current)

		newRevisions := cloneRevisionMap(row.Subscription.NotifiedRevisions)
		for _, courseID := range stale {
			digest, err := courseDigest(cs, row.Subscription.NotifiedRevisions[msdata.RevisionKey(courseID)], cs.Course.SourcesRevision, config.Config.Git.SrcSubdir)
			if err != nil {
				return err
			}
			if len(digest.Commits) > 0 {
				digestCourses = append(digestCourses, digest)
			}
			newRevisions[msdata.RevisionKey(courseID)] = cs.Course.SourcesRevision
		}
		advances = append(advances, subscriptionAdvance{subID: row.Subscription.ID, revisions: newRevisions})
	}

	var send func() error
	if len(digestCourses) > 0 {
		user := rows[0].User
		send = func() error {
			return email.SendSourcesDigest(sender, &user, digestCourses)
		}
	}
	err = commitDigests(ctx, tx, "course_editor_subscription", advances, send)
	if err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit editor digest for user %d", userID)
	}
	return nil
}

type studentDigestRow struct {
	Subscription models.CourseStudentSubscription `db:"sub"`
	User         models.User                      `db:"ms_user"`
}

// DispatchStudentDigests is the student-side counterpart: material changes,
// with sub-courses of the subscribed course tracked independently. The
// cadence lives on the subscription itself, seeded from the user's default
// at subscribe time, and inactive subscriptions never produce mail.
func DispatchStudentDigests(
	ctx context.Context,
	conn *pgxpool.Pool,
	sender email.Sender,
	freq models.NotificationFrequency,
) error {
	userIDs, err := db.QueryScalar[int](ctx, conn,
		`
		SELECT DISTINCT sub.user_id
		FROM
			course_student_subscription AS sub
			JOIN ms_user ON ms_user.id = sub.user_id
		WHERE
			sub.needs_notification
			AND sub.active
			AND ms_user.is_active
			AND sub.notification_frequency = $1
		`,
		freq,
	)
	if err != nil {
		return oops.New(err, "failed to fetch students with dirty subscriptions")
	}

	for _, userID := range userIDs {
		err := dispatchStudentUser(ctx, conn, sender, freq, userID)
		if err != nil {
			return err
		}
	}
	return nil
}

func dispatchStudentUser(
	ctx context.Context,
	conn *pgxpool.Pool,
	sender email.Sender,
	freq models.NotificationFrequency,
	userID int,
) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	rows, err := db.Query[studentDigestRow](ctx, tx,
		`
		SELECT $columns
		FROM
			course_student_subscription AS sub
			JOIN ms_user ON ms_user.id = sub.user_id
		WHERE
			sub.user_id = $1
			AND sub.needs_notification
			AND sub.active
			AND ms_user.is_active
			AND sub.notification_frequency = $2
		FOR UPDATE OF sub
		`,
		userID, freq,
	)
	if err != nil {
		return oops.New(err, "failed to claim dirty student subscriptions")
	}
	if len(rows) == 0 {
		return nil
	}

	var digestCourses []email.DigestCourse
	var advances []subscriptionAdvance
	for _, row := range rows {
		coveredIDs, err := msdata.CoveredCourseIDs(ctx, tx, row.Subscription.CourseID)
		if err != nil {
			return err
		}

		covered := make(map[int]msdata.CourseAndStuff, len(coveredIDs))
		current := make(map[int]string, len(coveredIDs))
		for _, courseID := range coveredIDs {
			cs, err := msdata.FetchCourse(ctx, tx, courseID)
			if err != nil {
				return err
			}
			covered[courseID] = cs
			current[courseID] = cs.Course.MaterialRevision
		}

		stale := msdata.UnnotifiedCourses(row.Subscription.NotifiedRevisions, current)

		newRevisions := cloneRevisionMap(row.Subscription.NotifiedRevisions)
		for _, courseID := range stale {
			cs := covered[courseID]
			digest, err := courseDigest(cs, row.Subscription.NotifiedRevisions[msdata.RevisionKey(courseID)], cs.Course.MaterialRevision, config.Config.Git.EditSubdir)
			if err != nil {
				return err
			}
			if len(digest.Commits) > 0 {
				digestCourses = append(digestCourses, digest)
			}
			newRevisions[msdata.RevisionKey(courseID)] = cs.Course.MaterialRevision
		}
		advances = append(advances, subscriptionAdvance{subID: row.Subscription.ID, revisions: newRevisions})
	}

	var send func() error
	if len(digestCourses) > 0 {
		user := rows[0].User
		send = func() error {
			return email.SendMaterialDigest(sender, &user, digestCourses)
		}
	}
	err = commitDigests(ctx, tx, "course_student_subscription", advances, send)
	if err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit student digest for user %d", userID)
	}
	return nil
}

/*
courseDigest walks the course repository from the last-notified revision to
the current one, newest first, keeping only commits that touched the given
subtree, bounded to digestCommitLimit commits. Static courses and courses
without a revision yet produce an empty digest.
*/
func courseDigest(cs msdata.CourseAndStuff, fromRevision, toRevision string, subdir string) (email.DigestCourse, error) {
	digest := email.DigestCourse{
		CourseName: cs.Course.Name,
		CourseUrl:  msurl.BuildCourseUrl(cs.StudyCourse.Slug, cs.Term.Slug, cs.CourseType.Slug, cs.Course.Slug),
	}
	if cs.Course.IsStatic || toRevision == "" {
		return digest, nil
	}

	repo, err := msgit.OpenRepository(cs.Course.RepositoryPath())
	if err != nil {
		return digest, oops.New(err, "failed to open repository for course %d", cs.Course.ID)
	}
	head, err := repo.ResolveCommittish(toRevision)
	if err != nil {
		return digest, oops.New(err, "failed to resolve revision %s", toRevision)
	}

	digest.Commits, err = repo.WalkChanged(fromRevision, head, subdir, digestCommitLimit)
	if err != nil {
		return digest, err
	}
	return digest, nil
}

func cloneRevisionMap(m models.RevisionMap) models.RevisionMap {
	clone := make(models.RevisionMap, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
