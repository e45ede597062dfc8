package msdata

import (
	"context"
	"sort"
	"strconv"

	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
)

func SubscribeStudent(
	ctx context.Context,
	dbConn db.ConnOrTx,
	courseID, userID int,
	level models.AccessLevel,
) (*models.CourseStudentSubscription, error) {
	// The digest cadence is copied from the user's default at subscribe
	// time; afterwards it lives on the subscription and can be changed per
	// course.
	return db.QueryOne[models.CourseStudentSubscription](ctx, dbConn,
		`
		INSERT INTO course_student_subscription
			(course_id, user_id, access_level, active, notification_frequency, needs_notification, notified_revisions, downloaded_revisions, date_created)
		VALUES (
			$1, $2, $3, TRUE,
			(SELECT student_notification_frequency FROM ms_user WHERE id = $2),
			FALSE, '{}', '{}', NOW()
		)
		ON CONFLICT (course_id, user_id) DO UPDATE SET access_level = EXCLUDED.access_level
		RETURNING $columns
		`,
		courseID, userID, level,
	)
}

func SubscribeEditor(
	ctx context.Context,
	dbConn db.ConnOrTx,
	courseID, userID int,
) (*models.CourseEditorSubscription, error) {
	return db.QueryOne[models.CourseEditorSubscription](ctx, dbConn,
		`
		INSERT INTO course_editor_subscription
			(course_id, user_id, needs_notification, notified_revisions, date_created)
		VALUES ($1, $2, FALSE, '{}', NOW())
		ON CONFLICT (course_id, user_id) DO UPDATE SET course_id = EXCLUDED.course_id
		RETURNING $columns
		`,
		courseID, userID,
	)
}

func Unsubscribe(ctx context.Context, dbConn db.ConnOrTx, table string, courseID, userID int) error {
	switch table {
	case "course_student_subscription", "course_editor_subscription":
	default:
		return oops.New(nil, "unknown subscription table %s", table)
	}
	_, err := dbConn.Exec(ctx,
		`DELETE FROM `+table+` WHERE course_id = $1 AND user_id = $2`,
		courseID, userID,
	)
	if err != nil {
		return oops.New(err, "failed to delete subscription")
	}
	return nil
}

/*
CoveredCourseIDs lists the course a subscription is attached to plus every
sub-course that course aggregates. Each covered course is tracked
independently in the subscription's revision maps.
*/
func CoveredCourseIDs(ctx context.Context, dbConn db.ConnOrTx, courseID int) ([]int, error) {
	ids, err := db.QueryScalar[int](ctx, dbConn,
		`
		SELECT sub_course_id FROM sub_course_relation WHERE super_course_id = $1
		ORDER BY sub_course_id
		`,
		courseID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch covered courses")
	}
	return append([]int{courseID}, ids...), nil
}

// RevisionKey is how a course id appears as a key in a RevisionMap.
func RevisionKey(courseID int) string {
	return strconv.Itoa(courseID)
}

/*
UnnotifiedCourses returns the covered course ids whose current revision
differs from what the subscription was last notified about. A pure function
of the two maps; callers re-invoke it whenever either input may have
changed instead of caching the result.
*/
func UnnotifiedCourses(notified models.RevisionMap, current map[int]string) []int {
	return staleCourses(notified, current)
}

// UndownloadedCourses is the analogous computation against the
// last-downloaded markers of a student subscription.
func UndownloadedCourses(downloaded models.RevisionMap, current map[int]string) []int {
	return staleCourses(downloaded, current)
}

func staleCourses(seen models.RevisionMap, current map[int]string) []int {
	var result []int
	for courseID, revision := range current {
		if revision == "" {
			continue
		}
		if seen[RevisionKey(courseID)] != revision {
			result = append(result, courseID)
		}
	}
	sort.Ints(result)
	return result
}
