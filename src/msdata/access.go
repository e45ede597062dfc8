package msdata

import (
	"context"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
)

/*
AccessSession carries the easy access tokens a requester has activated, as a
mapping from course id to easy access id. It is an explicit value passed
into the resolver; there is no implicit per-request global.
*/
type AccessSession struct {
	ActivatedTokens map[int]int
}

func (s AccessSession) ActivatedTokenID(courseID int) (int, bool) {
	id, ok := s.ActivatedTokens[courseID]
	return id, ok
}

// Activate records a token activation for its course, replacing any token
// previously activated for the same course.
func (s *AccessSession) Activate(ea *models.EasyAccess) {
	if s.ActivatedTokens == nil {
		s.ActivatedTokens = make(map[int]int)
	}
	s.ActivatedTokens[ea.CourseID] = ea.ID
}

// A requester is whoever is asking for access: a signed-in user, an
// anonymous visitor, or either of those carrying activated tokens.
type Requester struct {
	User    *models.User
	Session AccessSession
}

// Everything the resolver needs to know about one (course, requester) pair,
// fetched up front so resolution itself is a pure function.
type CourseAccessData struct {
	Course models.Course

	// Valid (unexpired) tokens for this course that the session references.
	EasyAccesses []*models.EasyAccess

	IsEditor                 bool
	OwnSubscription          *models.CourseStudentSubscription
	SuperCourseSubscriptions []*models.CourseStudentSubscription

	// Study programs the requester belongs to.
	StudyCourseIDs []int
}

type AccessResult struct {
	Level models.AccessLevel

	// Set when a token produced the level; nil when an account-based
	// entitlement did. At equal levels the account entitlement wins, so the
	// audit trail never conflates the two.
	EasyAccess *models.EasyAccess
}

/*
ResolveAccess computes the access level for a course and requester. Highest
precedence first: staff, activated token, editorship, subscriptions (own and
via super-courses), then the course's audience settings capped at material
and metadata respectively.
*/
func ResolveAccess(data CourseAccessData, requester Requester, now time.Time) AccessResult {
	if requester.User != nil && (requester.User.IsStaff || requester.User.IsSuperuser) {
		return AccessResult{Level: models.AccessRW}
	}

	level := models.AccessNone
	var token *models.EasyAccess

	if tokenID, ok := requester.Session.ActivatedTokenID(data.Course.ID); ok {
		for _, ea := range data.EasyAccesses {
			if ea.ID == tokenID && ea.CourseID == data.Course.ID && ea.ValidOn(now) {
				level = ea.AccessLevel
				token = ea
				break
			}
		}
	}

	if level < models.AccessRW && data.IsEditor {
		level = models.AccessRW
		token = nil
	}

	if level < models.AccessRW {
		subscriptionLevel := models.AccessNone
		if data.OwnSubscription != nil {
			subscriptionLevel = subscriptionLevel.Or(data.OwnSubscription.AccessLevel)
		}
		for _, sub := range data.SuperCourseSubscriptions {
			// Aggregation grants the super-course subscription's own level.
			subscriptionLevel = subscriptionLevel.Or(sub.AccessLevel)
		}

		// Tokens only grant access otherwise unavailable: at equal levels
		// the subscription wins and the token is dropped from the result.
		if subscriptionLevel >= level && subscriptionLevel > models.AccessNone {
			level = subscriptionLevel
			token = nil
		}
	}

	if level < models.AccessMaterial {
		if audienceSatisfied(data.Course.MaterialAudience, requester, data) {
			level = models.AccessMaterial
			token = nil
		}
	}
	if level < models.AccessMetadata {
		if audienceSatisfied(data.Course.MetadataAudience, requester, data) {
			level = models.AccessMetadata
			token = nil
		}
	}

	return AccessResult{Level: level, EasyAccess: token}
}

func audienceSatisfied(audience models.Audience, requester Requester, data CourseAccessData) bool {
	switch audience {
	case models.AudiencePublic:
		return true
	case models.AudienceUsers:
		return requester.User != nil && requester.User.IsActive
	case models.AudienceStudyCourse:
		if requester.User == nil || !requester.User.IsActive {
			return false
		}
		for _, id := range data.StudyCourseIDs {
			if id == data.Course.StudyCourseID {
				return true
			}
		}
		return false
	case models.AudienceSubscribers:
		// Only reachable through subscriptions, never through the audience
		// fallback.
		return false
	}
	return false
}

// FetchCourseAccessData loads the resolver's input bundle for one course
// and requester.
func FetchCourseAccessData(
	ctx context.Context,
	dbConn db.ConnOrTx,
	courseID int,
	requester Requester,
) (CourseAccessData, error) {
	course, err := db.QueryOne[models.Course](ctx, dbConn,
		`SELECT $columns FROM course WHERE id = $1`,
		courseID,
	)
	if err != nil {
		return CourseAccessData{}, err
	}

	data := CourseAccessData{Course: *course}

	if tokenID, ok := requester.Session.ActivatedTokenID(courseID); ok {
		ea, err := db.QueryOne[models.EasyAccess](ctx, dbConn,
			`SELECT $columns FROM easy_access WHERE id = $1 AND course_id = $2`,
			tokenID, courseID,
		)
		if err != nil && err != db.NotFound {
			return CourseAccessData{}, oops.New(err, "failed to fetch easy access token")
		}
		if err == nil {
			data.EasyAccesses = append(data.EasyAccesses, ea)
		}
	}

	if requester.User == nil {
		return data, nil
	}
	userID := requester.User.ID

	data.IsEditor, err = db.QueryOneScalar[bool](ctx, dbConn,
		`
		SELECT EXISTS (
			SELECT 1 FROM course_editor_subscription
			WHERE course_id = $1 AND user_id = $2
		)
		`,
		courseID, userID,
	)
	if err != nil {
		return CourseAccessData{}, oops.New(err, "failed to check editorship")
	}

	ownSub, err := db.QueryOne[models.CourseStudentSubscription](ctx, dbConn,
		`SELECT $columns FROM course_student_subscription WHERE course_id = $1 AND user_id = $2`,
		courseID, userID,
	)
	if err != nil && err != db.NotFound {
		return CourseAccessData{}, oops.New(err, "failed to fetch student subscription")
	}
	if err == nil {
		data.OwnSubscription = ownSub
	}

	data.SuperCourseSubscriptions, err = db.Query[models.CourseStudentSubscription](ctx, dbConn,
		`
		SELECT $columns{sub}
		FROM
			sub_course_relation AS rel
			JOIN course_student_subscription AS sub ON sub.course_id = rel.super_course_id
		WHERE
			rel.sub_course_id = $1
			AND sub.user_id = $2
		`,
		courseID, userID,
	)
	if err != nil {
		return CourseAccessData{}, oops.New(err, "failed to fetch super-course subscriptions")
	}

	data.StudyCourseIDs, err = db.QueryScalar[int](ctx, dbConn,
		`SELECT study_course_id FROM ms_user_study_course WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return CourseAccessData{}, oops.New(err, "failed to fetch study course memberships")
	}

	return data, nil
}
