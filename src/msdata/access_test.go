package msdata

import (
	"testing"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/stretchr/testify/assert"
)

var accessNow = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)

func restrictedCourse() models.Course {
	return models.Course{
		ID:               1,
		StudyCourseID:    7,
		MetadataAudience: models.AudienceUsers,
		MaterialAudience: models.AudienceSubscribers,
	}
}

func activeUser(id int) *models.User {
	return &models.User{ID: id, IsActive: true}
}

func sessionWith(courseID, tokenID int) AccessSession {
	return AccessSession{ActivatedTokens: map[int]int{courseID: tokenID}}
}

func TestStaffAlwaysRW(t *testing.T) {
	data := CourseAccessData{Course: restrictedCourse()}

	for _, user := range []*models.User{
		{ID: 1, IsActive: true, IsStaff: true},
		{ID: 2, IsActive: true, IsSuperuser: true},
	} {
		result := ResolveAccess(data, Requester{User: user}, accessNow)
		assert.Equal(t, models.AccessRW, result.Level)
		assert.Nil(t, result.EasyAccess)
	}
}

func TestNoEntitlementsMeansNone(t *testing.T) {
	course := restrictedCourse()
	course.MetadataAudience = models.AudienceSubscribers
	data := CourseAccessData{Course: course}

	result := ResolveAccess(data, Requester{}, accessNow)
	assert.Equal(t, models.AccessNone, result.Level)
	assert.Nil(t, result.EasyAccess)

	result = ResolveAccess(data, Requester{User: activeUser(3)}, accessNow)
	assert.Equal(t, models.AccessNone, result.Level)
}

func TestSubscribersAudienceNeverGrantsMaterial(t *testing.T) {
	// material_audience = subscribers, no subscription: the audience chain
	// can yield metadata at most.
	data := CourseAccessData{Course: restrictedCourse()}

	result := ResolveAccess(data, Requester{User: activeUser(3)}, accessNow)
	assert.Equal(t, models.AccessMetadata, result.Level)

	result = ResolveAccess(data, Requester{}, accessNow)
	assert.Equal(t, models.AccessNone, result.Level)
}

func TestEditorGetsRW(t *testing.T) {
	data := CourseAccessData{Course: restrictedCourse(), IsEditor: true}
	result := ResolveAccess(data, Requester{User: activeUser(3)}, accessNow)
	assert.Equal(t, models.AccessRW, result.Level)
	assert.Nil(t, result.EasyAccess)
}

func TestOwnSubscription(t *testing.T) {
	data := CourseAccessData{
		Course: restrictedCourse(),
		OwnSubscription: &models.CourseStudentSubscription{
			AccessLevel: models.AccessMaterial,
		},
	}
	result := ResolveAccess(data, Requester{User: activeUser(3)}, accessNow)
	assert.Equal(t, models.AccessMaterial, result.Level)
	assert.Nil(t, result.EasyAccess)
}

func TestSuperCourseSubscriptionGrantsItsOwnLevel(t *testing.T) {
	// Subscribed read-only to a super-course aggregating this course.
	data := CourseAccessData{
		Course: restrictedCourse(),
		SuperCourseSubscriptions: []*models.CourseStudentSubscription{
			{CourseID: 99, AccessLevel: models.AccessRO},
		},
	}
	result := ResolveAccess(data, Requester{User: activeUser(3)}, accessNow)
	assert.Equal(t, models.AccessRO, result.Level)
	assert.Nil(t, result.EasyAccess)
}

func TestTokenGrantsItsLevel(t *testing.T) {
	token := &models.EasyAccess{
		ID:             41,
		CourseID:       1,
		AccessLevel:    models.AccessRO,
		ExpirationDate: accessNow.AddDate(0, 1, 0),
	}
	data := CourseAccessData{Course: restrictedCourse(), EasyAccesses: []*models.EasyAccess{token}}

	result := ResolveAccess(data, Requester{Session: sessionWith(1, 41)}, accessNow)
	assert.Equal(t, models.AccessRO, result.Level)
	assert.Equal(t, token, result.EasyAccess)

	// A token activated for a different course grants nothing here.
	result = ResolveAccess(data, Requester{Session: sessionWith(2, 41)}, accessNow)
	assert.Equal(t, models.AccessNone, result.Level)
	assert.Nil(t, result.EasyAccess)
}

func TestExpiredTokenFallsThroughToAudience(t *testing.T) {
	token := &models.EasyAccess{
		ID:             41,
		CourseID:       1,
		AccessLevel:    models.AccessRO,
		ExpirationDate: accessNow.AddDate(0, 0, -1),
	}
	data := CourseAccessData{Course: restrictedCourse(), EasyAccesses: []*models.EasyAccess{token}}

	result := ResolveAccess(data, Requester{User: activeUser(3), Session: sessionWith(1, 41)}, accessNow)
	assert.Equal(t, models.AccessMetadata, result.Level)
	assert.Nil(t, result.EasyAccess)
}

func TestSubscriptionPreferredOverTokenAtEqualLevel(t *testing.T) {
	token := &models.EasyAccess{
		ID:             41,
		CourseID:       1,
		AccessLevel:    models.AccessRO,
		ExpirationDate: accessNow.AddDate(0, 1, 0),
	}
	data := CourseAccessData{
		Course:       restrictedCourse(),
		EasyAccesses: []*models.EasyAccess{token},
		OwnSubscription: &models.CourseStudentSubscription{
			AccessLevel: models.AccessRO,
		},
	}

	result := ResolveAccess(data, Requester{User: activeUser(3), Session: sessionWith(1, 41)}, accessNow)
	assert.Equal(t, models.AccessRO, result.Level)
	assert.Nil(t, result.EasyAccess)
}

func TestTokenKeptWhenItGrantsMore(t *testing.T) {
	token := &models.EasyAccess{
		ID:             41,
		CourseID:       1,
		AccessLevel:    models.AccessRO,
		ExpirationDate: accessNow.AddDate(0, 1, 0),
	}
	data := CourseAccessData{
		Course:       restrictedCourse(),
		EasyAccesses: []*models.EasyAccess{token},
		OwnSubscription: &models.CourseStudentSubscription{
			AccessLevel: models.AccessMaterial,
		},
	}

	result := ResolveAccess(data, Requester{User: activeUser(3), Session: sessionWith(1, 41)}, accessNow)
	assert.Equal(t, models.AccessRO, result.Level)
	assert.Equal(t, token, result.EasyAccess)
}

func TestStudyCourseAudience(t *testing.T) {
	course := restrictedCourse()
	course.MaterialAudience = models.AudienceStudyCourse
	data := CourseAccessData{Course: course, StudyCourseIDs: []int{7}}

	result := ResolveAccess(data, Requester{User: activeUser(3)}, accessNow)
	assert.Equal(t, models.AccessMaterial, result.Level)

	data.StudyCourseIDs = []int{8}
	result = ResolveAccess(data, Requester{User: activeUser(3)}, accessNow)
	assert.Equal(t, models.AccessMetadata, result.Level)
}

// The metadata-audience fallback must evaluate the requester that was
// passed in, not any ambient user. An anonymous requester on a users-only
// metadata audience gets none even when a signed-in user would get
// metadata.
func TestMetadataBranchUsesRequester(t *testing.T) {
	course := restrictedCourse()
	course.MetadataAudience = models.AudienceUsers
	course.MaterialAudience = models.AudienceSubscribers
	data := CourseAccessData{Course: course}

	anonymous := ResolveAccess(data, Requester{}, accessNow)
	assert.Equal(t, models.AccessNone, anonymous.Level)

	signedIn := ResolveAccess(data, Requester{User: activeUser(3)}, accessNow)
	assert.Equal(t, models.AccessMetadata, signedIn.Level)
}

func TestPublicCourse(t *testing.T) {
	course := restrictedCourse()
	course.MetadataAudience = models.AudiencePublic
	course.MaterialAudience = models.AudiencePublic
	data := CourseAccessData{Course: course}

	result := ResolveAccess(data, Requester{}, accessNow)
	assert.Equal(t, models.AccessMaterial, result.Level)
}

func TestStaleCourses(t *testing.T) {
	current := map[int]string{
		1: "aaa",
		2: "bbb",
		3: "",
	}
	seen := models.RevisionMap{"1": "aaa", "2": "old"}

	assert.Equal(t, []int{2}, UnnotifiedCourses(seen, current))
	assert.Equal(t, []int{1, 2}, UndownloadedCourses(models.RevisionMap{}, current))
	assert.Empty(t, UnnotifiedCourses(models.RevisionMap{"1": "aaa", "2": "bbb"}, current))
}
