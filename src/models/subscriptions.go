package models

import "time"

// Maps course id (as a decimal string, since JSON object keys are strings)
// to a git revision. Stored in jsonb columns. A subscription may span a
// super-course and its sub-courses, so each aggregated course is tracked
// under its own key.
type RevisionMap map[string]string

type CourseEditorSubscription struct {
	ID int `db:"id"`

	CourseID int `db:"course_id"`
	UserID   int `db:"user_id"`

	NeedsNotification bool        `db:"needs_notification"`
	NotifiedRevisions RevisionMap `db:"notified_revisions"`

	DateCreated time.Time `db:"date_created"`
}

type CourseStudentSubscription struct {
	ID int `db:"id"`

	CourseID int `db:"course_id"`
	UserID   int `db:"user_id"`

	// Student subscriptions can carry a per-subscription override of the
	// level the course's audience settings would give.
	AccessLevel AccessLevel `db:"access_level"`

	// Digest cadence per subscription, seeded from the user's default when
	// the subscription is created. An inactive subscription keeps its
	// access level but never produces notification mail.
	Active                bool                  `db:"active"`
	NotificationFrequency NotificationFrequency `db:"notification_frequency"`

	NeedsNotification   bool        `db:"needs_notification"`
	NotifiedRevisions   RevisionMap `db:"notified_revisions"`
	DownloadedRevisions RevisionMap `db:"downloaded_revisions"`

	DateCreated time.Time `db:"date_created"`
}
