package models

import "time"

type User struct {
	ID int `db:"id"`

	Username string `db:"username"`
	Password string `db:"password"`
	Email    string `db:"email"`

	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`

	IsActive    bool `db:"is_active"`
	IsStaff     bool `db:"is_staff"`
	IsSuperuser bool `db:"is_superuser"`

	// Presentation preferences, carried over from the account system.
	Language string `db:"language"`
	Timezone string `db:"timezone"`

	EditorNotificationFrequency  NotificationFrequency `db:"editor_notification_frequency"`
	StudentNotificationFrequency NotificationFrequency `db:"student_notification_frequency"`

	DateJoined time.Time  `db:"date_joined"`
	LastLogin  *time.Time `db:"last_login"`
}

func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
