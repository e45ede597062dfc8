package models

import "time"

// A shareable capability token granting a fixed access level to one course
// without an account. Tokens expire by calendar date, not timestamp: a token
// is valid through the end of its expiration day.
type EasyAccess struct {
	ID int `db:"id"`

	CourseID int    `db:"course_id"`
	Token    string `db:"token"`

	AccessLevel    AccessLevel `db:"access_level"`
	ExpirationDate time.Time   `db:"expiration_date"`

	// Who the token was issued to. The name shows up in the invite mail and
	// in commit messages made on the holder's behalf.
	Name  string `db:"name"`
	Email string `db:"email"`

	DateCreated time.Time `db:"date_created"`
}

// ValidOn reports whether the token is still usable on the given day.
func (ea *EasyAccess) ValidOn(now time.Time) bool {
	y1, m1, d1 := ea.ExpirationDate.Date()
	expiryEnd := time.Date(y1, m1, d1, 23, 59, 59, int(time.Second-time.Nanosecond), now.Location())
	return !now.After(expiryEnd)
}
