package models

import "github.com/google/uuid"

// A file stored in object storage. Static courses have no repository; their
// archived material lives here instead.
type Asset struct {
	ID uuid.UUID `db:"id"`

	S3Key    string `db:"s3_key"`
	Filename string `db:"filename"`
	Size     int    `db:"size"`
	MimeType string `db:"mime_type"`
	Sha1Sum  string `db:"sha1sum"`

	CourseID   *int `db:"course_id"`
	UploaderID *int `db:"uploader_id"`
}
