package models

import "time"

type StudyCourse struct {
	ID int `db:"id"`

	Name string `db:"name"`
	Slug string `db:"slug"`
}

type CourseType struct {
	ID int `db:"id"`

	Name string `db:"name"`
	Slug string `db:"slug"`
}

// An academic term, e.g. "Winter 2025/26". Terms order chronologically by
// StartDate; the slug is used in natural-key course lookups.
type Term struct {
	ID int `db:"id"`

	Name      string    `db:"name"`
	Slug      string    `db:"slug"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
}
