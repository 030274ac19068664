package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// PublishedTimetable is a frozen, versioned copy of the working timetable.
type PublishedTimetable struct {
	ID            string         `db:"id" json:"id"`
	Version       int            `db:"version" json:"version"`
	Label         string         `db:"label" json:"label"`
	SessionCount  int            `db:"session_count" json:"session_count"`
	ConflictCount int            `db:"conflict_count" json:"conflict_count"`
	Meta          types.JSONText `db:"meta" json:"meta"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// PublishedSession is one session row of a published timetable.
type PublishedSession struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	GroupID     string    `db:"group_id" json:"group_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	TimeSlot    int       `db:"time_slot" json:"time_slot"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
