package models

import "time"

// TimetableSnapshot is the persisted form of the live timetable. Version
// increases with every change to the timetable it was taken from.
type TimetableSnapshot struct {
	Version   uint64     `json:"version"`
	Sessions  []Session  `json:"sessions"`
	Conflicts []Conflict `json:"conflicts"`
	SavedAt   time.Time  `json:"saved_at"`
}

// IsEmpty reports whether there is nothing worth restoring.
func (s TimetableSnapshot) IsEmpty() bool {
	return len(s.Sessions) == 0 && len(s.Conflicts) == 0
}
