package models

import "sort"

// Availability lists, per day index, the hours a teacher can be scheduled.
type Availability map[int][]int

// Includes reports whether the slot is inside the availability window.
func (a Availability) Includes(slot TimeSlot) bool {
	return containsInt(a[slot.Day], slot.Hour)
}

// Count returns the number of available (day, hour) pairs.
func (a Availability) Count() int {
	total := 0
	for _, hours := range a {
		total += len(hours)
	}
	return total
}

// Days returns the days with at least one available hour, ascending.
func (a Availability) Days() []int {
	days := make([]int, 0, len(a))
	for day, hours := range a {
		if len(hours) > 0 {
			days = append(days, day)
		}
	}
	sort.Ints(days)
	return days
}

// Teacher is an instructor qualified for a set of subjects.
type Teacher struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Subjects     []string     `json:"subjects"`
	Availability Availability `json:"availability"`
	Color        string       `json:"color,omitempty"`
}

// IsQualified reports whether the teacher may teach the subject.
func IsQualified(t Teacher, subjectID string) bool {
	for _, id := range t.Subjects {
		if id == subjectID {
			return true
		}
	}
	return false
}

// IsAvailable reports whether the teacher can be scheduled at the slot.
func IsAvailable(t Teacher, slot TimeSlot) bool {
	return t.Availability.Includes(slot)
}
