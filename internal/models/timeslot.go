package models

import (
	"fmt"
	"sort"
	"strings"
)

// TimeSlot is a (day, hour) coordinate in the weekly calendar. Day follows
// ISO numbering (1 = Monday ... 7 = Sunday); Hour is a 1-based period index.
type TimeSlot struct {
	Day  int `json:"day" validate:"min=1,max=7"`
	Hour int `json:"hour" validate:"min=1"`
}

// String renders the slot as DAY/hour, e.g. MONDAY/2.
func (s TimeSlot) String() string {
	return fmt.Sprintf("%s/%d", DayName(s.Day), s.Hour)
}

// Calendar is the fixed weekly grid sessions may be placed in.
type Calendar struct {
	Days  []int `json:"days"`
	Hours []int `json:"hours"`
}

// NewCalendar normalises days and hours: drops out of range values, dedupes, sorts.
func NewCalendar(days, hours []int) Calendar {
	return Calendar{Days: normalizeInts(days, 1, 7), Hours: normalizeInts(hours, 1, 0)}
}

// Contains reports whether the slot lies on the grid.
func (c Calendar) Contains(slot TimeSlot) bool {
	return containsInt(c.Days, slot.Day) && containsInt(c.Hours, slot.Hour)
}

// Slots enumerates the grid day-major.
func (c Calendar) Slots() []TimeSlot {
	slots := make([]TimeSlot, 0, c.Size())
	for _, day := range c.Days {
		for _, hour := range c.Hours {
			slots = append(slots, TimeSlot{Day: day, Hour: hour})
		}
	}
	return slots
}

// Size returns the number of slots on the grid.
func (c Calendar) Size() int {
	return len(c.Days) * len(c.Hours)
}

var dayIndexMap = map[int]string{
	1: "MONDAY",
	2: "TUESDAY",
	3: "WEDNESDAY",
	4: "THURSDAY",
	5: "FRIDAY",
	6: "SATURDAY",
	7: "SUNDAY",
}

var dayNameIndex = map[string]int{
	"MONDAY":    1,
	"TUESDAY":   2,
	"WEDNESDAY": 3,
	"THURSDAY":  4,
	"FRIDAY":    5,
	"SATURDAY":  6,
	"SUNDAY":    7,
}

// DayName maps a day index to its upper-case English name.
func DayName(day int) string {
	if name, ok := dayIndexMap[day]; ok {
		return name
	}
	return fmt.Sprintf("DAY%d", day)
}

// DayIndex parses a day name (case-insensitive) or returns 0 when unknown.
func DayIndex(name string) int {
	return dayNameIndex[strings.ToUpper(strings.TrimSpace(name))]
}

func normalizeInts(values []int, min, max int) []int {
	unique := make(map[int]struct{}, len(values))
	for _, v := range values {
		if v < min || (max > 0 && v > max) {
			continue
		}
		unique[v] = struct{}{}
	}
	result := make([]int, 0, len(unique))
	for v := range unique {
		result = append(result, v)
	}
	sort.Ints(result)
	return result
}

func containsInt(values []int, target int) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
