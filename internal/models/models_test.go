package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarNormalisesAndContains(t *testing.T) {
	cal := NewCalendar([]int{3, 1, 1, 9, 0}, []int{2, 1, 2, -1})

	assert.Equal(t, []int{1, 3}, cal.Days)
	assert.Equal(t, []int{1, 2}, cal.Hours)
	assert.Equal(t, 4, cal.Size())
	assert.True(t, cal.Contains(TimeSlot{Day: 3, Hour: 2}))
	assert.False(t, cal.Contains(TimeSlot{Day: 2, Hour: 1}))
	assert.False(t, cal.Contains(TimeSlot{Day: 1, Hour: 3}))
	assert.Equal(t, []TimeSlot{{1, 1}, {1, 2}, {3, 1}, {3, 2}}, cal.Slots())
}

func TestTeacherPredicates(t *testing.T) {
	teacher := Teacher{
		ID:           "t1",
		Subjects:     []string{"math", "physics"},
		Availability: Availability{1: {1, 2}, 2: {3}},
	}

	assert.True(t, IsQualified(teacher, "math"))
	assert.False(t, IsQualified(teacher, "history"))
	assert.True(t, IsAvailable(teacher, TimeSlot{Day: 1, Hour: 2}))
	assert.False(t, IsAvailable(teacher, TimeSlot{Day: 1, Hour: 3}))
	assert.False(t, IsAvailable(teacher, TimeSlot{Day: 5, Hour: 1}))
	assert.Equal(t, 3, teacher.Availability.Count())
	assert.Equal(t, []int{1, 2}, teacher.Availability.Days())
}

func TestRosterLookups(t *testing.T) {
	roster := NewRoster(
		NewCalendar([]int{1}, []int{1}),
		[]Subject{{ID: "math", WeeklySessions: 2}},
		[]Teacher{{ID: "t1", Subjects: []string{"math"}}, {ID: "t2", Subjects: []string{"art"}}},
		[]Group{{ID: "g1", Subjects: []string{"math"}}},
	)

	subject, ok := roster.Subject("math")
	require.True(t, ok)
	assert.Equal(t, 2, subject.WeeklySessions)
	_, ok = roster.Teacher("missing")
	assert.False(t, ok)
	_, ok = roster.Group("g1")
	assert.True(t, ok)

	qualified := roster.QualifiedTeachers("math")
	require.Len(t, qualified, 1)
	assert.Equal(t, "t1", qualified[0].ID)
	assert.Empty(t, roster.QualifiedTeachers("history"))
}

func TestConflictMessage(t *testing.T) {
	partial := Conflict{GroupID: "1A", SubjectID: "math", Reason: ConflictInsufficientSlots, Placed: 1, Required: 3}
	assert.Equal(t, 2, partial.Missing())
	assert.Equal(t, "1A - math: only 1 of 3 sessions placed", partial.Message())

	none := Conflict{GroupID: "1A", SubjectID: "art", Reason: ConflictNoQualifiedTeacher, Required: 2}
	assert.Equal(t, "1A - art: no qualified teacher", none.Message())
}

func TestConflictJSONOmitsUnknownQuota(t *testing.T) {
	unknown, err := json.Marshal(Conflict{GroupID: "1A", SubjectID: "ghost", Reason: ConflictUnknownSubject})
	require.NoError(t, err)
	assert.NotContains(t, string(unknown), "required")
	assert.Contains(t, string(unknown), `"placed":0`)

	known, err := json.Marshal(Conflict{GroupID: "1A", SubjectID: "art", Reason: ConflictNoQualifiedTeacher, Required: 2})
	require.NoError(t, err)
	assert.Contains(t, string(known), `"required":2`)
}

func TestTimetableSnapshotIsEmpty(t *testing.T) {
	assert.True(t, TimetableSnapshot{Version: 3}.IsEmpty())
	assert.False(t, TimetableSnapshot{Sessions: []Session{{ID: "s-1"}}}.IsEmpty())
	assert.False(t, TimetableSnapshot{Conflicts: []Conflict{{GroupID: "1A"}}}.IsEmpty())
}

func TestDayNames(t *testing.T) {
	assert.Equal(t, "MONDAY", DayName(1))
	assert.Equal(t, 5, DayIndex(" friday "))
	assert.Equal(t, 0, DayIndex("someday"))
	assert.Equal(t, "TUESDAY/3", TimeSlot{Day: 2, Hour: 3}.String())
}
