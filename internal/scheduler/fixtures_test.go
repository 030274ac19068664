package scheduler

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func weekCalendar(days, hours int) models.Calendar {
	d := make([]int, 0, days)
	for i := 1; i <= days; i++ {
		d = append(d, i)
	}
	h := make([]int, 0, hours)
	for i := 1; i <= hours; i++ {
		h = append(h, i)
	}
	return models.NewCalendar(d, h)
}

func fullAvailability(cal models.Calendar) models.Availability {
	availability := models.Availability{}
	for _, day := range cal.Days {
		availability[day] = append([]int(nil), cal.Hours...)
	}
	return availability
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s-%d", n)
	}
}

func seededEngine(seed int64) *Engine {
	return NewEngine(WithRandomSource(rand.New(rand.NewSource(seed))), WithIDGenerator(sequentialIDs()))
}

func requireNoDoubleBooking(t *testing.T, sessions []models.Session) {
	t.Helper()
	teacherSlots := map[string]string{}
	groupSlots := map[string]string{}
	for _, s := range sessions {
		tk := s.TeacherID + "@" + s.Slot.String()
		gk := s.GroupID + "@" + s.Slot.String()
		require.NotContains(t, teacherSlots, tk, "teacher double booked: %s and %s", teacherSlots[tk], s.ID)
		require.NotContains(t, groupSlots, gk, "group double booked: %s and %s", groupSlots[gk], s.ID)
		teacherSlots[tk] = s.ID
		groupSlots[gk] = s.ID
	}
}

func countPair(sessions []models.Session, groupID, subjectID string) int {
	n := 0
	for _, s := range sessions {
		if s.GroupID == groupID && s.SubjectID == subjectID {
			n++
		}
	}
	return n
}
