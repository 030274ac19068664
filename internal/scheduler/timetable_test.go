package scheduler

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func relocationRoster() *models.Roster {
	cal := weekCalendar(5, 6)
	return models.NewRoster(cal,
		[]models.Subject{{ID: "math", WeeklySessions: 2}, {ID: "art", WeeklySessions: 1}},
		[]models.Teacher{
			{ID: "t1", Subjects: []string{"math"}, Availability: models.Availability{1: {1, 2}, 2: {1, 2}}},
			{ID: "t2", Subjects: []string{"art"}, Availability: fullAvailability(cal)},
		},
		[]models.Group{{ID: "A", Subjects: []string{"math", "art"}}, {ID: "B", Subjects: []string{"math"}}},
	)
}

func restoredTimetable(t *testing.T, sessions ...models.Session) *Timetable {
	t.Helper()
	tt := NewTimetable(relocationRoster(), seededEngine(1))
	require.NoError(t, tt.Restore(sessions, nil))
	return tt
}

var (
	mathA = models.Session{ID: "m-a", GroupID: "A", SubjectID: "math", TeacherID: "t1", Slot: models.TimeSlot{Day: 1, Hour: 2}}
	mathB = models.Session{ID: "m-b", GroupID: "B", SubjectID: "math", TeacherID: "t1", Slot: models.TimeSlot{Day: 2, Hour: 2}}
	artA  = models.Session{ID: "a-a", GroupID: "A", SubjectID: "art", TeacherID: "t2", Slot: models.TimeSlot{Day: 1, Hour: 1}}
)

func TestRelocateRejectsHourOutsideAvailability(t *testing.T) {
	session := mathA
	session.Slot = models.TimeSlot{Day: 1, Hour: 1}
	tt := restoredTimetable(t, session)
	target := models.TimeSlot{Day: 1, Hour: 3}

	check, err := tt.ValidateMove(session.ID, "A", target)
	require.NoError(t, err)
	assert.False(t, check.OK)
	assert.Equal(t, models.MoveTeacherUnavailable, check.Code)
	assert.Equal(t, models.ReasonTeacherUnavailable, check.Reason)

	result, current, err := tt.Relocate(session.ID, "A", target)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, models.TimeSlot{Day: 1, Hour: 1}, current.Slot)
	assert.False(t, tt.IsTeacherFree("t1", models.TimeSlot{Day: 1, Hour: 1}))
	assert.True(t, tt.IsGroupFree("A", target))
	require.NoError(t, tt.Verify())
}

func TestRelocateRejectsTeacherCommittedToAnotherGroup(t *testing.T) {
	tt := restoredTimetable(t, mathA, mathB)

	result, current, err := tt.Relocate(mathB.ID, "B", mathA.Slot)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, models.MoveTeacherBusy, result.Code)
	assert.Equal(t, "A", result.ConflictingGroupID)
	assert.Equal(t, mathA.ID, result.ConflictingSessionID)
	assert.Equal(t, mathB.Slot, current.Slot)
	require.NoError(t, tt.Verify())
}

func TestRelocateRejectsGroupDoubleBooking(t *testing.T) {
	tt := restoredTimetable(t, mathA, artA)

	result, _, err := tt.Relocate(artA.ID, "", mathA.Slot)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, models.MoveGroupBusy, result.Code)
	assert.Equal(t, "math", result.ConflictingSubjectID)

	stored, ok := tt.Session(artA.ID)
	require.True(t, ok)
	assert.Equal(t, artA.Slot, stored.Slot)
}

func TestRelocateRejectsSlotOutsideCalendar(t *testing.T) {
	tt := restoredTimetable(t, artA)

	result, _, err := tt.Relocate(artA.ID, "A", models.TimeSlot{Day: 6, Hour: 1})
	require.NoError(t, err)
	assert.Equal(t, models.MoveOutsideCalendar, result.Code)

	result, _, err = tt.Relocate(artA.ID, "A", models.TimeSlot{Day: 1, Hour: 9})
	require.NoError(t, err)
	assert.Equal(t, models.MoveOutsideCalendar, result.Code)
}

func TestRelocateMovesSessionAndReservations(t *testing.T) {
	tt := restoredTimetable(t, mathA, mathB, artA)
	target := models.TimeSlot{Day: 2, Hour: 1}

	result, moved, err := tt.Relocate(mathA.ID, "A", target)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.False(t, result.Noop)
	assert.Equal(t, target, moved.Slot)

	assert.True(t, tt.IsTeacherFree("t1", mathA.Slot))
	assert.True(t, tt.IsGroupFree("A", mathA.Slot))
	assert.False(t, tt.IsTeacherFree("t1", target))
	assert.False(t, tt.IsGroupFree("A", target))
	require.NoError(t, tt.Verify())

	// the freed slot is now open for the other group
	result, _, err = tt.Relocate(mathB.ID, "B", mathA.Slot)
	require.NoError(t, err)
	assert.True(t, result.OK)
	require.NoError(t, tt.Verify())
}

func TestRelocateToSameSlotIsNoop(t *testing.T) {
	tt := restoredTimetable(t, mathA)

	result, current, err := tt.Relocate(mathA.ID, "A", mathA.Slot)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, result.Noop)
	assert.Equal(t, mathA.Slot, current.Slot)
	require.NoError(t, tt.Verify())
}

func TestRelocateAcrossGroupsIsInvariantError(t *testing.T) {
	tt := restoredTimetable(t, mathA)

	_, _, err := tt.Relocate(mathA.ID, "B", models.TimeSlot{Day: 2, Hour: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvariant))

	stored, _ := tt.Session(mathA.ID)
	assert.Equal(t, mathA.Slot, stored.Slot)
	require.NoError(t, tt.Verify())
}

func TestRelocateUnknownSession(t *testing.T) {
	tt := restoredTimetable(t)

	_, _, err := tt.Relocate("missing", "", models.TimeSlot{Day: 1, Hour: 1})
	assert.True(t, errors.Is(err, appErrors.ErrSessionNotFound))
	_, err = tt.ValidateMove("missing", "", models.TimeSlot{Day: 1, Hour: 1})
	assert.True(t, errors.Is(err, appErrors.ErrSessionNotFound))
}

func TestRelocatorLeavesSessionWhenReservationIsMissing(t *testing.T) {
	session := mathA
	r := relocator{
		roster:   relocationRoster(),
		index:    NewOccupancyIndex(),
		sessions: map[string]*models.Session{session.ID: &session},
	}

	_, err := r.relocate(&session, "A", models.TimeSlot{Day: 2, Hour: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrReservationNotFound))
	assert.Equal(t, mathA.Slot, session.Slot)
}

func TestConcurrentRelocationsToSameSlot(t *testing.T) {
	other := models.Session{ID: "m-a2", GroupID: "A", SubjectID: "math", TeacherID: "t1", Slot: models.TimeSlot{Day: 2, Hour: 2}}
	tt := restoredTimetable(t, mathA, other)
	target := models.TimeSlot{Day: 1, Hour: 1}

	var wg sync.WaitGroup
	results := make([]models.ValidationResult, 2)
	for i, id := range []string{mathA.ID, other.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			res, _, err := tt.Relocate(id, "A", target)
			assert.NoError(t, err)
			results[i] = res
		}(i, id)
	}
	wg.Wait()

	accepted := 0
	for _, res := range results {
		if res.OK {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
	require.NoError(t, tt.Verify())
}

func TestGenerateKeepsIndexConsistent(t *testing.T) {
	tt := NewTimetable(relocationRoster(), seededEngine(11))

	result, err := tt.Generate()
	require.NoError(t, err)
	requireNoDoubleBooking(t, result.Sessions)
	assert.Equal(t, result.Sessions, tt.Sessions())
	assert.Equal(t, result.Conflicts, tt.Conflicts())
	require.NoError(t, tt.Verify())

	second, err := tt.Generate()
	require.NoError(t, err)
	assert.Len(t, tt.Sessions(), len(second.Sessions))
	for _, s := range result.Sessions {
		_, ok := tt.Session(s.ID)
		assert.False(t, ok, "session %s survived regeneration", s.ID)
	}
	require.NoError(t, tt.Verify())
}

func TestResetIsIdempotent(t *testing.T) {
	tt := NewTimetable(relocationRoster(), seededEngine(5))
	_, err := tt.Generate()
	require.NoError(t, err)

	tt.Reset()
	tt.Reset()

	assert.Empty(t, tt.Sessions())
	assert.Empty(t, tt.Conflicts())
	require.NoError(t, tt.Verify())
	for _, slot := range tt.Roster().Calendar.Slots() {
		assert.True(t, tt.IsTeacherFree("t1", slot))
		assert.True(t, tt.IsGroupFree("A", slot))
	}
}

func TestRestoreRebuildsOccupancy(t *testing.T) {
	tt := NewTimetable(relocationRoster(), seededEngine(1))
	conflicts := []models.Conflict{{GroupID: "A", SubjectID: "math", Reason: models.ConflictInsufficientSlots, Placed: 1, Required: 2}}
	require.NoError(t, tt.Restore([]models.Session{mathA, artA}, conflicts))
	assert.Equal(t, conflicts, tt.Conflicts())

	assert.Equal(t, []models.Session{mathA, artA}, tt.Sessions())
	assert.False(t, tt.IsTeacherFree("t1", mathA.Slot))
	assert.False(t, tt.IsGroupFree("A", artA.Slot))
	require.NoError(t, tt.Verify())
}

func TestRestoreRejectsInvalidSnapshotsAndKeepsState(t *testing.T) {
	tt := restoredTimetable(t, mathA)

	clash := mathB
	clash.Slot = mathA.Slot
	unqualified := artA
	unqualified.TeacherID = "t1"
	unavailable := mathB
	unavailable.Slot = models.TimeSlot{Day: 3, Hour: 1}
	ghost := mathB
	ghost.GroupID = "Z"

	cases := map[string][]models.Session{
		"collision":       {mathA, clash},
		"duplicate id":    {mathA, mathA},
		"unqualified":     {unqualified},
		"unavailable":     {unavailable},
		"unknown group":   {ghost},
		"missing session": {{GroupID: "A", SubjectID: "math", TeacherID: "t1", Slot: mathA.Slot}},
	}
	for name, snapshot := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, tt.Restore(snapshot, nil))
			assert.Equal(t, []models.Session{mathA}, tt.Sessions())
			require.NoError(t, tt.Verify())
		})
	}

	err := tt.Restore([]models.Session{mathA, clash}, nil)
	assert.True(t, errors.Is(err, appErrors.ErrSlotOccupied))
}

func TestVersionAdvancesOnlyOnStateChanges(t *testing.T) {
	tt := NewTimetable(relocationRoster(), seededEngine(1))
	assert.Zero(t, tt.Version())

	require.NoError(t, tt.Restore([]models.Session{mathA, mathB, artA}, nil))
	assert.Equal(t, uint64(1), tt.Version())

	result, _, err := tt.Relocate(artA.ID, "A", artA.Slot)
	require.NoError(t, err)
	require.True(t, result.Noop)
	result, _, err = tt.Relocate(mathA.ID, "A", models.TimeSlot{Day: 1, Hour: 3})
	require.NoError(t, err)
	require.False(t, result.OK)
	require.Error(t, tt.Restore([]models.Session{mathA, mathA}, nil))
	assert.Equal(t, uint64(1), tt.Version())

	result, _, err = tt.Relocate(mathB.ID, "B", models.TimeSlot{Day: 2, Hour: 1})
	require.NoError(t, err)
	require.True(t, result.OK)
	assert.Equal(t, uint64(2), tt.Version())

	_, err = tt.Generate()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tt.Version())

	tt.Reset()
	snapshot := tt.Snapshot()
	assert.Equal(t, uint64(4), snapshot.Version)
	assert.True(t, snapshot.IsEmpty())
}
