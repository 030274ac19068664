package scheduler

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type occupancyKey struct {
	owner string
	slot  models.TimeSlot
}

// OccupancyIndex tracks which session holds each (teacher, slot) and
// (group, slot) pair. A key maps to at most one session.
type OccupancyIndex struct {
	teachers map[occupancyKey]string
	groups   map[occupancyKey]string
}

// NewOccupancyIndex returns an empty index.
func NewOccupancyIndex() *OccupancyIndex {
	return &OccupancyIndex{
		teachers: make(map[occupancyKey]string),
		groups:   make(map[occupancyKey]string),
	}
}

// IsTeacherFree reports whether the teacher has no session at slot.
func (o *OccupancyIndex) IsTeacherFree(teacherID string, slot models.TimeSlot) bool {
	_, taken := o.teachers[occupancyKey{owner: teacherID, slot: slot}]
	return !taken
}

// IsGroupFree reports whether the group has no session at slot.
func (o *OccupancyIndex) IsGroupFree(groupID string, slot models.TimeSlot) bool {
	_, taken := o.groups[occupancyKey{owner: groupID, slot: slot}]
	return !taken
}

// TeacherAt returns the ID of the session holding the teacher at slot.
func (o *OccupancyIndex) TeacherAt(teacherID string, slot models.TimeSlot) (string, bool) {
	id, ok := o.teachers[occupancyKey{owner: teacherID, slot: slot}]
	return id, ok
}

// GroupAt returns the ID of the session holding the group at slot.
func (o *OccupancyIndex) GroupAt(groupID string, slot models.TimeSlot) (string, bool) {
	id, ok := o.groups[occupancyKey{owner: groupID, slot: slot}]
	return id, ok
}

// Reserve records the session under both its teacher and group keys.
// Callers must have checked freedom first; a taken key is an invariant breach.
func (o *OccupancyIndex) Reserve(session models.Session) error {
	teacherKey := occupancyKey{owner: session.TeacherID, slot: session.Slot}
	groupKey := occupancyKey{owner: session.GroupID, slot: session.Slot}
	if holder, ok := o.teachers[teacherKey]; ok {
		return appErrors.Clone(appErrors.ErrSlotOccupied, fmt.Sprintf("teacher %s already holds %s with session %s", session.TeacherID, session.Slot, holder))
	}
	if holder, ok := o.groups[groupKey]; ok {
		return appErrors.Clone(appErrors.ErrSlotOccupied, fmt.Sprintf("group %s already holds %s with session %s", session.GroupID, session.Slot, holder))
	}
	o.teachers[teacherKey] = session.ID
	o.groups[groupKey] = session.ID
	return nil
}

// Release removes the session from both maps. Both keys must be held by this
// exact session, otherwise nothing is removed.
func (o *OccupancyIndex) Release(session models.Session) error {
	teacherKey := occupancyKey{owner: session.TeacherID, slot: session.Slot}
	groupKey := occupancyKey{owner: session.GroupID, slot: session.Slot}
	if holder, ok := o.teachers[teacherKey]; !ok || holder != session.ID {
		return appErrors.Clone(appErrors.ErrReservationNotFound, fmt.Sprintf("session %s holds no teacher reservation at %s", session.ID, session.Slot))
	}
	if holder, ok := o.groups[groupKey]; !ok || holder != session.ID {
		return appErrors.Clone(appErrors.ErrReservationNotFound, fmt.Sprintf("session %s holds no group reservation at %s", session.ID, session.Slot))
	}
	delete(o.teachers, teacherKey)
	delete(o.groups, groupKey)
	return nil
}

// Len returns the number of teacher and group reservations.
func (o *OccupancyIndex) Len() (teachers, groups int) {
	return len(o.teachers), len(o.groups)
}

// Clear drops every reservation.
func (o *OccupancyIndex) Clear() {
	o.teachers = make(map[occupancyKey]string)
	o.groups = make(map[occupancyKey]string)
}
