package scheduler

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// relocator checks and applies single-session moves against shared state.
// The owning Timetable serialises access.
type relocator struct {
	roster   *models.Roster
	index    *OccupancyIndex
	sessions map[string]*models.Session
}

// validate runs the move checks in order and stops at the first failure.
// An empty groupID means the destination group is the session's own group.
func (r relocator) validate(session models.Session, groupID string, target models.TimeSlot) (models.ValidationResult, error) {
	if groupID != "" && groupID != session.GroupID {
		return models.ValidationResult{}, appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("session %s belongs to group %s, not %s", session.ID, session.GroupID, groupID))
	}
	teacher, ok := r.roster.Teacher(session.TeacherID)
	if !ok {
		return models.ValidationResult{}, appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("session %s references unknown teacher %s", session.ID, session.TeacherID))
	}

	if !r.roster.Calendar.Contains(target) {
		return models.Rejected(models.MoveOutsideCalendar, models.ReasonOutsideCalendar), nil
	}
	if !models.IsAvailable(teacher, target) {
		return models.Rejected(models.MoveTeacherUnavailable, models.ReasonTeacherUnavailable), nil
	}
	if target == session.Slot {
		return models.ValidationResult{OK: true, Noop: true}, nil
	}

	if holder, taken := r.index.TeacherAt(session.TeacherID, target); taken && holder != session.ID {
		result := models.Rejected(models.MoveTeacherBusy, models.ReasonTeacherBusy)
		result.ConflictingSessionID = holder
		if other, ok := r.sessions[holder]; ok {
			result.ConflictingGroupID = other.GroupID
			result.ConflictingSubjectID = other.SubjectID
		}
		return result, nil
	}
	if holder, taken := r.index.GroupAt(session.GroupID, target); taken && holder != session.ID {
		result := models.Rejected(models.MoveGroupBusy, models.ReasonGroupBusy)
		result.ConflictingSessionID = holder
		if other, ok := r.sessions[holder]; ok {
			result.ConflictingGroupID = other.GroupID
			result.ConflictingSubjectID = other.SubjectID
		}
		return result, nil
	}
	return models.Accepted(), nil
}

// relocate validates and then moves session to target. Either the session
// ends up reserved at target with its slot updated, or both the session and
// the index are left exactly as they were.
func (r relocator) relocate(session *models.Session, groupID string, target models.TimeSlot) (models.ValidationResult, error) {
	result, err := r.validate(*session, groupID, target)
	if err != nil || !result.OK || result.Noop {
		return result, err
	}

	previous := *session
	if err := r.index.Release(previous); err != nil {
		return models.ValidationResult{}, err
	}
	moved := previous
	moved.Slot = target
	if err := r.index.Reserve(moved); err != nil {
		if restoreErr := r.index.Reserve(previous); restoreErr != nil {
			return models.ValidationResult{}, appErrors.Wrap(restoreErr, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, "failed to restore reservation after aborted relocation")
		}
		return models.ValidationResult{}, err
	}
	session.Slot = target
	return result, nil
}
