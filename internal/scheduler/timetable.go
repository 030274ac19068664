package scheduler

import (
	"fmt"
	"sync"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// Timetable owns the live sessions of one roster together with their
// occupancy index. Every operation runs under a single mutex so that a
// validate-then-relocate sequence cannot interleave with another mutation.
type Timetable struct {
	mu        sync.Mutex
	roster    *models.Roster
	engine    *Engine
	index     *OccupancyIndex
	sessions  map[string]*models.Session
	order     []string
	conflicts []models.Conflict
	version   uint64
}

// NewTimetable creates an empty timetable for roster.
func NewTimetable(roster *models.Roster, engine *Engine) *Timetable {
	if engine == nil {
		engine = NewEngine()
	}
	return &Timetable{
		roster:   roster,
		engine:   engine,
		index:    NewOccupancyIndex(),
		sessions: make(map[string]*models.Session),
	}
}

// Roster returns the reference data the timetable was built for.
func (t *Timetable) Roster() *models.Roster {
	return t.roster
}

// Generate discards every session and places a fresh schedule. On a hard
// error the previous state is kept.
func (t *Timetable) Generate() (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	index := NewOccupancyIndex()
	result, err := t.engine.Assign(t.roster, index)
	if err != nil {
		return Result{}, err
	}
	t.replaceLocked(index, result.Sessions)
	t.conflicts = result.Conflicts
	t.version++
	return Result{Sessions: t.sessionsLocked(), Conflicts: t.conflictsLocked()}, nil
}

// ValidateMove checks whether the session could move to target without
// changing anything.
func (t *Timetable) ValidateMove(sessionID, groupID string, target models.TimeSlot) (models.ValidationResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[sessionID]
	if !ok {
		return models.ValidationResult{}, appErrors.Clone(appErrors.ErrSessionNotFound, fmt.Sprintf("session %s not found", sessionID))
	}
	return t.relocatorLocked().validate(*session, groupID, target)
}

// Relocate moves the session to target when every check passes and returns
// the session as it stands afterwards.
func (t *Timetable) Relocate(sessionID, groupID string, target models.TimeSlot) (models.ValidationResult, models.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[sessionID]
	if !ok {
		return models.ValidationResult{}, models.Session{}, appErrors.Clone(appErrors.ErrSessionNotFound, fmt.Sprintf("session %s not found", sessionID))
	}
	result, err := t.relocatorLocked().relocate(session, groupID, target)
	if err == nil && result.OK && !result.Noop {
		t.version++
	}
	return result, *session, err
}

// Reset removes every session and reservation.
func (t *Timetable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replaceLocked(NewOccupancyIndex(), nil)
	t.conflicts = nil
	t.version++
}

// Restore replaces the live state with previously saved sessions and the
// conflict report that came with them. The occupancy index is rebuilt from
// the sessions; any session that breaks the roster or collides with another
// aborts the restore and leaves the state untouched.
func (t *Timetable) Restore(sessions []models.Session, conflicts []models.Conflict) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	index := NewOccupancyIndex()
	seen := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		if s.ID == "" {
			return appErrors.Clone(appErrors.ErrInvariant, "restored session without id")
		}
		if _, dup := seen[s.ID]; dup {
			return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("duplicate session id %s", s.ID))
		}
		seen[s.ID] = struct{}{}
		if err := t.checkAgainstRoster(s); err != nil {
			return err
		}
		if err := index.Reserve(s); err != nil {
			return err
		}
	}
	t.replaceLocked(index, sessions)
	t.conflicts = append([]models.Conflict(nil), conflicts...)
	t.version++
	return nil
}

// Snapshot copies the live sessions and conflicts together with the version
// they belong to, all under one lock.
func (t *Timetable) Snapshot() models.TimetableSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return models.TimetableSnapshot{
		Version:   t.version,
		Sessions:  t.sessionsLocked(),
		Conflicts: t.conflictsLocked(),
	}
}

// Version counts the changes made to the timetable: generations, accepted
// relocations, resets and restores.
func (t *Timetable) Version() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

// Sessions returns a copy of the live sessions in placement order.
func (t *Timetable) Sessions() []models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionsLocked()
}

// Session returns one live session.
func (t *Timetable) Session(id string) (models.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if !ok {
		return models.Session{}, false
	}
	return *s, true
}

// Conflicts returns the unmet demand reported by the last generation run.
func (t *Timetable) Conflicts() []models.Conflict {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conflictsLocked()
}

// IsTeacherFree exposes the occupancy index for read-only callers.
func (t *Timetable) IsTeacherFree(teacherID string, slot models.TimeSlot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index.IsTeacherFree(teacherID, slot)
}

// IsGroupFree exposes the occupancy index for read-only callers.
func (t *Timetable) IsGroupFree(groupID string, slot models.TimeSlot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index.IsGroupFree(groupID, slot)
}

// Verify checks that every live session is reserved at its slot under both
// keys and that the index holds nothing else.
func (t *Timetable) Verify() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range t.order {
		s := t.sessions[id]
		if holder, ok := t.index.TeacherAt(s.TeacherID, s.Slot); !ok || holder != s.ID {
			return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("session %s missing from teacher occupancy at %s", s.ID, s.Slot))
		}
		if holder, ok := t.index.GroupAt(s.GroupID, s.Slot); !ok || holder != s.ID {
			return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("session %s missing from group occupancy at %s", s.ID, s.Slot))
		}
	}
	teachers, groups := t.index.Len()
	if teachers != len(t.sessions) || groups != len(t.sessions) {
		return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("occupancy holds %d/%d reservations for %d sessions", teachers, groups, len(t.sessions)))
	}
	return nil
}

func (t *Timetable) checkAgainstRoster(s models.Session) error {
	if _, ok := t.roster.Group(s.GroupID); !ok {
		return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("session %s references unknown group %s", s.ID, s.GroupID))
	}
	if _, ok := t.roster.Subject(s.SubjectID); !ok {
		return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("session %s references unknown subject %s", s.ID, s.SubjectID))
	}
	teacher, ok := t.roster.Teacher(s.TeacherID)
	if !ok {
		return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("session %s references unknown teacher %s", s.ID, s.TeacherID))
	}
	if !models.IsQualified(teacher, s.SubjectID) {
		return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("teacher %s is not qualified for %s", s.TeacherID, s.SubjectID))
	}
	if !t.roster.Calendar.Contains(s.Slot) || !models.IsAvailable(teacher, s.Slot) {
		return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("session %s placed at unavailable slot %s", s.ID, s.Slot))
	}
	return nil
}

func (t *Timetable) relocatorLocked() relocator {
	return relocator{roster: t.roster, index: t.index, sessions: t.sessions}
}

func (t *Timetable) replaceLocked(index *OccupancyIndex, sessions []models.Session) {
	t.index = index
	t.sessions = make(map[string]*models.Session, len(sessions))
	t.order = make([]string, 0, len(sessions))
	for i := range sessions {
		s := sessions[i]
		t.sessions[s.ID] = &s
		t.order = append(t.order, s.ID)
	}
}

func (t *Timetable) sessionsLocked() []models.Session {
	out := make([]models.Session, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.sessions[id])
	}
	return out
}

func (t *Timetable) conflictsLocked() []models.Conflict {
	out := make([]models.Conflict, len(t.conflicts))
	copy(out, t.conflicts)
	return out
}
