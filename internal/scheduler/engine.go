package scheduler

import (
	"github.com/google/uuid"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Result is the outcome of a generation run.
type Result struct {
	Sessions  []models.Session
	Conflicts []models.Conflict
}

// Engine performs greedy randomized placement of weekly sessions.
type Engine struct {
	rng   RandomSource
	newID func() string
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithRandomSource injects the shuffling source, e.g. a seeded *rand.Rand in tests.
func WithRandomSource(rng RandomSource) EngineOption {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithIDGenerator overrides how session IDs are minted.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine builds an engine with a clock-seeded source and UUID session IDs.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRandomSource(0)
	}
	return e
}

type task struct {
	group     models.Group
	subjectID string
}

// Assign places sessions for every (group, subject) curriculum pair into
// index. Unsatisfiable demand is reported as conflicts; an error is only
// returned when the index refuses a reservation it reported as free.
func (e *Engine) Assign(roster *models.Roster, index *OccupancyIndex) (Result, error) {
	tasks := expandTasks(roster.Groups)
	shuffle(e.rng, tasks)

	result := Result{
		Sessions:  make([]models.Session, 0),
		Conflicts: make([]models.Conflict, 0),
	}
	for _, t := range tasks {
		subject, ok := roster.Subject(t.subjectID)
		if !ok {
			// No quota to report: the subject is missing from the roster.
			result.Conflicts = append(result.Conflicts, models.Conflict{
				GroupID:   t.group.ID,
				SubjectID: t.subjectID,
				Reason:    models.ConflictUnknownSubject,
			})
			continue
		}

		candidates := roster.QualifiedTeachers(subject.ID)
		if len(candidates) == 0 {
			result.Conflicts = append(result.Conflicts, models.Conflict{
				GroupID:   t.group.ID,
				SubjectID: subject.ID,
				Reason:    models.ConflictNoQualifiedTeacher,
				Required:  subject.WeeklySessions,
			})
			continue
		}

		sessions, err := e.fill(roster.Calendar, index, t.group, subject, candidates)
		result.Sessions = append(result.Sessions, sessions...)
		if err != nil {
			return result, err
		}
		if len(sessions) < subject.WeeklySessions {
			result.Conflicts = append(result.Conflicts, models.Conflict{
				GroupID:   t.group.ID,
				SubjectID: subject.ID,
				Reason:    models.ConflictInsufficientSlots,
				Placed:    len(sessions),
				Required:  subject.WeeklySessions,
			})
		}
	}
	return result, nil
}

// fill scans candidates in random order, each with freshly shuffled days and
// hours, reserving every feasible slot until the subject quota is reached.
func (e *Engine) fill(calendar models.Calendar, index *OccupancyIndex, group models.Group, subject models.Subject, candidates []models.Teacher) ([]models.Session, error) {
	quota := subject.WeeklySessions
	placed := make([]models.Session, 0, quota)
	shuffle(e.rng, candidates)

	for _, teacher := range candidates {
		if len(placed) >= quota {
			break
		}
		days := append([]int(nil), calendar.Days...)
		shuffle(e.rng, days)
		hours := append([]int(nil), calendar.Hours...)
		shuffle(e.rng, hours)

	scan:
		for _, day := range days {
			for _, hour := range hours {
				if len(placed) >= quota {
					break scan
				}
				slot := models.TimeSlot{Day: day, Hour: hour}
				if !models.IsAvailable(teacher, slot) {
					continue
				}
				if !index.IsTeacherFree(teacher.ID, slot) || !index.IsGroupFree(group.ID, slot) {
					continue
				}
				session := models.Session{
					ID:        e.newID(),
					GroupID:   group.ID,
					SubjectID: subject.ID,
					TeacherID: teacher.ID,
					Slot:      slot,
				}
				if err := index.Reserve(session); err != nil {
					return placed, err
				}
				placed = append(placed, session)
			}
		}
	}
	return placed, nil
}

func expandTasks(groups []models.Group) []task {
	var tasks []task
	for _, g := range groups {
		for _, subjectID := range g.Subjects {
			tasks = append(tasks, task{group: g, subjectID: subjectID})
		}
	}
	return tasks
}
