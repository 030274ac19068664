package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetableRepository persists published timetable versions and their sessions.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a timetable header assigning the next version number.
func (r *TimetableRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.PublishedTimetable) error {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if len(timetable.Meta) == 0 {
		timetable.Meta = types.JSONText(`{}`)
	}
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = time.Now().UTC()
	}

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM published_timetables`
	if err := sqlx.GetContext(ctx, target, &timetable.Version, nextVersionQuery); err != nil {
		return fmt.Errorf("compute next timetable version: %w", err)
	}
	if timetable.Label == "" {
		timetable.Label = fmt.Sprintf("v%d", timetable.Version)
	}

	const insertQuery = `
INSERT INTO published_timetables (id, version, label, session_count, conflict_count, meta, created_at)
VALUES (:id, :version, :label, :session_count, :conflict_count, :meta, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, timetable); err != nil {
		return fmt.Errorf("insert published timetable: %w", err)
	}
	return nil
}

// InsertSessions stores the session rows of a published timetable.
func (r *TimetableRepository) InsertSessions(ctx context.Context, exec sqlx.ExtContext, sessions []models.PublishedSession) error {
	if len(sessions) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO published_timetable_sessions (id, timetable_id, session_id, group_id, subject_id, teacher_id, day_of_week, time_slot, created_at)
VALUES (:id, :timetable_id, :session_id, :group_id, :subject_id, :teacher_id, :day_of_week, :time_slot, :created_at)`

	for i := range sessions {
		session := &sessions[i]
		if session.ID == "" {
			session.ID = uuid.NewString()
		}
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, session); err != nil {
			return fmt.Errorf("insert published session: %w", err)
		}
	}
	return nil
}

// List returns every published version, newest first.
func (r *TimetableRepository) List(ctx context.Context) ([]models.PublishedTimetable, error) {
	const query = `SELECT id, version, label, session_count, conflict_count, meta, created_at
FROM published_timetables ORDER BY version DESC`
	var timetables []models.PublishedTimetable
	if err := r.db.SelectContext(ctx, &timetables, query); err != nil {
		return nil, fmt.Errorf("list published timetables: %w", err)
	}
	return timetables, nil
}

// FindByID loads a published version by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.PublishedTimetable, error) {
	const query = `SELECT id, version, label, session_count, conflict_count, meta, created_at FROM published_timetables WHERE id = $1`
	var timetable models.PublishedTimetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ListSessions returns the sessions of a published version ordered by group, day and hour.
func (r *TimetableRepository) ListSessions(ctx context.Context, timetableID string) ([]models.PublishedSession, error) {
	const query = `SELECT id, timetable_id, session_id, group_id, subject_id, teacher_id, day_of_week, time_slot, created_at
FROM published_timetable_sessions WHERE timetable_id = $1 ORDER BY group_id ASC, day_of_week ASC, time_slot ASC`
	var sessions []models.PublishedSession
	if err := r.db.SelectContext(ctx, &sessions, query, timetableID); err != nil {
		return nil, fmt.Errorf("list published sessions: %w", err)
	}
	return sessions, nil
}
