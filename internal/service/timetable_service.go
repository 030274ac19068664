package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

// snapshotStore persists the live timetable. Saving an empty snapshot clears
// the stored one.
type snapshotStore interface {
	Save(ctx context.Context, snapshot models.TimetableSnapshot) error
	Load(ctx context.Context) (*models.TimetableSnapshot, error)
}

const snapshotSyncAttempts = 3

type publicationRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.PublishedTimetable) error
	InsertSessions(ctx context.Context, exec sqlx.ExtContext, sessions []models.PublishedSession) error
	List(ctx context.Context) ([]models.PublishedTimetable, error)
	FindByID(ctx context.Context, id string) (*models.PublishedTimetable, error)
	ListSessions(ctx context.Context, timetableID string) ([]models.PublishedSession, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportFile is a rendered timetable download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// TimetableServiceConfig toggles the optional persistence features.
type TimetableServiceConfig struct {
	PublishingEnabled bool
}

// TimetableService exposes the live timetable to the HTTP layer. Snapshot
// persistence is best effort; publication writes go through one transaction.
type TimetableService struct {
	timetable    *scheduler.Timetable
	snapshots    snapshotStore
	publications publicationRepository
	tx           txProvider
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	config       TimetableServiceConfig
}

// NewTimetableService wires the timetable with its collaborators. Any of
// snapshots, publications, tx and metrics may be nil.
func NewTimetableService(
	timetable *scheduler.Timetable,
	snapshots snapshotStore,
	publications publicationRepository,
	tx txProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		timetable:    timetable,
		snapshots:    snapshots,
		publications: publications,
		tx:           tx,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		config:       cfg,
	}
}

// Roster returns the reference data the timetable is built from.
func (s *TimetableService) Roster() *models.Roster {
	return s.timetable.Roster()
}

// Generate discards the live timetable and places a new one.
func (s *TimetableService) Generate(ctx context.Context) (*dto.GenerateTimetableResponse, error) {
	start := time.Now()
	result, err := s.timetable.Generate()
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Error("timetable generation aborted", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, "timetable generation failed")
	}

	s.metrics.ObserveGeneration(len(result.Sessions), len(result.Conflicts), elapsed)
	s.logger.Info("timetable generated",
		zap.Int("sessions", len(result.Sessions)),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Duration("duration", elapsed),
	)
	for _, c := range result.Conflicts {
		s.logger.Info("unmet demand", zap.String("group_id", c.GroupID), zap.String("subject_id", c.SubjectID), zap.String("reason", string(c.Reason)), zap.Int("placed", c.Placed), zap.Int("required", c.Required))
	}
	s.syncSnapshot(ctx)

	return &dto.GenerateTimetableResponse{
		Sessions:  sortSessions(result.Sessions),
		Conflicts: conflictViews(result.Conflicts),
		Stats: dto.TimetableStats{
			SessionsRequested: requestedSessions(s.timetable.Roster()),
			SessionsPlaced:    len(result.Sessions),
			ConflictCount:     len(result.Conflicts),
			DurationMillis:    elapsed.Milliseconds(),
		},
	}, nil
}

// Sessions lists live sessions ordered by group, day and hour, optionally for one group.
func (s *TimetableService) Sessions(ctx context.Context, query dto.SessionQuery) ([]models.Session, error) {
	sessions := s.timetable.Sessions()
	if query.GroupID == "" {
		return sortSessions(sessions), nil
	}
	if _, ok := s.timetable.Roster().Group(query.GroupID); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("group %s not found", query.GroupID))
	}
	filtered := make([]models.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.GroupID == query.GroupID {
			filtered = append(filtered, session)
		}
	}
	return sortSessions(filtered), nil
}

// Conflicts returns the unmet demand of the last generation run.
func (s *TimetableService) Conflicts(ctx context.Context) []dto.ConflictView {
	return conflictViews(s.timetable.Conflicts())
}

// ValidateMove dry-runs a relocation.
func (s *TimetableService) ValidateMove(ctx context.Context, req dto.MoveSessionRequest) (models.ValidationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ValidationResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	if rejected, ok, err := s.crossGroup(req); err != nil || ok {
		return rejected, err
	}
	return s.timetable.ValidateMove(req.SessionID, req.GroupID, models.TimeSlot{Day: req.Day, Hour: req.Hour})
}

// Relocate moves a session when every check passes. A refused move is a
// result with OK=false, not an error.
func (s *TimetableService) Relocate(ctx context.Context, req dto.MoveSessionRequest) (*dto.MoveSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}
	if rejected, ok, err := s.crossGroup(req); err != nil || ok {
		if err != nil {
			return nil, err
		}
		session, _ := s.timetable.Session(req.SessionID)
		s.recordRelocation(session, rejected)
		return &dto.MoveSessionResponse{Result: rejected, Session: session}, nil
	}

	target := models.TimeSlot{Day: req.Day, Hour: req.Hour}
	result, session, err := s.timetable.Relocate(req.SessionID, req.GroupID, target)
	if err != nil {
		if !errors.Is(err, appErrors.ErrSessionNotFound) {
			s.logger.Error("relocation aborted", zap.String("session_id", req.SessionID), zap.Stringer("target", target), zap.Error(err))
		}
		return nil, err
	}
	s.recordRelocation(session, result)
	if result.OK && !result.Noop {
		s.syncSnapshot(ctx)
	}
	return &dto.MoveSessionResponse{Result: result, Session: session}, nil
}

// Reset clears the live timetable and its snapshot.
func (s *TimetableService) Reset(ctx context.Context) error {
	s.timetable.Reset()
	s.metrics.ObserveTimetableSize(0, 0)
	s.syncSnapshot(ctx)
	s.logger.Info("timetable reset")
	return nil
}

// Restore reloads the live timetable from the snapshot store. It reports how
// many sessions were restored; a missing snapshot restores nothing.
func (s *TimetableService) Restore(ctx context.Context) (int, error) {
	if s.snapshots == nil {
		return 0, nil
	}
	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return 0, nil
		}
		s.metrics.RecordSnapshot("load", err)
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable snapshot")
	}
	s.metrics.RecordSnapshot("load", nil)

	if err := s.timetable.Restore(snapshot.Sessions, snapshot.Conflicts); err != nil {
		s.logger.Error("timetable snapshot rejected", zap.Error(err))
		return 0, err
	}
	s.metrics.ObserveTimetableSize(len(snapshot.Sessions), len(snapshot.Conflicts))
	s.logger.Info("timetable restored", zap.Int("sessions", len(snapshot.Sessions)), zap.Time("saved_at", snapshot.SavedAt))
	return len(snapshot.Sessions), nil
}

// Publish freezes the live timetable as a new numbered version.
func (s *TimetableService) Publish(ctx context.Context, req dto.PublishTimetableRequest) (*dto.PublishTimetableResponse, error) {
	if !s.config.PublishingEnabled || s.publications == nil {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "timetable publishing is disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid publish payload")
	}
	sessions := s.timetable.Sessions()
	conflicts := s.timetable.Conflicts()
	if len(sessions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no sessions to publish")
	}
	if len(conflicts) > 0 && !req.AllowPartial {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("timetable has %d unresolved conflicts", len(conflicts)))
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	meta, marshalErr := json.Marshal(map[string]any{
		"conflicts": conflictViews(conflicts),
		"calendar":  s.timetable.Roster().Calendar,
	})
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
		return nil, err
	}

	record := &models.PublishedTimetable{
		Label:         req.Label,
		SessionCount:  len(sessions),
		ConflictCount: len(conflicts),
		Meta:          types.JSONText(meta),
	}
	if err = s.publications.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create published timetable")
		return nil, err
	}

	rows := make([]models.PublishedSession, 0, len(sessions))
	for _, session := range sortSessions(sessions) {
		rows = append(rows, models.PublishedSession{
			TimetableID: record.ID,
			SessionID:   session.ID,
			GroupID:     session.GroupID,
			SubjectID:   session.SubjectID,
			TeacherID:   session.TeacherID,
			DayOfWeek:   session.Slot.Day,
			TimeSlot:    session.Slot.Hour,
		})
	}
	if err = s.publications.InsertSessions(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist published sessions")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable publication")
		return nil, err
	}

	s.metrics.RecordPublication()
	s.logger.Info("timetable published", zap.String("id", record.ID), zap.Int("version", record.Version), zap.Int("sessions", len(rows)))
	return &dto.PublishTimetableResponse{ID: record.ID, Version: record.Version, SessionCount: len(rows)}, nil
}

// ListPublished returns every published version, newest first.
func (s *TimetableService) ListPublished(ctx context.Context) ([]models.PublishedTimetable, error) {
	if !s.config.PublishingEnabled || s.publications == nil {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "timetable publishing is disabled")
	}
	timetables, err := s.publications.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list published timetables")
	}
	return timetables, nil
}

// PublishedSessions returns the sessions stored with one published version.
func (s *TimetableService) PublishedSessions(ctx context.Context, id string) ([]models.PublishedSession, error) {
	if !s.config.PublishingEnabled || s.publications == nil {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "timetable publishing is disabled")
	}
	if _, err := s.publications.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("published timetable %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published timetable")
	}
	sessions, err := s.publications.ListSessions(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list published sessions")
	}
	return sessions, nil
}

// Export renders the live timetable as a day by hour grid per group.
func (s *TimetableService) Export(ctx context.Context, query dto.ExportTimetableQuery) (*ExportFile, error) {
	if query.Format == "" {
		query.Format = ExportFormatCSV
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}

	roster := s.timetable.Roster()
	groups := roster.Groups
	if query.GroupID != "" {
		group, ok := roster.Group(query.GroupID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("group %s not found", query.GroupID))
		}
		groups = []models.Group{group}
	}
	grids := buildGrids(roster, groups, s.timetable.Sessions())

	name := "timetable"
	if query.GroupID != "" {
		name += "-" + query.GroupID
	}
	var (
		body []byte
		err  error
		file = &ExportFile{}
	)
	switch query.Format {
	case ExportFormatPDF:
		body, err = export.NewPDFExporter().RenderGrids(grids)
		file.Filename, file.ContentType = name+".pdf", "application/pdf"
	default:
		body, err = export.NewCSVExporter().RenderGrids(grids)
		file.Filename, file.ContentType = name+".csv", "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}
	file.Body = body
	return file, nil
}

// crossGroup reports a soft rejection when the move targets another group's row.
func (s *TimetableService) crossGroup(req dto.MoveSessionRequest) (models.ValidationResult, bool, error) {
	session, ok := s.timetable.Session(req.SessionID)
	if !ok {
		return models.ValidationResult{}, false, appErrors.Clone(appErrors.ErrSessionNotFound, fmt.Sprintf("session %s not found", req.SessionID))
	}
	if req.GroupID != "" && req.GroupID != session.GroupID {
		return models.Rejected(models.MoveCrossGroup, models.ReasonCrossGroup), true, nil
	}
	return models.ValidationResult{}, false, nil
}

func (s *TimetableService) recordRelocation(session models.Session, result models.ValidationResult) {
	s.metrics.RecordRelocation(result)
	if result.OK {
		if !result.Noop {
			s.logger.Info("session relocated", zap.String("session_id", session.ID), zap.Stringer("slot", session.Slot))
		}
		return
	}
	s.logger.Info("relocation rejected",
		zap.String("session_id", session.ID),
		zap.String("code", string(result.Code)),
		zap.String("reason", result.Reason),
		zap.String("conflicting_group_id", result.ConflictingGroupID),
	)
}

// syncSnapshot stores the live timetable. The state is read again after each
// write and rewritten if the timetable moved on in the meantime, so a write
// that raced a later change cannot be the last one to land.
func (s *TimetableService) syncSnapshot(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	for attempt := 0; attempt < snapshotSyncAttempts; attempt++ {
		snapshot := s.timetable.Snapshot()
		snapshot.SavedAt = time.Now().UTC()
		op := "save"
		if snapshot.IsEmpty() {
			op = "delete"
		}
		err := s.snapshots.Save(ctx, snapshot)
		s.metrics.RecordSnapshot(op, err)
		if err != nil {
			s.logger.Warn("failed to store timetable snapshot", zap.String("op", op), zap.Uint64("version", snapshot.Version), zap.Error(err))
			return
		}
		if s.timetable.Version() == snapshot.Version {
			return
		}
	}
	s.logger.Warn("timetable changed during every snapshot write", zap.Int("attempts", snapshotSyncAttempts))
}

func requestedSessions(roster *models.Roster) int {
	total := 0
	for _, group := range roster.Groups {
		for _, subjectID := range group.Subjects {
			if subject, ok := roster.Subject(subjectID); ok {
				total += subject.WeeklySessions
			}
		}
	}
	return total
}

func conflictViews(conflicts []models.Conflict) []dto.ConflictView {
	views := make([]dto.ConflictView, 0, len(conflicts))
	for _, c := range conflicts {
		views = append(views, dto.ConflictView{Conflict: c, Message: c.Message()})
	}
	return views
}

func sortSessions(sessions []models.Session) []models.Session {
	out := append([]models.Session(nil), sessions...)
	if out == nil {
		out = []models.Session{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.GroupID != b.GroupID {
			return a.GroupID < b.GroupID
		}
		if a.Slot.Day != b.Slot.Day {
			return a.Slot.Day < b.Slot.Day
		}
		return a.Slot.Hour < b.Slot.Hour
	})
	return out
}

func buildGrids(roster *models.Roster, groups []models.Group, sessions []models.Session) []export.Grid {
	dayCol := make(map[int]int, len(roster.Calendar.Days))
	columns := make([]string, 0, len(roster.Calendar.Days))
	for i, day := range roster.Calendar.Days {
		dayCol[day] = i
		columns = append(columns, models.DayName(day))
	}
	hourRow := make(map[int]int, len(roster.Calendar.Hours))
	labels := make([]string, 0, len(roster.Calendar.Hours))
	for i, hour := range roster.Calendar.Hours {
		hourRow[hour] = i
		labels = append(labels, strconv.Itoa(hour))
	}

	grids := make([]export.Grid, 0, len(groups))
	for _, group := range groups {
		cells := make([][]string, len(labels))
		for i := range cells {
			cells[i] = make([]string, len(columns))
		}
		for _, session := range sessions {
			if session.GroupID != group.ID {
				continue
			}
			row, okRow := hourRow[session.Slot.Hour]
			col, okCol := dayCol[session.Slot.Day]
			if !okRow || !okCol {
				continue
			}
			cells[row][col] = cellText(roster, session)
		}
		grids = append(grids, export.Grid{
			Title:     group.Name,
			Corner:    "Hour",
			Columns:   columns,
			RowLabels: labels,
			Cells:     cells,
		})
	}
	return grids
}

func cellText(roster *models.Roster, session models.Session) string {
	subject := session.SubjectID
	if s, ok := roster.Subject(session.SubjectID); ok {
		subject = s.Name
	}
	teacher := session.TeacherID
	if t, ok := roster.Teacher(session.TeacherID); ok {
		teacher = t.Name
	}
	return subject + "\n" + teacher
}
