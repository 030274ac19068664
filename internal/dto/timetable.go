package dto

import "github.com/noah-isme/sma-timetable-api/internal/models"

// TimetableStats summarises a generation run.
type TimetableStats struct {
	SessionsRequested int   `json:"sessionsRequested"`
	SessionsPlaced    int   `json:"sessionsPlaced"`
	ConflictCount     int   `json:"conflictCount"`
	DurationMillis    int64 `json:"durationMs"`
}

// ConflictView is a conflict record enriched with a readable message.
type ConflictView struct {
	models.Conflict
	Message string `json:"message"`
}

// GenerateTimetableResponse returns the freshly placed sessions and unmet demand.
type GenerateTimetableResponse struct {
	Sessions  []models.Session `json:"sessions"`
	Conflicts []ConflictView   `json:"conflicts"`
	Stats     TimetableStats   `json:"stats"`
}

// SessionQuery narrows the session listing to one group.
type SessionQuery struct {
	GroupID string `form:"groupId" json:"groupId"`
}

// MoveSessionRequest asks for a session to be moved to another slot.
// GroupID is the destination row; empty means the session's own group.
type MoveSessionRequest struct {
	SessionID string `json:"-" validate:"required"`
	GroupID   string `json:"groupId"`
	Day       int    `json:"day" validate:"required,min=1,max=7"`
	Hour      int    `json:"hour" validate:"required,min=1"`
}

// MoveSessionResponse carries the validation outcome and the session as it stands.
type MoveSessionResponse struct {
	Result  models.ValidationResult `json:"result"`
	Session models.Session          `json:"session"`
}

// PublishTimetableRequest freezes the live timetable as a new version.
type PublishTimetableRequest struct {
	Label        string `json:"label" validate:"omitempty,max=120"`
	AllowPartial bool   `json:"allowPartial"`
}

// PublishTimetableResponse identifies the stored version.
type PublishTimetableResponse struct {
	ID           string `json:"id"`
	Version      int    `json:"version"`
	SessionCount int    `json:"sessionCount"`
}

// ExportTimetableQuery selects the export format and optional group.
type ExportTimetableQuery struct {
	Format  string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
	GroupID string `form:"groupId" json:"groupId"`
}
