package models

// MoveRejection is the machine-readable code of a refused relocation.
type MoveRejection string

const (
	MoveOutsideCalendar    MoveRejection = "OUTSIDE_CALENDAR"
	MoveTeacherUnavailable MoveRejection = "TEACHER_UNAVAILABLE"
	MoveTeacherBusy        MoveRejection = "TEACHER_BUSY"
	MoveGroupBusy          MoveRejection = "GROUP_BUSY"
	MoveCrossGroup         MoveRejection = "CROSS_GROUP"
)

// Human-readable rejection reasons.
const (
	ReasonOutsideCalendar    = "target slot is outside the calendar"
	ReasonTeacherUnavailable = "teacher unavailable at target time"
	ReasonTeacherBusy        = "teacher already committed elsewhere at target time"
	ReasonGroupBusy          = "group already has a session at target time"
	ReasonCrossGroup         = "session cannot be moved to another group"
)

// ValidationResult is the outcome of checking a relocation request.
type ValidationResult struct {
	OK                   bool          `json:"ok"`
	Noop                 bool          `json:"noop,omitempty"`
	Code                 MoveRejection `json:"code,omitempty"`
	Reason               string        `json:"reason,omitempty"`
	ConflictingSessionID string        `json:"conflicting_session_id,omitempty"`
	ConflictingGroupID   string        `json:"conflicting_group_id,omitempty"`
	ConflictingSubjectID string        `json:"conflicting_subject_id,omitempty"`
}

// Accepted builds a successful result.
func Accepted() ValidationResult {
	return ValidationResult{OK: true}
}

// Rejected builds a failed result.
func Rejected(code MoveRejection, reason string) ValidationResult {
	return ValidationResult{Code: code, Reason: reason}
}
