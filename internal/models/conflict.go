package models

import "fmt"

// ConflictReason classifies unmet demand reported by a generation run.
type ConflictReason string

const (
	ConflictNoQualifiedTeacher ConflictReason = "no qualified teacher"
	ConflictInsufficientSlots  ConflictReason = "insufficient free slots"
	ConflictUnknownSubject     ConflictReason = "unknown subject"
)

// Conflict reports a (group, subject) pair whose weekly quota was not met.
// Required is zero, and omitted, when the subject is unknown.
type Conflict struct {
	GroupID   string         `json:"group_id"`
	SubjectID string         `json:"subject_id"`
	Reason    ConflictReason `json:"reason"`
	Placed    int            `json:"placed"`
	Required  int            `json:"required,omitempty"`
}

// Missing returns how many sessions are still owed.
func (c Conflict) Missing() int {
	if c.Required <= c.Placed {
		return 0
	}
	return c.Required - c.Placed
}

// Message renders a one-line description for notification surfaces.
func (c Conflict) Message() string {
	switch c.Reason {
	case ConflictInsufficientSlots:
		return fmt.Sprintf("%s - %s: only %d of %d sessions placed", c.GroupID, c.SubjectID, c.Placed, c.Required)
	default:
		return fmt.Sprintf("%s - %s: %s", c.GroupID, c.SubjectID, c.Reason)
	}
}
