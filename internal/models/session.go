package models

// Session is one placed weekly class. It references roster records by ID and
// keeps its ID across relocations.
type Session struct {
	ID        string   `json:"id"`
	GroupID   string   `json:"group_id"`
	SubjectID string   `json:"subject_id"`
	TeacherID string   `json:"teacher_id"`
	Slot      TimeSlot `json:"slot"`
}
