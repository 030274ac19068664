package models

// Group is a cohort of students sharing one weekly curriculum.
type Group struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Subjects []string `json:"subjects"`
}
