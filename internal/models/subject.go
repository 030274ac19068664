package models

// Subject is a course taught a fixed number of times per week.
type Subject struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	WeeklySessions int    `json:"weekly_sessions"`
}
