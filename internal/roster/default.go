package roster

import "github.com/noah-isme/sma-timetable-api/internal/models"

// Default returns the sample roster served when no roster file is configured:
// six subjects, four teachers and two groups on a Monday-Friday, eight-period week.
func Default() *models.Roster {
	calendar := models.NewCalendar([]int{1, 2, 3, 4, 5}, []int{1, 2, 3, 4, 5, 6, 7, 8})

	subjects := []models.Subject{
		{ID: "MAT001", Name: "Mathematics", WeeklySessions: 4},
		{ID: "FIS001", Name: "Physics", WeeklySessions: 3},
		{ID: "PROG001", Name: "Programming", WeeklySessions: 4},
		{ID: "HIST001", Name: "History", WeeklySessions: 2},
		{ID: "ING001", Name: "English", WeeklySessions: 3},
		{ID: "QUIM001", Name: "Chemistry", WeeklySessions: 3},
	}

	teachers := []models.Teacher{
		{
			ID:       "DOC001",
			Name:     "Juan Perez",
			Subjects: []string{"MAT001", "FIS001"},
			Availability: models.Availability{
				1: {1, 2, 3, 4},
				2: {1, 2, 3},
				3: {1, 2, 3, 4, 5},
				4: {2, 3, 4},
				5: {1, 2, 3},
			},
		},
		{
			ID:       "DOC002",
			Name:     "Maria Garcia",
			Subjects: []string{"PROG001", "MAT001"},
			Availability: models.Availability{
				1: {3, 4, 5, 6},
				2: {2, 3, 4, 5},
				3: {3, 4, 5},
				4: {1, 2, 3, 4},
				5: {2, 3, 4, 5},
			},
		},
		{
			ID:       "DOC003",
			Name:     "Carlos Lopez",
			Subjects: []string{"HIST001", "ING001"},
			Availability: models.Availability{
				1: {2, 3, 4, 5},
				2: {1, 2, 3, 4},
				3: {2, 3, 4},
				4: {1, 2, 3},
				5: {1, 2, 3, 4},
			},
		},
		{
			ID:       "DOC004",
			Name:     "Ana Martinez",
			Subjects: []string{"QUIM001", "FIS001"},
			Availability: models.Availability{
				1: {1, 2, 3},
				2: {3, 4, 5, 6},
				3: {1, 2, 3, 4},
				4: {2, 3, 4, 5},
				5: {1, 2, 3},
			},
		},
	}
	assignColors(teachers)

	groups := []models.Group{
		{ID: "GRP001", Name: "Group A", Subjects: []string{"MAT001", "FIS001", "PROG001", "ING001"}},
		{ID: "GRP002", Name: "Group B", Subjects: []string{"MAT001", "QUIM001", "HIST001", "PROG001"}},
	}

	return models.NewRoster(calendar, subjects, teachers, groups)
}
