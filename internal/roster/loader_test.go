package roster

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func writeRoster(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const yamlRoster = `
calendar:
  days: [MONDAY, tuesday, "3"]
  hours: [1, 2, 3, 4]
subjects:
  - id: math
    name: Mathematics
    weekly_sessions: 3
  - id: art
    weekly_sessions: 1
teachers:
  - id: t1
    name: Siti
    subjects: [math]
    availability:
      monday: [1, 2]
      wednesday: [2, 2, 3]
  - id: t2
    subjects: [art]
    hours: [3, 1]
    color: "#000000"
groups:
  - id: 10A
    name: Class 10A
    subjects: [math, art]
`

func TestLoadYAMLRoster(t *testing.T) {
	path := writeRoster(t, "roster.yaml", yamlRoster)

	r, err := NewLoader(nil).Load(path)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, r.Calendar.Days)
	assert.Equal(t, []int{1, 2, 3, 4}, r.Calendar.Hours)

	math, ok := r.Subject("math")
	require.True(t, ok)
	assert.Equal(t, 3, math.WeeklySessions)
	art, _ := r.Subject("art")
	assert.Equal(t, "art", art.Name)

	t1, ok := r.Teacher("t1")
	require.True(t, ok)
	assert.Equal(t, models.Availability{1: {1, 2}, 3: {2, 3}}, t1.Availability)
	assert.NotEmpty(t, t1.Color)

	t2, _ := r.Teacher("t2")
	assert.Equal(t, models.Availability{1: {1, 3}, 2: {1, 3}, 3: {1, 3}}, t2.Availability)
	assert.Equal(t, "#000000", t2.Color)

	group, ok := r.Group("10A")
	require.True(t, ok)
	assert.Equal(t, []string{"math", "art"}, group.Subjects)
}

func TestLoadJSONRoster(t *testing.T) {
	path := writeRoster(t, "roster.json", `{
		"calendar": {"days": ["1", "2"], "hours": [1, 2]},
		"subjects": [{"id": "math", "weekly_sessions": 2}],
		"teachers": [{"id": "t1", "subjects": ["math"], "hours": [1, 2]}],
		"groups": [{"id": "A", "subjects": ["math"]}]
	}`)

	r, err := NewLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Calendar.Size())
	assert.Len(t, r.QualifiedTeachers("math"), 1)
}

func TestLoadRejectsInvalidRosters(t *testing.T) {
	cases := map[string]string{
		"zero quota": `{"calendar": {"days": ["MONDAY"], "hours": [1]},
			"subjects": [{"id": "math", "weekly_sessions": 0}],
			"groups": [{"id": "A", "subjects": ["math"]}]}`,
		"unknown day": `{"calendar": {"days": ["FUNDAY"], "hours": [1]},
			"subjects": [{"id": "math", "weekly_sessions": 1}],
			"groups": [{"id": "A", "subjects": ["math"]}]}`,
		"dangling teacher subject": `{"calendar": {"days": ["MONDAY"], "hours": [1]},
			"subjects": [{"id": "math", "weekly_sessions": 1}],
			"teachers": [{"id": "t1", "subjects": ["music"], "hours": [1]}],
			"groups": [{"id": "A", "subjects": ["math"]}]}`,
		"duplicate curriculum": `{"calendar": {"days": ["MONDAY"], "hours": [1]},
			"subjects": [{"id": "math", "weekly_sessions": 1}],
			"groups": [{"id": "A", "subjects": ["math", "math"]}]}`,
		"duplicate group": `{"calendar": {"days": ["MONDAY"], "hours": [1]},
			"subjects": [{"id": "math", "weekly_sessions": 1}],
			"groups": [{"id": "A", "subjects": ["math"]}, {"id": "A", "subjects": ["math"]}]}`,
		"no groups": `{"calendar": {"days": ["MONDAY"], "hours": [1]},
			"subjects": [{"id": "math", "weekly_sessions": 1}]}`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeRoster(t, "roster.json", content)
			_, err := NewLoader(nil).Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(nil).Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEmptyPathServesDefaultRoster(t *testing.T) {
	r, err := NewLoader(nil).Load("")
	require.NoError(t, err)

	assert.Len(t, r.Subjects, 6)
	assert.Len(t, r.Teachers, 4)
	assert.Len(t, r.Groups, 2)
	assert.Equal(t, 40, r.Calendar.Size())

	for _, teacher := range r.Teachers {
		assert.NotEmpty(t, teacher.Color)
		for _, subjectID := range teacher.Subjects {
			_, ok := r.Subject(subjectID)
			assert.True(t, ok, "teacher %s references %s", teacher.ID, subjectID)
		}
	}
	assert.Len(t, r.QualifiedTeachers("MAT001"), 2)
	assert.Len(t, r.QualifiedTeachers("FIS001"), 2)
}
