package roster

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type document struct {
	Calendar calendarDoc  `mapstructure:"calendar"`
	Subjects []subjectDoc `mapstructure:"subjects" validate:"required,min=1,dive"`
	Teachers []teacherDoc `mapstructure:"teachers" validate:"dive"`
	Groups   []groupDoc   `mapstructure:"groups" validate:"required,min=1,dive"`
}

type calendarDoc struct {
	Days  []string `mapstructure:"days" validate:"required,min=1,dive,required"`
	Hours []int    `mapstructure:"hours" validate:"required,min=1,dive,min=1"`
}

type subjectDoc struct {
	ID             string `mapstructure:"id" validate:"required"`
	Name           string `mapstructure:"name"`
	WeeklySessions int    `mapstructure:"weekly_sessions" validate:"gt=0"`
}

type teacherDoc struct {
	ID           string           `mapstructure:"id" validate:"required"`
	Name         string           `mapstructure:"name"`
	Subjects     []string         `mapstructure:"subjects" validate:"required,min=1,dive,required"`
	Availability map[string][]int `mapstructure:"availability"`
	Hours        []int            `mapstructure:"hours" validate:"dive,min=1"`
	Color        string           `mapstructure:"color"`
}

type groupDoc struct {
	ID       string   `mapstructure:"id" validate:"required"`
	Name     string   `mapstructure:"name"`
	Subjects []string `mapstructure:"subjects" validate:"required,min=1,dive,required"`
}

// Loader reads roster files.
type Loader struct {
	validator *validator.Validate
}

// NewLoader builds a Loader; a nil validator falls back to a fresh instance.
func NewLoader(validate *validator.Validate) *Loader {
	if validate == nil {
		validate = validator.New()
	}
	return &Loader{validator: validate}
}

// Load reads the roster at path. An empty path yields the built-in roster.
// The format follows the file extension (yaml, yml or json).
func (l *Loader) Load(path string) (*models.Roster, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("failed to read roster %s", path))
	}

	var doc document
	if err := v.Unmarshal(&doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to decode roster")
	}
	return l.build(doc)
}

func (l *Loader) build(doc document) (*models.Roster, error) {
	if err := l.validator.Struct(doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster")
	}

	days := make([]int, 0, len(doc.Calendar.Days))
	for _, raw := range doc.Calendar.Days {
		day, err := parseDay(raw)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	calendar := models.NewCalendar(days, doc.Calendar.Hours)
	if calendar.Size() == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "calendar must contain at least one slot")
	}

	subjects := make([]models.Subject, 0, len(doc.Subjects))
	subjectIDs := make(map[string]struct{}, len(doc.Subjects))
	for _, s := range doc.Subjects {
		if _, dup := subjectIDs[s.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate subject id %s", s.ID))
		}
		subjectIDs[s.ID] = struct{}{}
		subjects = append(subjects, models.Subject{ID: s.ID, Name: displayName(s.Name, s.ID), WeeklySessions: s.WeeklySessions})
	}

	teachers := make([]models.Teacher, 0, len(doc.Teachers))
	teacherIDs := make(map[string]struct{}, len(doc.Teachers))
	for _, t := range doc.Teachers {
		if _, dup := teacherIDs[t.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate teacher id %s", t.ID))
		}
		teacherIDs[t.ID] = struct{}{}
		for _, subjectID := range t.Subjects {
			if _, ok := subjectIDs[subjectID]; !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s references unknown subject %s", t.ID, subjectID))
			}
		}
		availability, err := buildAvailability(t, calendar)
		if err != nil {
			return nil, err
		}
		teachers = append(teachers, models.Teacher{
			ID:           t.ID,
			Name:         displayName(t.Name, t.ID),
			Subjects:     append([]string(nil), t.Subjects...),
			Availability: availability,
			Color:        t.Color,
		})
	}
	assignColors(teachers)

	groups := make([]models.Group, 0, len(doc.Groups))
	groupIDs := make(map[string]struct{}, len(doc.Groups))
	for _, g := range doc.Groups {
		if _, dup := groupIDs[g.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate group id %s", g.ID))
		}
		groupIDs[g.ID] = struct{}{}
		seen := make(map[string]struct{}, len(g.Subjects))
		for _, subjectID := range g.Subjects {
			if _, dup := seen[subjectID]; dup {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("group %s lists subject %s more than once", g.ID, subjectID))
			}
			seen[subjectID] = struct{}{}
		}
		groups = append(groups, models.Group{ID: g.ID, Name: displayName(g.Name, g.ID), Subjects: append([]string(nil), g.Subjects...)})
	}

	return models.NewRoster(calendar, subjects, teachers, groups), nil
}

// buildAvailability resolves day keys and, when no per-day map is given,
// expands the day-independent hours list to every calendar day.
func buildAvailability(t teacherDoc, calendar models.Calendar) (models.Availability, error) {
	availability := models.Availability{}
	if len(t.Availability) == 0 {
		if len(t.Hours) == 0 {
			return availability, nil
		}
		hours := sortedUnique(t.Hours)
		for _, day := range calendar.Days {
			availability[day] = append([]int(nil), hours...)
		}
		return availability, nil
	}

	for key, hours := range t.Availability {
		day, err := parseDay(key)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s: %s", t.ID, err.Error()))
		}
		for _, h := range hours {
			if h < 1 {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s: hour %d must be positive", t.ID, h))
			}
		}
		availability[day] = sortedUnique(append(availability[day], hours...))
	}
	return availability, nil
}

func parseDay(raw string) (int, error) {
	if day := models.DayIndex(raw); day > 0 {
		return day, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n >= 1 && n <= 7 {
		return n, nil
	}
	return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", raw))
}

var teacherPalette = []string{"#3498db", "#2ecc71", "#e74c3c", "#f39c12", "#9b59b6", "#1abc9c"}

func assignColors(teachers []models.Teacher) {
	for i := range teachers {
		if teachers[i].Color == "" {
			teachers[i].Color = teacherPalette[i%len(teacherPalette)]
		}
	}
}

func displayName(name, fallback string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fallback
}

func sortedUnique(values []int) []int {
	set := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
