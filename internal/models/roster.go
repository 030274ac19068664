package models

// Roster is the read-only reference data a timetable is built from.
type Roster struct {
	Calendar Calendar  `json:"calendar"`
	Subjects []Subject `json:"subjects"`
	Teachers []Teacher `json:"teachers"`
	Groups   []Group   `json:"groups"`

	subjects map[string]int
	teachers map[string]int
	groups   map[string]int
}

// NewRoster indexes the reference data for constant-time lookups.
func NewRoster(calendar Calendar, subjects []Subject, teachers []Teacher, groups []Group) *Roster {
	r := &Roster{
		Calendar: calendar,
		Subjects: subjects,
		Teachers: teachers,
		Groups:   groups,
		subjects: make(map[string]int, len(subjects)),
		teachers: make(map[string]int, len(teachers)),
		groups:   make(map[string]int, len(groups)),
	}
	for i, s := range subjects {
		r.subjects[s.ID] = i
	}
	for i, t := range teachers {
		r.teachers[t.ID] = i
	}
	for i, g := range groups {
		r.groups[g.ID] = i
	}
	return r
}

// Subject looks up a subject by ID.
func (r *Roster) Subject(id string) (Subject, bool) {
	idx, ok := r.subjects[id]
	if !ok {
		return Subject{}, false
	}
	return r.Subjects[idx], true
}

// Teacher looks up a teacher by ID.
func (r *Roster) Teacher(id string) (Teacher, bool) {
	idx, ok := r.teachers[id]
	if !ok {
		return Teacher{}, false
	}
	return r.Teachers[idx], true
}

// Group looks up a group by ID.
func (r *Roster) Group(id string) (Group, bool) {
	idx, ok := r.groups[id]
	if !ok {
		return Group{}, false
	}
	return r.Groups[idx], true
}

// QualifiedTeachers returns the teachers able to teach subjectID, in roster order.
func (r *Roster) QualifiedTeachers(subjectID string) []Teacher {
	var result []Teacher
	for _, t := range r.Teachers {
		if IsQualified(t, subjectID) {
			result = append(result, t)
		}
	}
	return result
}
