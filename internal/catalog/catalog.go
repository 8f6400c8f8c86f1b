// Package catalog normalizes raw course records and indexes them by id.
package catalog

import (
	"strconv"
	"strings"

	"github.com/notegood/malla/internal/model"
)

const defaultAreaColor = "#666666"

// Catalog is an immutable index of courses built once from a source.
type Catalog struct {
	courses    []model.Course
	index      map[string]int
	areas      []model.Area
	areaIndex  map[string]int
	dependents map[string][]string
}

// Build normalizes course and area records into a Catalog. It never fails:
// malformed fields fall back to defaults. When two records share an id the
// first one wins.
func Build(records []RawRecord, areas []RawRecord) *Catalog {
	c := &Catalog{
		courses:    make([]model.Course, 0, len(records)),
		index:      make(map[string]int, len(records)),
		areaIndex:  make(map[string]int, len(areas)),
		dependents: map[string][]string{},
	}
	for i, rec := range records {
		course := normalizeCourse(rec, i)
		if _, dup := c.index[course.ID]; dup {
			continue
		}
		c.index[course.ID] = len(c.courses)
		c.courses = append(c.courses, course)
	}
	for _, course := range c.courses {
		for _, req := range course.Prerequisites {
			c.dependents[req] = append(c.dependents[req], course.ID)
		}
	}
	for _, rec := range areas {
		id, ok := areaIDField.str(rec)
		if !ok {
			continue
		}
		if _, dup := c.areaIndex[id]; dup {
			continue
		}
		name, ok := areaLabelField.str(rec)
		if !ok {
			name = id
		}
		color, _ := areaColorField.str(rec)
		c.areaIndex[id] = len(c.areas)
		c.areas = append(c.areas, model.Area{ID: id, Name: name, Color: color})
	}
	return c
}

func normalizeCourse(rec RawRecord, pos int) model.Course {
	var course model.Course
	code, hasCode := codeField.str(rec)
	name, hasName := nameField.str(rec)
	if id, ok := idField.str(rec); ok {
		course.ID = NormalizeID(id)
	} else if hasCode {
		course.ID = NormalizeID(code)
	} else if hasName {
		course.ID = NormalizeID(name)
	} else {
		course.ID = "course-" + strconv.Itoa(pos+1)
	}
	course.Code = code
	course.Name = defaultName
	if hasName {
		course.Name = name
	}
	course.Area = defaultArea
	if area, ok := areaField.str(rec); ok {
		course.Area = area
	}
	course.AreaName, _ = areaNameField.str(rec)
	course.Semester = parseSemester(semesterField.lookup(rec))
	course.Credits = parseCredits(creditsField.lookup(rec))
	v, ok := prereqField.lookup(rec)
	course.Prerequisites = parsePrerequisites(v, ok, course.ID)
	return course
}

// Get returns the course for id. The id is normalized first, so raw codes
// typed by a user resolve too.
func (c *Catalog) Get(id string) (model.Course, bool) {
	i, ok := c.index[NormalizeID(id)]
	if !ok {
		return model.Course{}, false
	}
	return cloneCourse(c.courses[i]), true
}

// All returns every course in source order.
func (c *Catalog) All() []model.Course {
	out := make([]model.Course, len(c.courses))
	for i, course := range c.courses {
		out[i] = cloneCourse(course)
	}
	return out
}

// Len returns the number of courses.
func (c *Catalog) Len() int {
	return len(c.courses)
}

// Areas returns the declared areas in source order.
func (c *Catalog) Areas() []model.Area {
	out := make([]model.Area, len(c.areas))
	copy(out, c.areas)
	return out
}

// Area returns the declared area with the given id.
func (c *Catalog) Area(id string) (model.Area, bool) {
	i, ok := c.areaIndex[id]
	if !ok {
		return model.Area{}, false
	}
	return c.areas[i], true
}

// AreaName resolves the display name for a course's area.
func (c *Catalog) AreaName(course model.Course) string {
	if course.AreaName != "" {
		return course.AreaName
	}
	if a, ok := c.Area(course.Area); ok {
		return a.Name
	}
	return course.Area
}

// AreaColor returns the area's colour, or a neutral gray.
func (c *Catalog) AreaColor(area string) string {
	if a, ok := c.Area(area); ok && a.Color != "" {
		return a.Color
	}
	return defaultAreaColor
}

// Dependents lists the courses that require id, in source order.
func (c *Catalog) Dependents(id string) []string {
	deps := c.dependents[NormalizeID(id)]
	if len(deps) == 0 {
		return nil
	}
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// DisplayName returns the course name for id, or id itself when the
// catalog does not know it.
func (c *Catalog) DisplayName(id string) string {
	if course, ok := c.Get(id); ok {
		return course.Name
	}
	return id
}

// Match reports whether query is a case-insensitive substring of the
// course's name, id, code or area.
func (c *Catalog) Match(course model.Course, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, s := range []string{course.Name, course.ID, course.Code, course.Area, c.AreaName(course)} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func cloneCourse(course model.Course) model.Course {
	if course.Prerequisites != nil {
		course.Prerequisites = append([]string(nil), course.Prerequisites...)
	}
	return course
}
