// Package model defines shared data structures.
package model

import "strconv"

// Semester is a curriculum column. Values 1..8 are regular semesters.
type Semester int

const (
	FirstSemester Semester = 1
	LastSemester  Semester = 8
	// SemesterExtra buckets electives, internships and anything without a
	// regular semester.
	SemesterExtra Semester = 9
)

// Regular reports whether the semester is within 1..8.
func (s Semester) Regular() bool {
	return s >= FirstSemester && s <= LastSemester
}

// Title is the column heading for s.
func (s Semester) Title() string {
	if !s.Regular() {
		return "Extras / Optativas / Prácticas"
	}
	return strconv.Itoa(int(s)) + "º semestre"
}

// Semesters lists every grid column in display order, extras last.
func Semesters() []Semester {
	out := make([]Semester, 0, int(SemesterExtra))
	for s := FirstSemester; s <= SemesterExtra; s++ {
		out = append(out, s)
	}
	return out
}

// Area groups courses for colour-coding.
type Area struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// Course is one normalized catalog entry.
type Course struct {
	ID            string   `json:"id"`
	Code          string   `json:"code,omitempty"`
	Name          string   `json:"name"`
	Area          string   `json:"area"`
	AreaName      string   `json:"area_name,omitempty"`
	Semester      Semester `json:"semester"`
	Credits       float64  `json:"credits,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}

// Status is the display state of a course for a given progress.
type Status string

const (
	StatusApproved Status = "approved"
	StatusTaking   Status = "taking"
	StatusUnlocked Status = "unlocked"
	StatusLocked   Status = "locked"
)

// Policy decides which progress states satisfy a prerequisite.
type Policy string

const (
	PolicyApproved         Policy = "approved"
	PolicyApprovedOrTaking Policy = "approved-or-taking"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyApproved || p == PolicyApprovedOrTaking
}

// CompletionStats summarizes approved courses among eligible ones.
type CompletionStats struct {
	Approved int `json:"approved"`
	Total    int `json:"total"`
	Percent  int `json:"percent"`
}

// Settings holds the resolved runtime options.
type Settings struct {
	CatalogPath       string
	DBPath            string
	StatePath         string
	Policy            Policy
	IncludeZeroCredit bool
	IncludeExtra      bool
	ShowLocked        bool
	ShowTaking        bool
}
