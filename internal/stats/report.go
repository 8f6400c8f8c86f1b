// Package stats contains completion calculations and reporting.
package stats

import (
	"github.com/notegood/malla/internal/gating"
	"github.com/notegood/malla/internal/model"
)

// Row is one line of a breakdown table.
type Row struct {
	Label   string
	Courses int
	Taking  int
	Stats   model.CompletionStats
}

// Report contains precomputed data for completion rendering.
type Report struct {
	Overall   model.CompletionStats
	Courses   int
	Taking    int
	Policy    model.Policy
	Semesters []Row
	Areas     []Row
}

// BuildReport computes overall, per-semester and per-area completion. Rows
// for semesters or areas without courses are omitted.
func BuildReport(eng *gating.Engine, s gating.Standing) Report {
	cat := eng.Catalog()
	courses := cat.All()

	report := Report{
		Overall: eng.CompletionOf(courses, s),
		Courses: len(courses),
		Taking:  countTaking(courses, s),
		Policy:  eng.Policy(),
	}

	bySemester := map[model.Semester][]model.Course{}
	for _, c := range courses {
		bySemester[c.Semester] = append(bySemester[c.Semester], c)
	}
	for _, sem := range model.Semesters() {
		group := bySemester[sem]
		if len(group) == 0 {
			continue
		}
		report.Semesters = append(report.Semesters, buildRow(eng, sem.Title(), group, s))
	}

	byArea := map[string][]model.Course{}
	var order []string
	for _, a := range cat.Areas() {
		order = append(order, a.ID)
		byArea[a.ID] = nil
	}
	for _, c := range courses {
		if _, ok := byArea[c.Area]; !ok {
			order = append(order, c.Area)
		}
		byArea[c.Area] = append(byArea[c.Area], c)
	}
	for _, id := range order {
		group := byArea[id]
		if len(group) == 0 {
			continue
		}
		report.Areas = append(report.Areas, buildRow(eng, cat.AreaName(group[0]), group, s))
	}
	return report
}

func buildRow(eng *gating.Engine, label string, group []model.Course, s gating.Standing) Row {
	return Row{
		Label:   label,
		Courses: len(group),
		Taking:  countTaking(group, s),
		Stats:   eng.CompletionOf(group, s),
	}
}

func countTaking(courses []model.Course, s gating.Standing) int {
	n := 0
	for _, c := range courses {
		if s.IsTaking(c.ID) {
			n++
		}
	}
	return n
}
