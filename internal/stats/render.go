package stats

import (
	"fmt"
	"io"
	"strconv"
)

// RenderOptions controls report output.
type RenderOptions struct {
	// Width is the total terminal width; 0 detects it from stdout.
	Width      int
	ForceColor bool
	Semesters  bool
	Areas      bool
}

// WriteReport prints the overall completion followed by the enabled
// breakdown tables.
func WriteReport(w io.Writer, r Report, opts RenderOptions) error {
	if err := RenderSummary(w, r, opts); err != nil {
		return err
	}
	if opts.Semesters {
		if err := renderRows(w, "By semester", "Semester", r.Semesters); err != nil {
			return err
		}
	}
	if opts.Areas {
		if err := renderRows(w, "By area", "Area", r.Areas); err != nil {
			return err
		}
	}
	return nil
}

// RenderSummary prints the overall completion with a bar.
func RenderSummary(w io.Writer, r Report, opts RenderOptions) error {
	if r.Courses == 0 {
		_, err := fmt.Fprintln(w, "No courses found.")
		return err
	}
	width := opts.Width
	if width <= 0 {
		width = terminalWidth()
	}
	useColor := shouldUseColor(w, opts.ForceColor)
	pct := r.Overall.Percent

	if _, err := fmt.Fprintf(w, "Completion: %d/%d approved (%d%%)\n", r.Overall.Approved, r.Overall.Total, pct); err != nil {
		return err
	}
	bar := colorize(Bar(pct, BarWidthFor(width)), pct, useColor)
	if _, err := fmt.Fprintf(w, "%s %3d%%\n", bar, pct); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Courses: %d  Taking: %d  Policy: %s\n", r.Courses, r.Taking, r.Policy); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func renderRows(w io.Writer, title, label string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	headers := []string{label, "Courses", "Taking", "Approved", "Eligible", "%"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			r.Label,
			strconv.Itoa(r.Courses),
			strconv.Itoa(r.Taking),
			strconv.Itoa(r.Stats.Approved),
			strconv.Itoa(r.Stats.Total),
			fmt.Sprintf("%d%%", r.Stats.Percent),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
