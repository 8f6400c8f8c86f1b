package catalog

import (
	"fmt"
	"strings"
)

// ProblemKind classifies a catalog inconsistency.
type ProblemKind string

const (
	ProblemUnknownPrerequisite ProblemKind = "unknown-prerequisite"
	ProblemCycle               ProblemKind = "cycle"
)

// Problem is one inconsistency found by Validate.
type Problem struct {
	Kind     ProblemKind
	CourseID string
	Ref      string
	Cycle    []string
}

func (p Problem) String() string {
	switch p.Kind {
	case ProblemUnknownPrerequisite:
		return fmt.Sprintf("%s: prerequisite %q is not in the catalog", p.CourseID, p.Ref)
	case ProblemCycle:
		return fmt.Sprintf("prerequisite cycle: %s -> %s", strings.Join(p.Cycle, " -> "), p.Cycle[0])
	default:
		return string(p.Kind)
	}
}

// Validate reports prerequisites that reference unknown courses and
// prerequisite cycles. Gating assumes an acyclic catalog.
func Validate(c *Catalog) []Problem {
	var problems []Problem
	for _, course := range c.courses {
		for _, req := range course.Prerequisites {
			if _, ok := c.index[req]; !ok {
				problems = append(problems, Problem{Kind: ProblemUnknownPrerequisite, CourseID: course.ID, Ref: req})
			}
		}
	}
	return append(problems, findCycles(c)...)
}

const (
	white = iota
	gray
	black
)

func findCycles(c *Catalog) []Problem {
	color := make(map[string]int, len(c.courses))
	seen := map[string]struct{}{}
	var stack []string
	var problems []Problem

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		stack = append(stack, id)
		course := c.courses[c.index[id]]
		for _, req := range course.Prerequisites {
			if _, ok := c.index[req]; !ok {
				continue
			}
			switch color[req] {
			case white:
				visit(req)
			case gray:
				cycle := cycleFrom(stack, req)
				key := strings.Join(cycle, "\x00")
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					problems = append(problems, Problem{Kind: ProblemCycle, CourseID: cycle[0], Cycle: cycle})
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, course := range c.courses {
		if color[course.ID] == white {
			visit(course.ID)
		}
	}
	return problems
}

// cycleFrom extracts the cycle that closes at start and rotates it so the
// smallest id comes first, giving every cycle one canonical spelling.
func cycleFrom(stack []string, start string) []string {
	i := len(stack) - 1
	for i >= 0 && stack[i] != start {
		i--
	}
	cycle := append([]string(nil), stack[i:]...)
	minAt := 0
	for j, id := range cycle {
		if id < cycle[minAt] {
			minAt = j
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[minAt:]...)
	return append(out, cycle[:minAt]...)
}
