// Package gating decides which courses are unlocked for a given progress.
package gating

import (
	"math"

	"github.com/notegood/malla/internal/catalog"
	"github.com/notegood/malla/internal/model"
)

// Standing is the read side of student progress.
type Standing interface {
	IsApproved(id string) bool
	IsTaking(id string) bool
}

// Options configures an Engine.
type Options struct {
	Policy model.Policy
	// Eligible decides which courses count toward completion. Nil means
	// DefaultEligible.
	Eligible func(model.Course) bool
}

// Eligibility builds completion predicates from config toggles.
type Eligibility struct {
	IncludeZeroCredit bool
	IncludeExtra      bool
}

// Predicate returns the eligibility check for e.
func (e Eligibility) Predicate() func(model.Course) bool {
	return func(c model.Course) bool {
		if c.Credits == 0 && !e.IncludeZeroCredit {
			return false
		}
		if !c.Semester.Regular() && !e.IncludeExtra {
			return false
		}
		return true
	}
}

// DefaultEligible counts courses with credits in semesters 1..8.
func DefaultEligible(c model.Course) bool {
	return Eligibility{}.Predicate()(c)
}

// Engine answers gating queries over one catalog. It holds no progress.
type Engine struct {
	catalog  *catalog.Catalog
	policy   model.Policy
	eligible func(model.Course) bool
}

// New returns an Engine for cat. An unknown policy falls back to approved.
func New(cat *catalog.Catalog, opts Options) *Engine {
	policy := opts.Policy
	if !policy.Valid() {
		policy = model.PolicyApproved
	}
	eligible := opts.Eligible
	if eligible == nil {
		eligible = DefaultEligible
	}
	return &Engine{catalog: cat, policy: policy, eligible: eligible}
}

// Catalog returns the catalog the engine was built from.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Policy returns the active prerequisite policy.
func (e *Engine) Policy() model.Policy {
	return e.policy
}

// Eligible reports whether c counts toward completion.
func (e *Engine) Eligible(c model.Course) bool {
	return e.eligible(c)
}

func (e *Engine) satisfied(id string, s Standing) bool {
	if s.IsApproved(id) {
		return true
	}
	return e.policy == model.PolicyApprovedOrTaking && s.IsTaking(id)
}

// IsUnlocked reports whether every prerequisite of c is satisfied.
func (e *Engine) IsUnlocked(c model.Course, s Standing) bool {
	for _, id := range c.Prerequisites {
		if !e.satisfied(id, s) {
			return false
		}
	}
	return true
}

// Missing returns the unsatisfied prerequisites of c in catalog order.
func (e *Engine) Missing(c model.Course, s Standing) []string {
	var out []string
	for _, id := range c.Prerequisites {
		if !e.satisfied(id, s) {
			out = append(out, id)
		}
	}
	return out
}

// Status returns the display state of c. Approved and taking win over the
// lock state.
func (e *Engine) Status(c model.Course, s Standing) model.Status {
	switch {
	case s.IsApproved(c.ID):
		return model.StatusApproved
	case s.IsTaking(c.ID):
		return model.StatusTaking
	case e.IsUnlocked(c, s):
		return model.StatusUnlocked
	default:
		return model.StatusLocked
	}
}

// Completion counts approved courses among the eligible ones.
func (e *Engine) Completion(s Standing) model.CompletionStats {
	return e.CompletionOf(e.catalog.All(), s)
}

// CompletionOf is Completion restricted to courses.
func (e *Engine) CompletionOf(courses []model.Course, s Standing) model.CompletionStats {
	var stats model.CompletionStats
	for _, c := range courses {
		if !e.eligible(c) {
			continue
		}
		stats.Total++
		if s.IsApproved(c.ID) {
			stats.Approved++
		}
	}
	stats.Percent = Percent(stats.Approved, stats.Total)
	return stats
}

// Percent rounds approved/total to a whole percentage; 0 when total is 0.
func Percent(approved, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(approved) / float64(total) * 100))
}
