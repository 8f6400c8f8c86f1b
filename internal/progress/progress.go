// Package progress tracks approved and in-progress courses.
package progress

import (
	"sort"

	"github.com/notegood/malla/internal/catalog"
)

// Progress holds two disjoint sets of course ids. The zero value is empty
// and ready to use.
type Progress struct {
	approved map[string]struct{}
	taking   map[string]struct{}
}

// New builds a Progress from id lists. Ids are normalized; an id present in
// both lists ends up approved.
func New(approved, taking []string) Progress {
	var p Progress
	for _, id := range taking {
		p.MarkTaking(id)
	}
	for _, id := range approved {
		p.MarkApproved(id)
	}
	return p
}

func (p *Progress) init() {
	if p.approved == nil {
		p.approved = map[string]struct{}{}
	}
	if p.taking == nil {
		p.taking = map[string]struct{}{}
	}
}

// MarkApproved adds id to approved and removes it from taking.
func (p *Progress) MarkApproved(id string) {
	id = catalog.NormalizeID(id)
	if id == "" {
		return
	}
	p.init()
	p.approved[id] = struct{}{}
	delete(p.taking, id)
}

// MarkTaking adds id to taking and removes it from approved.
func (p *Progress) MarkTaking(id string) {
	id = catalog.NormalizeID(id)
	if id == "" {
		return
	}
	p.init()
	p.taking[id] = struct{}{}
	delete(p.approved, id)
}

// Clear removes id from both sets.
func (p *Progress) Clear(id string) {
	id = catalog.NormalizeID(id)
	delete(p.approved, id)
	delete(p.taking, id)
}

// ClearAll empties both sets.
func (p *Progress) ClearAll() {
	p.approved = map[string]struct{}{}
	p.taking = map[string]struct{}{}
}

// ToggleApproved approves id, or clears it when it is already approved.
func (p *Progress) ToggleApproved(id string) {
	if p.IsApproved(id) {
		p.Clear(id)
		return
	}
	p.MarkApproved(id)
}

// ToggleTaking marks id as taking, or clears it when it is already taking.
func (p *Progress) ToggleTaking(id string) {
	if p.IsTaking(id) {
		p.Clear(id)
		return
	}
	p.MarkTaking(id)
}

// IsApproved reports whether id is approved.
func (p Progress) IsApproved(id string) bool {
	_, ok := p.approved[catalog.NormalizeID(id)]
	return ok
}

// IsTaking reports whether id is in progress.
func (p Progress) IsTaking(id string) bool {
	_, ok := p.taking[catalog.NormalizeID(id)]
	return ok
}

// Approved returns the approved ids sorted.
func (p Progress) Approved() []string {
	return sortedKeys(p.approved)
}

// Taking returns the in-progress ids sorted.
func (p Progress) Taking() []string {
	return sortedKeys(p.taking)
}

// Len returns the number of tracked courses.
func (p Progress) Len() int {
	return len(p.approved) + len(p.taking)
}

// Equal reports set equality of both lists.
func (p Progress) Equal(other Progress) bool {
	return sameSet(p.approved, other.approved) && sameSet(p.taking, other.taking)
}

// Clone returns an independent copy.
func (p Progress) Clone() Progress {
	return New(p.Approved(), p.Taking())
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
