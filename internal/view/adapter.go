// Package view projects the catalog, gating engine and progress store into
// the read models a user interface draws, and exposes progress commands.
package view

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/notegood/malla/internal/catalog"
	"github.com/notegood/malla/internal/gating"
	"github.com/notegood/malla/internal/model"
	"github.com/notegood/malla/internal/progress"
	"github.com/notegood/malla/internal/stats"
)

// ErrUnknownCourse is returned by commands given an id the catalog lacks.
var ErrUnknownCourse = errors.New("unknown course")

// Filter selects which cards a grid shows.
type Filter struct {
	Query      string
	ShowLocked bool
	ShowTaking bool
}

// Card is one course as drawn in a column.
type Card struct {
	Course    model.Course
	Status    model.Status
	AreaName  string
	AreaColor string
	Missing   int
}

// Column is one semester of the grid.
type Column struct {
	Semester model.Semester
	Title    string
	Cards    []Card
}

// Detail is the expanded view of one course.
type Detail struct {
	Card
	Prerequisites []string
	Missing       []string
	Unlocks       []string
}

// Adapter owns the session: the current catalog and engine plus the
// progress store. It never mutates progress except through the store.
type Adapter struct {
	mu     sync.RWMutex
	opts   gating.Options
	engine *gating.Engine
	store  *progress.Store
}

// New returns an Adapter over cat and store.
func New(cat *catalog.Catalog, store *progress.Store, opts gating.Options) *Adapter {
	return &Adapter{
		opts:   opts,
		engine: gating.New(cat, opts),
		store:  store,
	}
}

// Engine returns the current gating engine.
func (a *Adapter) Engine() *gating.Engine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.engine
}

// Catalog returns the current catalog.
func (a *Adapter) Catalog() *catalog.Catalog {
	return a.Engine().Catalog()
}

// Store returns the progress store.
func (a *Adapter) Store() *progress.Store {
	return a.store
}

// Reload swaps in a new catalog. Progress is kept as is, including ids the
// new catalog no longer has.
func (a *Adapter) Reload(cat *catalog.Catalog) {
	eng := gating.New(cat, a.opts)
	a.mu.Lock()
	a.engine = eng
	a.mu.Unlock()
}

// Grid returns nine columns, semesters 1..8 then extras, always present.
// Cards are sorted by area then name in Spanish collation order.
func (a *Adapter) Grid(f Filter) []Column {
	eng := a.Engine()
	cat := eng.Catalog()
	p := a.store.Progress()

	cols := make([]Column, 0, len(model.Semesters()))
	index := map[model.Semester]int{}
	for _, sem := range model.Semesters() {
		index[sem] = len(cols)
		cols = append(cols, Column{Semester: sem, Title: sem.Title()})
	}

	for _, c := range cat.All() {
		if !cat.Match(c, f.Query) {
			continue
		}
		card := newCard(eng, c, p)
		if !f.ShowLocked && card.Status == model.StatusLocked {
			continue
		}
		if !f.ShowTaking && card.Status == model.StatusTaking {
			continue
		}
		i := index[c.Semester]
		cols[i].Cards = append(cols[i].Cards, card)
	}

	coll := collate.New(language.Spanish)
	for i := range cols {
		cards := cols[i].Cards
		sort.SliceStable(cards, func(x, y int) bool {
			if c := coll.CompareString(cards[x].Course.Area, cards[y].Course.Area); c != 0 {
				return c < 0
			}
			return coll.CompareString(cards[x].Course.Name, cards[y].Course.Name) < 0
		})
	}
	return cols
}

func newCard(eng *gating.Engine, c model.Course, p progress.Progress) Card {
	cat := eng.Catalog()
	return Card{
		Course:    c,
		Status:    eng.Status(c, p),
		AreaName:  cat.AreaName(c),
		AreaColor: cat.AreaColor(c.Area),
		Missing:   len(eng.Missing(c, p)),
	}
}

// Detail returns the expanded view of id.
func (a *Adapter) Detail(id string) (Detail, error) {
	eng := a.Engine()
	cat := eng.Catalog()
	c, ok := cat.Get(id)
	if !ok {
		return Detail{}, fmt.Errorf("%w: %s", ErrUnknownCourse, id)
	}
	p := a.store.Progress()
	return Detail{
		Card:          newCard(eng, c, p),
		Prerequisites: names(cat, c.Prerequisites),
		Missing:       names(cat, eng.Missing(c, p)),
		Unlocks:       names(cat, cat.Dependents(c.ID)),
	}, nil
}

// Requirements returns the display names of the prerequisites id still
// lacks. An empty result means the course has nothing pending.
func (a *Adapter) Requirements(id string) ([]string, error) {
	eng := a.Engine()
	cat := eng.Catalog()
	c, ok := cat.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCourse, id)
	}
	return names(cat, eng.Missing(c, a.store.Progress())), nil
}

func names(cat *catalog.Catalog, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = cat.DisplayName(id)
	}
	return out
}

// Completion returns the overall completion for the current progress.
func (a *Adapter) Completion() model.CompletionStats {
	return a.Engine().Completion(a.store.Progress())
}

// Report builds the completion breakdown for the current progress.
func (a *Adapter) Report() stats.Report {
	return stats.BuildReport(a.Engine(), a.store.Progress())
}

func (a *Adapter) resolve(id string) (string, error) {
	c, ok := a.Catalog().Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCourse, id)
	}
	return c.ID, nil
}

func (a *Adapter) command(id string, fn func(string) progress.Change) (progress.Change, error) {
	resolved, err := a.resolve(id)
	if err != nil {
		return progress.Change{}, err
	}
	return fn(resolved), nil
}

// Approve marks id approved.
func (a *Adapter) Approve(ctx context.Context, id string) (progress.Change, error) {
	return a.command(id, func(id string) progress.Change { return a.store.MarkApproved(ctx, id) })
}

// Take marks id as in progress.
func (a *Adapter) Take(ctx context.Context, id string) (progress.Change, error) {
	return a.command(id, func(id string) progress.Change { return a.store.MarkTaking(ctx, id) })
}

// Clear forgets any progress on id.
func (a *Adapter) Clear(ctx context.Context, id string) (progress.Change, error) {
	return a.command(id, func(id string) progress.Change { return a.store.Clear(ctx, id) })
}

// ToggleApproved flips the approved state of id.
func (a *Adapter) ToggleApproved(ctx context.Context, id string) (progress.Change, error) {
	return a.command(id, func(id string) progress.Change { return a.store.ToggleApproved(ctx, id) })
}

// ToggleTaking flips the taking state of id.
func (a *Adapter) ToggleTaking(ctx context.Context, id string) (progress.Change, error) {
	return a.command(id, func(id string) progress.Change { return a.store.ToggleTaking(ctx, id) })
}

// Reset clears all progress.
func (a *Adapter) Reset(ctx context.Context) progress.Change {
	return a.store.Reset(ctx)
}

// Import replaces progress with the document in data.
func (a *Adapter) Import(ctx context.Context, data []byte) (progress.Change, error) {
	return a.store.Import(ctx, data)
}

// Export returns the current progress document.
func (a *Adapter) Export() progress.Document {
	return a.store.Export()
}
