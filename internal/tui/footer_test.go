package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notegood/malla/internal/catalog"
	"github.com/notegood/malla/internal/gating"
	"github.com/notegood/malla/internal/model"
	"github.com/notegood/malla/internal/progress"
	"github.com/notegood/malla/internal/view"
)

func testCatalog() *catalog.Catalog {
	areas := []catalog.RawRecord{{"codigo": "FUND", "nombre": "Fundamentos", "color": "#4F7CAC"}}
	courses := []catalog.RawRecord{
		{"codigo": "1001", "nombre": "Introducción a la Psicología", "area": "FUND", "semestre": 1, "creditos": 10},
		{"codigo": "1002", "nombre": "Historia de la Psicología", "area": "FUND", "semestre": 1, "creditos": 8},
		{"codigo": "1003", "nombre": "Estadística I", "area": "FUND", "semestre": 2, "creditos": 8, "previaturas": []any{"1001"}},
		{"codigo": "1004", "nombre": "Estadística II", "area": "FUND", "semestre": 3, "creditos": 8, "previaturas": []any{"1003"}},
	}
	return catalog.Build(courses, areas)
}

type failingBackend struct{}

func (failingBackend) LoadProgress(context.Context) (*progress.Document, error) { return nil, nil }
func (failingBackend) SaveProgress(context.Context, progress.Document) error {
	return errors.New("disk full")
}
func (failingBackend) DeleteProgress(context.Context) error { return errors.New("disk full") }

func newTestModel(t *testing.T, backend progress.Backend) *Model {
	t.Helper()
	if backend == nil {
		backend = progress.NewFileBackend(filepath.Join(t.TempDir(), "progress.json"))
	}
	st := progress.NewStore(backend, nil)
	st.Load(context.Background())
	adapter := view.New(testCatalog(), st, gating.Options{})
	m := NewModel(adapter, Options{Filter: view.Filter{ShowLocked: true, ShowTaking: true}})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *Model, keys ...string) {
	for _, k := range keys {
		m.Update(key(k))
	}
}

func TestRenderFooterFormats(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, "a")

	out := m.renderFooter()
	for _, want := range []string{"Approved 1/4 (25%)", "policy approved", "locked on", "taking on", "Historia de la Psicología approved"} {
		assert.Contains(t, out, want)
	}

	m.Update(toastExpiredMsg{seq: m.toastSeq})
	assert.Contains(t, m.renderFooter(), "q quit")
}

func TestStaleToastExpiryIsIgnored(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, "a")
	first := m.toastSeq
	press(m, "a")
	m.Update(toastExpiredMsg{seq: first})
	assert.NotEmpty(t, m.toast)
}

func TestGridKeysDriveProgress(t *testing.T) {
	m := newTestModel(t, nil)
	st := m.adapter.Store()

	require.Equal(t, "1002", m.selectedID(), "cards sort by area then name")
	press(m, "down")
	require.Equal(t, "1001", m.selectedID())

	press(m, "a")
	assert.True(t, st.Progress().IsApproved("1001"))
	press(m, "t")
	assert.True(t, st.Progress().IsTaking("1001"))
	assert.False(t, st.Progress().IsApproved("1001"))
	press(m, "x")
	assert.Zero(t, st.Progress().Len())

	press(m, "right")
	require.Equal(t, "1003", m.selectedID())
	assert.Equal(t, model.StatusLocked, m.currentCards()[0].Status)
}

func TestHideLockedKeepsGridConsistent(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, "L")
	assert.False(t, m.filter.ShowLocked)
	for _, col := range m.columns {
		for _, card := range col.Cards {
			assert.NotEqual(t, model.StatusLocked, card.Status)
		}
	}
	press(m, "right")
	_, ok := m.selected()
	assert.False(t, ok, "second semester only has a locked course")
	press(m, "a")
	assert.Zero(t, m.adapter.Store().Progress().Len())
}

func TestSearchFiltersLive(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, "/")
	require.Equal(t, modeSearch, m.mode)
	press(m, "e", "s", "t")
	assert.Equal(t, "est", m.filter.Query)
	total := 0
	for _, col := range m.columns {
		total += len(col.Cards)
	}
	assert.Equal(t, 2, total)

	press(m, "esc")
	assert.Equal(t, modeGrid, m.mode)
	assert.Empty(t, m.filter.Query)
}

func TestResetNeedsConfirmation(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, "a", "R")
	require.Equal(t, modeConfirmReset, m.mode)
	press(m, "n")
	assert.Equal(t, 1, m.adapter.Store().Progress().Len())

	press(m, "R", "y")
	assert.Zero(t, m.adapter.Store().Progress().Len())
	assert.Equal(t, "Progress reset.", m.toast)
}

func TestPersistFailureIsReported(t *testing.T) {
	m := newTestModel(t, failingBackend{})
	press(m, "a")
	assert.True(t, m.adapter.Store().Progress().IsApproved("1002"))
	assert.Contains(t, m.toast, "Could not save progress")
}

func TestDetailAndRequirements(t *testing.T) {
	m := newTestModel(t, nil)
	press(m, "right", "r")
	assert.Equal(t, "Missing: Introducción a la Psicología", m.toast)

	press(m, "enter")
	require.Equal(t, modeDetail, m.mode)
	out := m.View()
	assert.Contains(t, out, "Estadística I")
	assert.Contains(t, out, "Unlocks")
	press(m, "esc")
	assert.Equal(t, modeGrid, m.mode)
}

func TestCatalogReload(t *testing.T) {
	m := newTestModel(t, nil)
	m.reload = func(context.Context) (*catalog.Catalog, error) {
		return catalog.Build([]catalog.RawRecord{{"codigo": "9001", "nombre": "Nueva", "semestre": 1, "creditos": 4}}, nil), nil
	}
	m.Update(CatalogChangedMsg{})
	assert.Equal(t, 1, m.adapter.Catalog().Len())
	assert.Equal(t, "9001", m.selectedID())
	assert.Contains(t, m.toast, "Catalog reloaded")

	m.reload = func(context.Context) (*catalog.Catalog, error) {
		return nil, catalog.ErrFormat
	}
	m.Update(CatalogChangedMsg{})
	assert.Equal(t, 1, m.adapter.Catalog().Len())
	assert.Contains(t, m.toast, "unrecognized format")
}

func TestViewRendersColumnsAndLegend(t *testing.T) {
	m := newTestModel(t, nil)
	out := m.View()
	assert.Contains(t, out, "Fundamentos")
	assert.Contains(t, out, "1º semestre (2)")
	assert.Contains(t, out, "Approved 0/4 (0%)")
	assert.LessOrEqual(t, len(strings.Split(out, "\n")), 30)
}

func TestWatcherSignalsCatalogWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	got := make(chan tea.Msg, 4)
	stop, err := StartWatcher(path, func(msg tea.Msg) { got <- msg }, nil)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`[]`), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`[{"codigo":"1"}]`), 0o644))

	select {
	case msg := <-got:
		assert.IsType(t, CatalogChangedMsg{}, msg)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a catalog change notification")
	}
}
