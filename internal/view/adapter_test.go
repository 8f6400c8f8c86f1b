package view

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notegood/malla/internal/catalog"
	"github.com/notegood/malla/internal/gating"
	"github.com/notegood/malla/internal/model"
	"github.com/notegood/malla/internal/progress"
)

func testCatalog() *catalog.Catalog {
	areas := []catalog.RawRecord{
		{"codigo": "FUND", "nombre": "Fundamentos", "color": "#4F7CAC"},
		{"codigo": "MET", "nombre": "Metodología", "color": "#C89A3A"},
	}
	courses := []catalog.RawRecord{
		{"codigo": "1002", "nombre": "Historia", "area": "FUND", "semestre": 1, "creditos": 8},
		{"codigo": "1001", "nombre": "Introducción", "area": "FUND", "semestre": 1, "creditos": 10},
		{"codigo": "1010", "nombre": "Álgebra", "area": "MET", "semestre": 1, "creditos": 6},
		{"codigo": "1003", "nombre": "Estadística", "area": "MET", "semestre": 2, "creditos": 8, "previaturas": []any{"1001"}},
		{"codigo": "1005", "nombre": "Desarrollo", "area": "FUND", "semestre": 3, "creditos": 10, "previaturas": []any{"1001", "1002"}},
		{"codigo": "TALL", "nombre": "Taller", "area": "FUND", "semestre": 12, "creditos": 0},
	}
	return catalog.Build(courses, areas)
}

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	st := progress.NewStore(progress.NewFileBackend(filepath.Join(t.TempDir(), "progress.json")), nil)
	st.Load(context.Background())
	return New(testCatalog(), st, gating.Options{})
}

func ids(cards []Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Course.ID)
	}
	return out
}

var showAll = Filter{ShowLocked: true, ShowTaking: true}

func TestGridAlwaysHasNineColumns(t *testing.T) {
	a := newAdapter(t)
	cols := a.Grid(Filter{Query: "no such course"})
	require.Len(t, cols, 9)
	for i, col := range cols {
		assert.Equal(t, model.Semester(i+1), col.Semester)
		assert.Empty(t, col.Cards)
	}
	assert.Equal(t, "1º semestre", cols[0].Title)
	assert.Equal(t, "Extras / Optativas / Prácticas", cols[8].Title)
}

func TestGridSortsByAreaThenName(t *testing.T) {
	a := newAdapter(t)
	cols := a.Grid(showAll)
	assert.Equal(t, []string{"1002", "1001", "1010"}, ids(cols[0].Cards))
	assert.Equal(t, []string{"tall"}, ids(cols[8].Cards))
}

func TestGridSortsNamesInSpanishOrder(t *testing.T) {
	cat := catalog.Build([]catalog.RawRecord{
		{"codigo": "e", "nombre": "Ética profesional", "area": "FUND", "semestre": 1, "creditos": 4},
		{"codigo": "f", "nombre": "Fisiología", "area": "FUND", "semestre": 1, "creditos": 4},
		{"codigo": "b", "nombre": "biología", "area": "FUND", "semestre": 1, "creditos": 4},
		{"codigo": "t", "nombre": "Teoría", "area": "FUND", "semestre": 1, "creditos": 4},
	}, nil)
	st := progress.NewStore(progress.NewFileBackend(filepath.Join(t.TempDir(), "progress.json")), nil)
	st.Load(context.Background())
	a := New(cat, st, gating.Options{})

	assert.Equal(t, []string{"b", "e", "f", "t"}, ids(a.Grid(showAll)[0].Cards))
}

func TestGridQueryMatchesNameAreaAndID(t *testing.T) {
	a := newAdapter(t)
	count := func(q string) int {
		n := 0
		for _, col := range a.Grid(Filter{Query: q, ShowLocked: true, ShowTaking: true}) {
			n += len(col.Cards)
		}
		return n
	}
	assert.Equal(t, 1, count("HISTORIA"))
	assert.Equal(t, 2, count("metodología"))
	assert.Equal(t, 2, count("met"))
	assert.Equal(t, 1, count("1005"))
	assert.Equal(t, 6, count(""))
}

func TestGridVisibilityToggles(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)
	_, err := a.Take(ctx, "1001")
	require.NoError(t, err)

	cols := a.Grid(Filter{ShowLocked: false, ShowTaking: true})
	assert.Contains(t, ids(cols[0].Cards), "1001")
	assert.Empty(t, cols[1].Cards, "1003 is locked")
	assert.Empty(t, cols[2].Cards, "1005 is locked")

	cols = a.Grid(Filter{ShowLocked: true, ShowTaking: false})
	assert.NotContains(t, ids(cols[0].Cards), "1001")
	assert.Len(t, cols[1].Cards, 1)

	// An approved course is never hidden by the locked toggle.
	_, err = a.Approve(ctx, "1005")
	require.NoError(t, err)
	cols = a.Grid(Filter{})
	assert.Equal(t, []string{"1005"}, ids(cols[2].Cards))
}

func TestCommandsRejectUnknownCourse(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)
	for name, cmd := range map[string]func(context.Context, string) (progress.Change, error){
		"approve":         a.Approve,
		"take":            a.Take,
		"clear":           a.Clear,
		"toggle approved": a.ToggleApproved,
		"toggle taking":   a.ToggleTaking,
	} {
		_, err := cmd(ctx, "9999")
		assert.ErrorIs(t, err, ErrUnknownCourse, name)
	}
	_, err := a.Detail("9999")
	assert.ErrorIs(t, err, ErrUnknownCourse)
	_, err = a.Requirements("9999")
	assert.ErrorIs(t, err, ErrUnknownCourse)
	assert.Zero(t, a.Store().Progress().Len())
}

func TestCommandsResolveRawCodes(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)
	change, err := a.Approve(ctx, " TALL ")
	require.NoError(t, err)
	assert.Equal(t, "tall", change.ID)
	assert.True(t, a.Store().Progress().IsApproved("tall"))

	change, err = a.ToggleApproved(ctx, "tall")
	require.NoError(t, err)
	assert.Equal(t, progress.ChangeCleared, change.Kind)
}

func TestRequirementsAndDetail(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	missing, err := a.Requirements("1005")
	require.NoError(t, err)
	assert.Equal(t, []string{"Introducción", "Historia"}, missing)

	_, err = a.Approve(ctx, "1001")
	require.NoError(t, err)

	d, err := a.Detail("1005")
	require.NoError(t, err)
	assert.Equal(t, model.StatusLocked, d.Status)
	assert.Equal(t, []string{"Introducción", "Historia"}, d.Prerequisites)
	assert.Equal(t, []string{"Historia"}, d.Missing)
	assert.Equal(t, 1, d.Card.Missing)
	assert.Equal(t, "Fundamentos", d.AreaName)
	assert.Equal(t, "#4F7CAC", d.AreaColor)

	d, err = a.Detail("1001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, d.Status)
	assert.Equal(t, []string{"Estadística", "Desarrollo"}, d.Unlocks)

	missing, err = a.Requirements("1003")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestCompletionAndReport(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)
	for _, id := range []string{"1001", "1002", "tall"} {
		_, err := a.Approve(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, model.CompletionStats{Approved: 2, Total: 5, Percent: 40}, a.Completion())
	assert.Equal(t, a.Completion(), a.Report().Overall)
}

func TestImportExportReset(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)

	_, err := a.Import(ctx, []byte("not json"))
	require.ErrorIs(t, err, progress.ErrImportFormat)

	_, err = a.Import(ctx, []byte(`{"aprobadas":["1001"],"cursando":["1003"]}`))
	require.NoError(t, err)
	doc := a.Export()
	assert.Equal(t, []string{"1001"}, doc.Approved)
	assert.Equal(t, []string{"1003"}, doc.Taking)
	assert.NotNil(t, doc.When)

	change := a.Reset(ctx)
	assert.Equal(t, progress.ChangeReset, change.Kind)
	assert.Zero(t, a.Store().Progress().Len())
}

func TestReloadKeepsProgress(t *testing.T) {
	ctx := context.Background()
	a := newAdapter(t)
	_, err := a.Approve(ctx, "1001")
	require.NoError(t, err)

	smaller := catalog.Build([]catalog.RawRecord{
		{"codigo": "1003", "nombre": "Estadística", "semestre": 2, "creditos": 8, "previaturas": []any{"1001"}},
	}, nil)
	a.Reload(smaller)

	assert.Equal(t, 1, a.Catalog().Len())
	assert.True(t, a.Store().Progress().IsApproved("1001"))
	cols := a.Grid(showAll)
	require.Len(t, cols[1].Cards, 1)
	assert.Equal(t, model.StatusUnlocked, cols[1].Cards[0].Status)

	_, err = a.Approve(ctx, "1001")
	assert.ErrorIs(t, err, ErrUnknownCourse)
}
