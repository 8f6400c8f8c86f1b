package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/notegood/malla/internal/model"
)

// RawRecord is one loosely structured record as decoded from a source.
type RawRecord map[string]any

// field is an ordered list of candidate keys for one semantic field.
// The first key present with a non-empty value wins.
type field []string

var (
	idField       = field{"id"}
	codeField     = field{"codigo", "code", "cod", "clave"}
	nameField     = field{"nombre", "name", "titulo", "title"}
	semesterField = field{"semestre", "semester", "sem"}
	areaField     = field{"area", "modulo", "module", "category", "categoria"}
	areaNameField = field{"areaNombre", "area_nombre", "areaName", "area_name"}
	creditsField  = field{"creditos", "credits", "cr"}
	prereqField   = field{"previaturas", "prerequisites", "prereqs", "requisitos", "requires"}

	areaIDField    = field{"id", "codigo", "code"}
	areaLabelField = field{"nombre", "name"}
	areaColorField = field{"color", "colour"}

	courseCollections = field{"materias", "courses", "subjects", "cursos"}
	areaCollections   = field{"areas", "modulos"}
)

const (
	defaultName = "Materia"
	defaultArea = "General"
)

func (f field) lookup(rec RawRecord) (any, bool) {
	for _, key := range f {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func (f field) str(rec RawRecord) (string, bool) {
	v, ok := f.lookup(rec)
	if !ok {
		return "", false
	}
	return scalarString(v)
}

// NormalizeID turns a raw code or name into the canonical course identifier:
// lowercase, trimmed, with whitespace runs collapsed to a single hyphen.
func NormalizeID(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "-")
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	default:
		return "", false
	}
}

func parseSemester(v any, ok bool) model.Semester {
	if !ok {
		return model.SemesterExtra
	}
	var n float64
	switch t := v.(type) {
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case uint64:
		n = float64(t)
	case float64:
		n = t
	case float32:
		n = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return model.SemesterExtra
		}
		n = parsed
	default:
		return model.SemesterExtra
	}
	if n != math.Trunc(n) {
		return model.SemesterExtra
	}
	s := model.Semester(n)
	if !s.Regular() {
		return model.SemesterExtra
	}
	return s
}

func parseCredits(v any, ok bool) float64 {
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float64:
		return t
	case float32:
		return float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// parsePrerequisites accepts a list of scalars or a single string separated
// by commas or semicolons. Entries are normalized, deduplicated and stripped
// of self references; order is kept.
func parsePrerequisites(v any, ok bool, self string) []string {
	if !ok {
		return nil
	}
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := scalarString(item); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = append(raw, t...)
	case string:
		raw = strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ';' })
	default:
		if s, ok := scalarString(t); ok {
			raw = []string{s}
		}
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		id := NormalizeID(r)
		if id == "" || id == self {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
