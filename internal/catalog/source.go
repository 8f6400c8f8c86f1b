package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrFormat reports a catalog source whose top level is not a recognizable
// course collection.
var ErrFormat = errors.New("unrecognized catalog format")

// Format selects the decoder for a catalog source.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks a format from a path or URL extension. JSON is the default.
func FormatFor(location string) Format {
	loc := location
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		loc = loc[:i]
	}
	switch strings.ToLower(filepath.Ext(loc)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads a catalog from a local path or an http(s) URL.
func Load(ctx context.Context, location string) (*Catalog, error) {
	data, err := fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	cat, err := Parse(data, FormatFor(location))
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", location, err)
	}
	return cat, nil
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func fetch(ctx context.Context, location string) ([]byte, error) {
	if !IsRemote(location) {
		return os.ReadFile(location)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Parse decodes a catalog document. The top level is either an object with
// a course collection (and optionally areas) or a bare array of courses.
func Parse(data []byte, format Format) (*Catalog, error) {
	var top any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &top); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	default:
		if err := json.Unmarshal(data, &top); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	}
	courses, areas, err := split(top)
	if err != nil {
		return nil, err
	}
	return Build(courses, areas), nil
}

func split(top any) (courses, areas []RawRecord, err error) {
	switch t := top.(type) {
	case []any:
		return records(t), nil, nil
	case map[string]any:
		doc := RawRecord(t)
		v, ok := courseCollections.lookup(doc)
		if !ok {
			return nil, nil, fmt.Errorf("%w: no course collection (expected one of %s)", ErrFormat, strings.Join(courseCollections, ", "))
		}
		items, isList := v.([]any)
		if !isList {
			return nil, nil, fmt.Errorf("%w: course collection is not a list", ErrFormat)
		}
		courses = records(items)
		if v, ok := areaCollections.lookup(doc); ok {
			if list, isList := v.([]any); isList {
				areas = records(list)
			}
		}
		return courses, areas, nil
	default:
		return nil, nil, fmt.Errorf("%w: top level must be an object or a list", ErrFormat)
	}
}

func records(items []any) []RawRecord {
	out := make([]RawRecord, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, RawRecord(m))
		}
	}
	return out
}
