package settings

import (
	"fmt"
	"strings"
)

// Separator splits sections from keys in a settings path.
const Separator = "/"

// Dict is the nested, declarative form of a settings tree:
// section name -> key -> value, where a value may itself be a Dict.
type Dict map[string]any

// Put stores v under a "section/key" path, creating intermediate sections.
func (d Dict) Put(path string, v any) error {
	parts := strings.Split(path, Separator)
	cur := d
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("invalid settings path %q: empty segment", path)
		}
		if i == len(parts)-1 {
			cur[part] = v
			return nil
		}
		next, ok := cur[part]
		if !ok {
			child := Dict{}
			cur[part] = child
			cur = child
			continue
		}
		child, ok := asDict(next)
		if !ok {
			return fmt.Errorf("invalid settings path %q: %q is a value, not a section", path, part)
		}
		cur = child
	}
	return nil
}

// Flatten returns the dictionary as path -> value pairs.
func (d Dict) Flatten() (map[string]any, error) {
	out := make(map[string]any)
	if err := flatten(d, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(d Dict, prefix string, out map[string]any) error {
	for k, v := range d {
		path := k
		if prefix != "" {
			path = prefix + Separator + k
		}
		if child, ok := asDict(v); ok {
			if err := flatten(child, path, out); err != nil {
				return err
			}
			continue
		}
		out[path] = v
	}
	return nil
}

// asDict accepts both Dict and plain map[string]any sections.
func asDict(v any) (Dict, bool) {
	switch m := v.(type) {
	case Dict:
		return m, true
	case map[string]any:
		return Dict(m), true
	default:
		return nil, false
	}
}
