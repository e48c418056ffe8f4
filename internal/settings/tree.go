package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrFrozen is returned when a frozen tree is modified.
var ErrFrozen = errors.New("settings tree is frozen")

// Tree is a flat settings tree for one OSKAR application.
type Tree struct {
	app    string
	values map[string]any
	frozen bool
}

// New returns an empty tree for the named OSKAR application,
// e.g. "oskar_sim_interferometer".
func New(app string) *Tree {
	return &Tree{app: app, values: make(map[string]any)}
}

// FromDict builds a tree from a nested dictionary.
func FromDict(app string, d Dict) (*Tree, error) {
	flat, err := d.Flatten()
	if err != nil {
		return nil, err
	}
	t := New(app)
	for path, v := range flat {
		if err := t.Set(path, v); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// App returns the OSKAR application the tree configures.
func (t *Tree) App() string { return t.app }

// Set stores a scalar under path, replacing any previous value.
func (t *Tree) Set(path string, v any) error {
	if t.frozen {
		return fmt.Errorf("set %q: %w", path, ErrFrozen)
	}
	if err := validatePath(path); err != nil {
		return err
	}
	scalar, err := normalize(v)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	t.values[path] = scalar
	return nil
}

// Get returns the value stored under path.
func (t *Tree) Get(path string) (any, bool) {
	v, ok := t.values[path]
	return v, ok
}

// Keys returns all paths in sorted order.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of paths in the tree.
func (t *Tree) Len() int { return len(t.values) }

// Freeze makes the tree read-only.
func (t *Tree) Freeze() { t.frozen = true }

// Frozen reports whether Freeze has been called.
func (t *Tree) Frozen() bool { return t.frozen }

// Clone returns an unfrozen copy of the tree.
func (t *Tree) Clone() *Tree {
	c := New(t.app)
	for k, v := range t.values {
		c.values[k] = v
	}
	return c
}

// Diff returns the sorted paths whose presence or value differs between t and o.
func (t *Tree) Diff(o *Tree) []string {
	seen := make(map[string]struct{})
	var diff []string
	for k, v := range t.values {
		seen[k] = struct{}{}
		if ov, ok := o.values[k]; !ok || ov != v {
			diff = append(diff, k)
		}
	}
	for k := range o.values {
		if _, ok := seen[k]; !ok {
			diff = append(diff, k)
		}
	}
	sort.Strings(diff)
	return diff
}

func validatePath(path string) error {
	parts := strings.Split(path, Separator)
	if len(parts) < 2 {
		return fmt.Errorf("invalid settings path %q: expected section%skey", path, Separator)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("invalid settings path %q: empty segment", path)
		}
	}
	return nil
}

// normalize narrows v to one of the scalar kinds OSKAR understands.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case bool, string, float64, int:
		return x, nil
	case float32:
		return float64(x), nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint:
		return int(x), nil
	default:
		return nil, fmt.Errorf("unsupported settings value of type %T", v)
	}
}
