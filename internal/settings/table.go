package settings

import "fmt"

// Encoding is the serialization rule applied to a field before it enters a
// settings dictionary.
type Encoding int

const (
	// Native passes the value through unchanged.
	Native Encoding = iota
	// BoolString turns a bool into the lowercase string "true" or "false".
	BoolString
)

func (e Encoding) String() string {
	switch e {
	case Native:
		return "native"
	case BoolString:
		return "bool-string"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// Apply encodes v according to e.
func (e Encoding) Apply(v any) (any, error) {
	switch e {
	case Native:
		return v, nil
	case BoolString:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("bool-string encoding needs a bool, got %T", v)
		}
		if b {
			return "true", nil
		}
		return "false", nil
	default:
		return nil, fmt.Errorf("unknown encoding %d", int(e))
	}
}

// Field maps one value of a configuration C onto a settings path.
type Field[C any] struct {
	Path     string
	Encoding Encoding
	Value    func(C) any
}

// Table is the full field mapping of one driver.
type Table[C any] []Field[C]

// Dict builds the nested settings dictionary for cfg.
func (t Table[C]) Dict(cfg C) (Dict, error) {
	d := Dict{}
	for _, f := range t {
		v, err := f.Encoding.Apply(f.Value(cfg))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Path, err)
		}
		if err := d.Put(f.Path, v); err != nil {
			return nil, err
		}
	}
	return d, nil
}
