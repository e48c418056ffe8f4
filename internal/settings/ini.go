package settings

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

// ErrUnwritableValue is returned for values that ini.v1 would quote. OSKAR
// reads quotes and backticks as part of the value.
var ErrUnwritableValue = errors.New("value cannot be written to an OSKAR settings file")

var compactOnce sync.Once

// useCompactFormat switches ini.v1 to "key=value" output. The library only
// exposes this as a package variable; this package is the only INI writer
// in the binary.
func useCompactFormat() {
	compactOnce.Do(func() { ini.PrettyFormat = false })
}

// checkValue rejects strings that ini.v1 would wrap in quotes or backticks.
func checkValue(path, s string) error {
	switch {
	case strings.ContainsAny(s, "#;`\n\r"):
		return fmt.Errorf("%q = %q: contains one of # ; ` or a line break: %w", path, s, ErrUnwritableValue)
	case strings.TrimSpace(s) != s:
		return fmt.Errorf("%q = %q: leading or trailing whitespace: %w", path, s, ErrUnwritableValue)
	}
	return nil
}

// generalSection holds the application marker OSKAR puts at the top of
// every settings file.
const generalSection = "General"

// INI renders the tree as an OSKAR settings file. The first path segment is
// the INI section, the remainder is the key, so "sky/oskar_sky_model/file"
// becomes key "oskar_sky_model/file" under [sky].
func (t *Tree) INI() (*ini.File, error) {
	f := ini.Empty()
	general, err := f.NewSection(generalSection)
	if err != nil {
		return nil, err
	}
	if _, err := general.NewKey("app", t.app); err != nil {
		return nil, err
	}
	for _, path := range t.Keys() {
		section, key, _ := strings.Cut(path, Separator)
		val := FormatValue(t.values[path])
		if err := checkValue(path, val); err != nil {
			return nil, err
		}
		sec := f.Section(section)
		if _, err := sec.NewKey(key, val); err != nil {
			return nil, fmt.Errorf("writing %q: %w", path, err)
		}
	}
	return f, nil
}

// WriteINI writes the tree to w in OSKAR INI format.
func (t *Tree) WriteINI(w io.Writer) error {
	f, err := t.INI()
	if err != nil {
		return err
	}
	useCompactFormat()
	_, err = f.WriteTo(w)
	return err
}

// SaveINI writes the tree to the file at path.
func (t *Tree) SaveINI(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteINI(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FormatValue renders a scalar the way OSKAR parses it.
func FormatValue(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}
