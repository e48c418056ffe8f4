package testutil

import "strings"

// ExpandDir replaces every "{{dir}}" in s with dir.
func ExpandDir(s, dir string) string {
	return strings.ReplaceAll(s, "{{dir}}", dir)
}
