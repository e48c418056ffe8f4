package oskar

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
)

// writeSkyFile writes s in the OSKAR sky model text format: one source per
// line, whitespace separated columns, '#' comments.
func writeSkyFile(path string, s *cliSky) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	bits := 64
	if s.precision == Single {
		bits = 32
	}
	rows, cols := s.data.Dims()
	fmt.Fprintf(w, "# Number of sources: %d\n", rows)
	fmt.Fprintf(w, "# Precision: %s\n", s.precision)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				w.WriteByte(' ')
			}
			w.WriteString(strconv.FormatFloat(s.data.At(r, c), 'g', -1, bits))
		}
		w.WriteByte('\n')
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
