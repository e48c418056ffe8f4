// Package skymodel loads sky-model arrays: one row per radio source with the
// OSKAR column layout (RA, Dec, Stokes I, Q, U, V, reference frequency,
// spectral index, rotation measure, FWHM major, FWHM minor, position angle).
package skymodel

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Column indexes of a sky-model row.
const (
	RA = iota
	Dec
	StokesI
	StokesQ
	StokesU
	StokesV
	RefFrequencyHz
	SpectralIndex
	RotationMeasure
	MajorAxisArcsec
	MinorAxisArcsec
	PositionAngleDeg

	// MaxColumns is the widest row OSKAR understands.
	MaxColumns
)

// MinColumns is the narrowest valid row: position and Stokes I flux.
const MinColumns = StokesI + 1

// Load reads a NumPy .npy file into a sources x columns matrix.
func Load(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sky model: %w", err)
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read sky model %s: %w", path, err)
	}
	return m, nil
}

// Read decodes a .npy stream of any real numeric dtype. A one-dimensional
// array is a single source.
func Read(r io.Reader) (*mat.Dense, error) {
	npy, err := npyio.NewReader(r)
	if err != nil {
		return nil, err
	}

	shape := npy.Header.Descr.Shape
	var rows, cols int
	switch len(shape) {
	case 1:
		rows, cols = 1, shape[0]
	case 2:
		rows, cols = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("sky model array must be 1-D or 2-D, got shape %v", shape)
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("sky model array is empty (shape %v)", shape)
	}

	data, err := readValues(npy)
	if err != nil {
		return nil, err
	}
	if npy.Header.Descr.Fortran && rows > 1 {
		return mat.DenseCopyOf(mat.NewDense(cols, rows, data).T()), nil
	}
	return mat.NewDense(rows, cols, data), nil
}

// readValues reads every element in the array's own dtype and widens it
// to float64.
func readValues(npy *npyio.Reader) ([]float64, error) {
	dtype := strings.TrimLeft(npy.Header.Descr.Type, "<>|=")
	switch dtype {
	case "f8":
		return readAs[float64](npy)
	case "f4":
		return readAs[float32](npy)
	case "i8":
		return readAs[int64](npy)
	case "i4":
		return readAs[int32](npy)
	case "i2":
		return readAs[int16](npy)
	case "i1":
		return readAs[int8](npy)
	case "u8":
		return readAs[uint64](npy)
	case "u4":
		return readAs[uint32](npy)
	case "u2":
		return readAs[uint16](npy)
	case "u1":
		return readAs[uint8](npy)
	default:
		return nil, fmt.Errorf("sky model array has non-numeric dtype %q", npy.Header.Descr.Type)
	}
}

type number interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

func readAs[T number](npy *npyio.Reader) ([]float64, error) {
	var raw []T
	if err := npy.Read(&raw); err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

// Validate checks that m has a usable column count.
func Validate(m mat.Matrix) error {
	rows, cols := m.Dims()
	if rows == 0 {
		return fmt.Errorf("sky model has no sources")
	}
	if cols < MinColumns || cols > MaxColumns {
		return fmt.Errorf("sky model rows have %d columns, want between %d and %d", cols, MinColumns, MaxColumns)
	}
	return nil
}
