package oskar

import (
	"errors"
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/mat"
)

// readFITSImage returns the first plane of the primary image HDU.
// FITS stores NAXIS1 (columns) fastest, so row 0 is the first image row.
func readFITSImage(path string) (*mat.Dense, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, errors.New("primary HDU is not an image")
	}
	axes := img.Header().Axes()
	if len(axes) < 2 {
		return nil, fmt.Errorf("image has %d axes, want at least 2", len(axes))
	}
	width, height := axes[0], axes[1]
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image has empty plane %dx%d", width, height)
	}

	n := 1
	for _, ax := range axes {
		n *= ax
	}
	raw, err := readPixels(img, n)
	if err != nil {
		return nil, err
	}

	plane := make([]float64, width*height)
	copy(plane, raw[:width*height])
	return mat.NewDense(height, width, plane), nil
}

// readPixels reads n pixels in the element type given by BITPIX and widens
// them to float64. OSKAR writes -32 for single and -64 for double precision.
func readPixels(img fitsio.Image, n int) ([]float64, error) {
	switch bitpix := img.Header().Bitpix(); bitpix {
	case 8:
		return readAs[uint8](img, n)
	case 16:
		return readAs[int16](img, n)
	case 32:
		return readAs[int32](img, n)
	case 64:
		return readAs[int64](img, n)
	case -32:
		return readAs[float32](img, n)
	case -64:
		return readAs[float64](img, n)
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
}

type pixel interface {
	uint8 | int16 | int32 | int64 | float32 | float64
}

func readAs[T pixel](img fitsio.Image, n int) ([]float64, error) {
	raw := make([]T, n)
	if err := img.Read(&raw); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}
