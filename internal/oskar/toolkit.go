package oskar

import (
	"context"

	"github.com/vk/oskargrid/internal/settings"
	"gonum.org/v1/gonum/mat"
)

// Precision is the numeric representation OSKAR uses for a sky model.
type Precision string

const (
	Double Precision = "double"
	Single Precision = "single"
)

// PrecisionFor maps the run-scoped double-precision flag to a Precision.
func PrecisionFor(double bool) Precision {
	if double {
		return Double
	}
	return Single
}

// Application names, as used for settings trees.
const (
	InterferometerApp = "oskar_sim_interferometer"
	ImagerApp         = "oskar_imager"
)

// Sky is a sky model ready to be attached to a simulation.
type Sky interface {
	NumSources() int
	Precision() Precision
}

// Interferometer is a configured simulation.
type Interferometer interface {
	SetSkyModel(sky Sky) error
	// Run blocks until the simulation has written its visibility output.
	Run(ctx context.Context) error
}

// Imager is a configured imaging run.
type Imager interface {
	// Run blocks until imaging finishes and returns up to returnImages
	// image planes, each a rows x columns intensity grid.
	Run(ctx context.Context, returnImages int) ([]*mat.Dense, error)
}

// Toolkit constructs OSKAR objects. Implementations must treat the trees
// they are given as read-only.
type Toolkit interface {
	NewSky(data mat.Matrix, precision Precision) (Sky, error)
	NewInterferometer(tree *settings.Tree) (Interferometer, error)
	NewImager(tree *settings.Tree) (Imager, error)
}
