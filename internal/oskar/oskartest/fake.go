// Package oskartest provides an in-memory oskar.Toolkit for tests.
package oskartest

import (
	"context"
	"sync"

	"github.com/vk/oskargrid/internal/oskar"
	"github.com/vk/oskargrid/internal/settings"
	"gonum.org/v1/gonum/mat"
)

// Sky is the fake sky model.
type Sky struct {
	Data      *mat.Dense
	precision oskar.Precision
}

func (s *Sky) NumSources() int {
	rows, _ := s.Data.Dims()
	return rows
}

func (s *Sky) Precision() oskar.Precision { return s.precision }

// Toolkit records every call and returns canned results. Set the *Err
// fields to make the matching call fail.
type Toolkit struct {
	mu sync.Mutex

	SkyErr            error
	InterferometerErr error
	ImagerErr         error
	// Images is returned by imager runs, truncated to the requested count.
	Images []*mat.Dense

	Skies               []*Sky
	InterferometerTrees []*settings.Tree
	ImagerTrees         []*settings.Tree
	InterferometerRuns  int
	ImagerRuns          int
	// ReturnImages holds the image count requested by each imager run.
	ReturnImages []int
	// RunSky is the sky attached when the last simulation ran.
	RunSky oskar.Sky
}

var _ oskar.Toolkit = (*Toolkit)(nil)

// New returns a fake whose imager produces a single 2x2 image.
func New() *Toolkit {
	return &Toolkit{Images: []*mat.Dense{mat.NewDense(2, 2, []float64{0, 1, 2, 3})}}
}

func (t *Toolkit) NewSky(data mat.Matrix, precision oskar.Precision) (oskar.Sky, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.SkyErr != nil {
		return nil, t.SkyErr
	}
	s := &Sky{Data: mat.DenseCopyOf(data), precision: precision}
	t.Skies = append(t.Skies, s)
	return s, nil
}

func (t *Toolkit) NewInterferometer(tree *settings.Tree) (oskar.Interferometer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.InterferometerTrees = append(t.InterferometerTrees, tree)
	return &interferometer{tk: t}, nil
}

func (t *Toolkit) NewImager(tree *settings.Tree) (oskar.Imager, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ImagerTrees = append(t.ImagerTrees, tree)
	return &imager{tk: t}, nil
}

// Calls returns how many simulations and imaging runs were executed.
func (t *Toolkit) Calls() (interferometer, imager int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.InterferometerRuns, t.ImagerRuns
}

type interferometer struct {
	tk  *Toolkit
	sky oskar.Sky
}

func (i *interferometer) SetSkyModel(sky oskar.Sky) error {
	i.sky = sky
	return nil
}

func (i *interferometer) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i.tk.mu.Lock()
	defer i.tk.mu.Unlock()
	i.tk.InterferometerRuns++
	i.tk.RunSky = i.sky
	return i.tk.InterferometerErr
}

type imager struct {
	tk *Toolkit
}

func (im *imager) Run(ctx context.Context, returnImages int) ([]*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	im.tk.mu.Lock()
	defer im.tk.mu.Unlock()
	im.tk.ImagerRuns++
	im.tk.ReturnImages = append(im.tk.ReturnImages, returnImages)
	if im.tk.ImagerErr != nil {
		return nil, im.tk.ImagerErr
	}
	images := im.tk.Images
	if len(images) > returnImages {
		images = images[:returnImages]
	}
	return images, nil
}
