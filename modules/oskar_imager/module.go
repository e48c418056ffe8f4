package oskar_imager

import (
	"context"
	"reflect"

	"github.com/vk/oskargrid/internal/driver"
	"github.com/vk/oskargrid/internal/oskar"
	"github.com/vk/oskargrid/internal/registry"
)

const (
	// RunnerType is the manifest name of the runner.
	RunnerType = "oskar_imager"
	// HandlerName is the on_run handler referenced by the manifest.
	HandlerName = "OnRunOskarImager"
)

// Metadata is the read-only component description.
var Metadata = registry.Metadata{
	AppClass:      "oskargrid.modules.oskar_imager",
	ExecutionTime: 5,
	NumCPUs:       1,
}

// Module implements the registry.Module interface for this package.
type Module struct {
	Toolkit oskar.Toolkit
}

// NewModule returns the module backed by tk.
func NewModule(tk oskar.Toolkit) *Module {
	return &Module{Toolkit: tk}
}

// Input defines the arguments for the oskar_imager runner.
type Input struct {
	Inputs  []string `bggo:"inputs"`
	Outputs []string `bggo:"outputs"`

	DoublePrecision  bool    `bggo:"doubleprecision"`
	UseGPU           bool    `bggo:"usegpu"`
	SpecifyCellsize  bool    `bggo:"specify_cellsize"`
	FOVDeg           float64 `bggo:"fov_deg"`
	CellsizeArcsec   float64 `bggo:"cellsize_arcsec"`
	Size             int     `bggo:"size"`
	ImageType        string  `bggo:"image_type"`
	ChannelSnapshots bool    `bggo:"channel_snapshots"`
	FreqMinHz        float64 `bggo:"freq_min_hz"`
	FreqMaxHz        string  `bggo:"freq_max_hz"`
	TimeMinUTC       string  `bggo:"time_min_utc"`
	TimeMaxUTC       string  `bggo:"time_max_utc"`
	UVFilterMin      float64 `bggo:"uv_filter_min"`
	UVFilterMax      string  `bggo:"uv_filter_max"`
	Algorithm        string  `bggo:"algorithm"`
	Weighting        string  `bggo:"weighting"`
	UWavelengths     float64 `bggo:"u_wavelengths"`
	VWavelengths     float64 `bggo:"v_wavelengths"`
}

// Config returns the driver configuration carried by the input.
func (in *Input) Config() Config {
	return Config{
		DoublePrecision:  in.DoublePrecision,
		UseGPU:           in.UseGPU,
		SpecifyCellsize:  in.SpecifyCellsize,
		FOVDeg:           in.FOVDeg,
		CellsizeArcsec:   in.CellsizeArcsec,
		Size:             in.Size,
		ImageType:        in.ImageType,
		ChannelSnapshots: in.ChannelSnapshots,
		FreqMinHz:        in.FreqMinHz,
		FreqMaxHz:        in.FreqMaxHz,
		TimeMinUTC:       in.TimeMinUTC,
		TimeMaxUTC:       in.TimeMaxUTC,
		UVFilterMin:      in.UVFilterMin,
		UVFilterMax:      in.UVFilterMax,
		Algorithm:        in.Algorithm,
		Weighting:        in.Weighting,
		UWavelengths:     in.UWavelengths,
		VWavelengths:     in.VWavelengths,
	}
}

// Output is the step output exposed to the grid.
type Output struct {
	Image string `cty:"image"`
	Bytes int64  `cty:"bytes"`
}

// Deps carries the toolkit into the handler.
type Deps struct {
	Toolkit oskar.Toolkit
}

// OnRunOskarImager is the handler for the runner's on_run event.
func OnRunOskarImager(ctx context.Context, deps *Deps, input *Input) (any, error) {
	d := New(deps.Toolkit)
	ports := driver.Ports{Inputs: input.Inputs, Outputs: input.Outputs}
	if err := d.Initialize(input.Config(), ports); err != nil {
		return nil, err
	}
	art, err := d.Run(ctx)
	if err != nil {
		return nil, err
	}
	return Output{Image: art.Path, Bytes: art.Size}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner(HandlerName, &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return &Deps{Toolkit: m.Toolkit} },
		Fn:        OnRunOskarImager,
		Metadata:  &Metadata,
	})
}
