package oskar_interferometer

import (
	"context"
	"reflect"

	"github.com/vk/oskargrid/internal/driver"
	"github.com/vk/oskargrid/internal/oskar"
	"github.com/vk/oskargrid/internal/registry"
)

const (
	// RunnerType is the manifest name of the runner.
	RunnerType = "oskar_interferometer"
	// HandlerName is the on_run handler referenced by the manifest.
	HandlerName = "OnRunOskarInterferometer"
)

// Metadata is the read-only component description.
var Metadata = registry.Metadata{
	AppClass:      "oskargrid.modules.oskar_interferometer",
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

// Input defines the arguments for the oskar_interferometer runner.
type Input struct {
	Inputs  []string `bggo:"inputs"`
	Outputs []string `bggo:"outputs"`

	DoublePrecision    bool    `bggo:"doubleprecision"`
	UseGPU             bool    `bggo:"usegpu"`
	ChannelBandwidthHz float64 `bggo:"channel_bandwidth_hz"`
	TimeAverageSec     float64 `bggo:"time_average_sec"`
	ForcePolarisedMS   bool    `bggo:"force_polarised_ms"`
	IgnoreWComponents  bool    `bggo:"ignore_w_components"`

	NumChannels       int     `bggo:"num_channels"`
	StartFrequencyHz  float64 `bggo:"start_frequency_hz"`
	FrequencyIncHz    float64 `bggo:"frequency_inc_hz"`
	PhaseCentreRADeg  float64 `bggo:"phase_centre_ra_deg"`
	PhaseCentreDecDeg float64 `bggo:"phase_centre_dec_deg"`
	NumTimeSteps      int     `bggo:"num_time_steps"`
	StartTimeUTC      string  `bggo:"start_time_utc"`
	Length            string  `bggo:"length"`
}

// Config returns the driver configuration carried by the input.
func (in *Input) Config() Config {
	return Config{
		DoublePrecision:    in.DoublePrecision,
		UseGPU:             in.UseGPU,
		ChannelBandwidthHz: in.ChannelBandwidthHz,
		TimeAverageSec:     in.TimeAverageSec,
		ForcePolarisedMS:   in.ForcePolarisedMS,
		IgnoreWComponents:  in.IgnoreWComponents,
		NumChannels:        in.NumChannels,
		StartFrequencyHz:   in.StartFrequencyHz,
		FrequencyIncHz:     in.FrequencyIncHz,
		PhaseCentreRADeg:   in.PhaseCentreRADeg,
		PhaseCentreDecDeg:  in.PhaseCentreDecDeg,
		NumTimeSteps:       in.NumTimeSteps,
		StartTimeUTC:       in.StartTimeUTC,
		Length:             in.Length,
	}
}

// Output is the step output exposed to the grid.
type Output struct {
	Visibilities string `cty:"visibilities"`
}

// Deps carries the toolkit into the handler.
type Deps struct {
	Toolkit oskar.Toolkit
}

// OnRunOskarInterferometer is the handler for the runner's on_run event.
func OnRunOskarInterferometer(ctx context.Context, deps *Deps, input *Input) (any, error) {
	d := New(deps.Toolkit)
	ports := driver.Ports{Inputs: input.Inputs, Outputs: input.Outputs}
	if err := d.Initialize(input.Config(), ports); err != nil {
		return nil, err
	}
	art, err := d.Run(ctx)
	if err != nil {
		return nil, err
	}
	return Output{Visibilities: art.Path}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner(HandlerName, &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return &Deps{Toolkit: m.Toolkit} },
		Fn:        OnRunOskarInterferometer,
		Metadata:  &Metadata,
	})
}
