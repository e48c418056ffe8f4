package oskar_interferometer

import (
	"github.com/vk/oskargrid/internal/driver"
	"github.com/vk/oskargrid/internal/settings"
)

// Config holds the read-write parameters of the interferometer simulation.
type Config struct {
	DoublePrecision    bool
	UseGPU             bool
	ChannelBandwidthHz float64
	TimeAverageSec     float64
	ForcePolarisedMS   bool
	IgnoreWComponents  bool

	// Observation geometry.
	NumChannels       int
	StartFrequencyHz  float64
	FrequencyIncHz    float64
	PhaseCentreRADeg  float64
	PhaseCentreDecDeg float64
	NumTimeSteps      int
	StartTimeUTC      string
	Length            string
}

// DefaultConfig returns the parameter defaults: a three channel, 24 step,
// 12 hour observation at 100 MHz pointed at RA 20, Dec -30.
func DefaultConfig() Config {
	return Config{
		DoublePrecision:   true,
		NumChannels:       3,
		StartFrequencyHz:  100e6,
		FrequencyIncHz:    20e6,
		PhaseCentreRADeg:  20,
		PhaseCentreDecDeg: -30,
		NumTimeSteps:      24,
		StartTimeUTC:      "01-01-2000 12:00:00.000",
		Length:            "12:00:00.000",
	}
}

type request struct {
	cfg   Config
	ports driver.Ports
}

// table maps a request onto the simulator settings dictionary. Precision
// is not part of it; it is set on the tree afterwards.
var table = settings.Table[request]{
	{Path: "simulator/use_gpus", Value: func(r request) any { return r.cfg.UseGPU }},

	{Path: "observation/num_channels", Value: func(r request) any { return r.cfg.NumChannels }},
	{Path: "observation/start_frequency_hz", Value: func(r request) any { return r.cfg.StartFrequencyHz }},
	{Path: "observation/frequency_inc_hz", Value: func(r request) any { return r.cfg.FrequencyIncHz }},
	{Path: "observation/phase_centre_ra_deg", Value: func(r request) any { return r.cfg.PhaseCentreRADeg }},
	{Path: "observation/phase_centre_dec_deg", Value: func(r request) any { return r.cfg.PhaseCentreDecDeg }},
	{Path: "observation/num_time_steps", Value: func(r request) any { return r.cfg.NumTimeSteps }},
	{Path: "observation/start_time_utc", Value: func(r request) any { return r.cfg.StartTimeUTC }},
	{Path: "observation/length", Value: func(r request) any { return r.cfg.Length }},

	{Path: "telescope/input_directory", Value: func(r request) any { return r.ports.Inputs[0] }},

	{Path: "interferometer/oskar_vis_filename", Value: func(r request) any { return r.ports.Outputs[0] }},
	{Path: "interferometer/ms_filename", Value: func(request) any { return "" }},
	{Path: "interferometer/channel_bandwidth_hz", Value: func(r request) any { return r.cfg.ChannelBandwidthHz }},
	{Path: "interferometer/time_average_sec", Value: func(r request) any { return r.cfg.TimeAverageSec }},
	{Path: "interferometer/force_polarised_ms", Value: func(r request) any { return r.cfg.ForcePolarisedMS }},
	{Path: "interferometer/ignore_w_components", Value: func(r request) any { return r.cfg.IgnoreWComponents }},
}

// Dict builds the simulator settings dictionary for cfg and ports.
func Dict(cfg Config, ports driver.Ports) (settings.Dict, error) {
	if err := driver.RequirePorts(RunnerType, ports, minInputs, minOutputs); err != nil {
		return nil, err
	}
	return table.Dict(request{cfg: cfg, ports: ports})
}

// BuildTree returns the settings tree handed to the simulator: the
// dictionary plus simulator/double_precision.
func BuildTree(cfg Config, ports driver.Ports) (*settings.Tree, error) {
	d, err := Dict(cfg, ports)
	if err != nil {
		return nil, err
	}
	tree, err := settings.FromDict(appName, d)
	if err != nil {
		return nil, err
	}
	if err := tree.Set("simulator/double_precision", cfg.DoublePrecision); err != nil {
		return nil, err
	}
	return tree, nil
}
