package oskar_imager

import (
	"github.com/vk/oskargrid/internal/driver"
	"github.com/vk/oskargrid/internal/settings"
)

// Config holds the read-write parameters of the imager.
type Config struct {
	DoublePrecision  bool
	UseGPU           bool
	SpecifyCellsize  bool
	FOVDeg           float64
	CellsizeArcsec   float64
	Size             int
	ImageType        string
	ChannelSnapshots bool
	FreqMinHz        float64
	FreqMaxHz        string
	TimeMinUTC       string
	TimeMaxUTC       string
	UVFilterMin      float64
	UVFilterMax      string
	Algorithm        string
	Weighting        string

	// UWavelengths and VWavelengths describe a weight taper. They are
	// accepted but never written to the settings tree.
	UWavelengths float64
	VWavelengths float64
}

// DefaultConfig returns the parameter defaults: a 256 pixel, 2 degree
// Stokes I image with natural weighting.
func DefaultConfig() Config {
	return Config{
		DoublePrecision: true,
		FOVDeg:          2.0,
		CellsizeArcsec:  1.0,
		Size:            256,
		ImageType:       "I",
		FreqMaxHz:       "max",
		TimeMinUTC:      "0",
		TimeMaxUTC:      "0",
		UVFilterMax:     "max",
		Algorithm:       "FFT",
		Weighting:       "Natural",
	}
}

type request struct {
	cfg   Config
	ports driver.Ports
}

// table maps a request onto the imager settings dictionary. The imager
// expects its precision and GPU flags as strings.
var table = settings.Table[request]{
	{Path: "image/double_precision", Encoding: settings.BoolString, Value: func(r request) any { return r.cfg.DoublePrecision }},
	{Path: "image/use_gpus", Encoding: settings.BoolString, Value: func(r request) any { return r.cfg.UseGPU }},
	{Path: "image/specify_cellsize", Value: func(r request) any { return r.cfg.SpecifyCellsize }},
	{Path: "image/fov_deg", Value: func(r request) any { return r.cfg.FOVDeg }},
	{Path: "image/cellsize_arcsec", Value: func(r request) any { return r.cfg.CellsizeArcsec }},
	{Path: "image/size", Value: func(r request) any { return r.cfg.Size }},
	{Path: "image/image_type", Value: func(r request) any { return r.cfg.ImageType }},
	{Path: "image/channel_snapshots", Value: func(r request) any { return r.cfg.ChannelSnapshots }},
	{Path: "image/freq_min_hz", Value: func(r request) any { return r.cfg.FreqMinHz }},
	{Path: "image/freq_max_hz", Value: func(r request) any { return r.cfg.FreqMaxHz }},
	{Path: "image/time_min_utc", Value: func(r request) any { return r.cfg.TimeMinUTC }},
	{Path: "image/time_max_utc", Value: func(r request) any { return r.cfg.TimeMaxUTC }},
	{Path: "image/uv_filter_min", Value: func(r request) any { return r.cfg.UVFilterMin }},
	{Path: "image/uv_filter_max", Value: func(r request) any { return r.cfg.UVFilterMax }},
	{Path: "image/algorithm", Value: func(r request) any { return r.cfg.Algorithm }},
	{Path: "image/weighting", Value: func(r request) any { return r.cfg.Weighting }},
	{Path: "image/input_vis_data", Value: func(r request) any { return r.ports.Inputs[0] }},
}

// Dict builds the imager settings dictionary for cfg and ports.
func Dict(cfg Config, ports driver.Ports) (settings.Dict, error) {
	if err := driver.RequirePorts(RunnerType, ports, minInputs, minOutputs); err != nil {
		return nil, err
	}
	return table.Dict(request{cfg: cfg, ports: ports})
}

// BuildTree returns the settings tree handed to the imager.
func BuildTree(cfg Config, ports driver.Ports) (*settings.Tree, error) {
	d, err := Dict(cfg, ports)
	if err != nil {
		return nil, err
	}
	return settings.FromDict(appName, d)
}
