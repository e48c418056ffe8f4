package oskar_interferometer

import (
	"context"
	"fmt"

	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/vk/oskargrid/internal/driver"
	"github.com/vk/oskargrid/internal/oskar"
	"github.com/vk/oskargrid/internal/skymodel"
)

const (
	appName    = oskar.InterferometerApp
	minInputs  = 2
	minOutputs = 1

	// ContentType is reported for the visibility artifact.
	ContentType = "application/x-oskar-vis"
)

// Driver runs one interferometer simulation.
//
// Port layout: input 0 is the telescope model directory, input 1 the sky
// model .npy file, output 0 the visibility file OSKAR writes.
type Driver struct {
	toolkit   oskar.Toolkit
	lifecycle driver.Lifecycle
	cfg       Config
	ports     driver.Ports
}

var _ driver.Contract[Config] = (*Driver)(nil)

// New returns an unconfigured driver backed by tk.
func New(tk oskar.Toolkit) *Driver {
	return &Driver{toolkit: tk}
}

// Initialize stores the configuration and the ports, resolved to absolute
// paths.
func (d *Driver) Initialize(cfg Config, ports driver.Ports) error {
	resolved, err := ports.Abs()
	if err != nil {
		return err
	}
	if err := d.lifecycle.Configure(); err != nil {
		return err
	}
	d.cfg = cfg
	d.ports = resolved
	return nil
}

// State returns the lifecycle state.
func (d *Driver) State() driver.State { return d.lifecycle.State() }

// Run builds the settings tree, loads the sky model and blocks until the
// simulation finishes. Toolkit errors are returned unchanged.
func (d *Driver) Run(ctx context.Context) (*driver.Artifact, error) {
	finish, err := d.lifecycle.Begin()
	if err != nil {
		return nil, err
	}
	art, err := d.run(ctx)
	finish(err)
	return art, err
}

func (d *Driver) run(ctx context.Context) (*driver.Artifact, error) {
	logger := ctxlog.FromContext(ctx)

	tree, err := BuildTree(d.cfg, d.ports)
	if err != nil {
		return nil, err
	}
	tree.Freeze()

	skyPath := d.ports.Inputs[1]
	skyData, err := skymodel.Load(skyPath)
	if err != nil {
		return nil, fmt.Errorf("loading sky model: %w", err)
	}

	precision := oskar.PrecisionFor(d.cfg.DoublePrecision)
	sources, _ := skyData.Dims()
	logger.Debug("Building sky model.", "path", skyPath, "sources", sources, "precision", precision)

	sky, err := d.toolkit.NewSky(skyData, precision)
	if err != nil {
		return nil, err
	}
	sim, err := d.toolkit.NewInterferometer(tree)
	if err != nil {
		return nil, err
	}
	if err := sim.SetSkyModel(sky); err != nil {
		return nil, err
	}

	out := d.ports.Outputs[0]
	logger.Info("Running interferometer simulation.",
		"telescope", d.ports.Inputs[0],
		"visibilities", out,
		"channels", d.cfg.NumChannels,
		"time_steps", d.cfg.NumTimeSteps,
	)
	if err := sim.Run(ctx); err != nil {
		return nil, err
	}
	return &driver.Artifact{Path: out, ContentType: ContentType}, nil
}
