package oskar_imager

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/vk/oskargrid/internal/driver"
	"github.com/vk/oskargrid/internal/oskar"
	"github.com/vk/oskargrid/internal/render"
)

const (
	appName    = oskar.ImagerApp
	minInputs  = 1
	minOutputs = 1

	// ContentType is reported for the rendered image.
	ContentType = "image/png"
)

// Driver images a visibility file and renders the first image plane as
// a PNG.
//
// Port layout: input 0 is the visibility file, output 0 the PNG path.
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

// Run images the visibilities and writes the PNG to output 0.
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

	if d.cfg.UWavelengths != 0 || d.cfg.VWavelengths != 0 {
		logger.Warn("u_wavelengths and v_wavelengths are accepted but not applied by the imager.",
			"u_wavelengths", d.cfg.UWavelengths,
			"v_wavelengths", d.cfg.VWavelengths,
		)
	}

	imager, err := d.toolkit.NewImager(tree)
	if err != nil {
		return nil, err
	}
	logger.Info("Running imager.", "visibilities", d.ports.Inputs[0], "size", d.cfg.Size, "image_type", d.cfg.ImageType)
	images, err := imager.Run(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 || images[0] == nil {
		return nil, &oskar.ExecutionError{Op: "imager.run", ExitCode: -1, Err: errors.New("imager returned no images")}
	}

	opts := render.DefaultOptions()
	opts.Title = fmt.Sprintf("%s image", d.cfg.ImageType)
	png, err := render.PNG(images[0], opts)
	if err != nil {
		return nil, fmt.Errorf("rendering image: %w", err)
	}

	out := d.ports.Outputs[0]
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return nil, fmt.Errorf("writing image: %w", err)
	}
	logger.Debug("Image written.", "path", out, "bytes", len(png))
	return &driver.Artifact{Path: out, ContentType: ContentType, Size: int64(len(png))}, nil
}
