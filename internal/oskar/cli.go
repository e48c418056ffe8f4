package oskar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/vk/oskargrid/internal/settings"
	"github.com/vk/oskargrid/internal/skymodel"
	"gonum.org/v1/gonum/mat"
)

// Config locates the OSKAR applications and their scratch space.
type Config struct {
	InterferometerBin string
	ImagerBin         string
	// WorkDir is the parent of per-call scratch directories. Empty means
	// the system temp directory.
	WorkDir string
	// KeepWorkDir leaves scratch directories in place for inspection.
	KeepWorkDir bool
}

// DefaultConfig expects the OSKAR applications on PATH.
func DefaultConfig() Config {
	return Config{
		InterferometerBin: InterferometerApp,
		ImagerBin:         ImagerApp,
	}
}

// CLI drives the OSKAR command-line applications.
type CLI struct {
	cfg Config
}

var _ Toolkit = (*CLI)(nil)

// NewCLI returns a toolkit backed by the OSKAR applications in cfg.
func NewCLI(cfg Config) *CLI {
	def := DefaultConfig()
	if cfg.InterferometerBin == "" {
		cfg.InterferometerBin = def.InterferometerBin
	}
	if cfg.ImagerBin == "" {
		cfg.ImagerBin = def.ImagerBin
	}
	return &CLI{cfg: cfg}
}

// Config returns the effective configuration.
func (c *CLI) Config() Config { return c.cfg }

// NewSky copies data into a sky model of the requested precision. Single
// precision rounds every value through float32, as OSKAR would store it.
func (c *CLI) NewSky(data mat.Matrix, precision Precision) (Sky, error) {
	if precision != Double && precision != Single {
		return nil, opError("sky.from_array", fmt.Errorf("unknown precision %q", precision))
	}
	if err := skymodel.Validate(data); err != nil {
		return nil, opError("sky.from_array", err)
	}
	m := mat.DenseCopyOf(data)
	if precision == Single {
		m.Apply(func(_, _ int, v float64) float64 { return float64(float32(v)) }, m)
	}
	return &cliSky{data: m, precision: precision}, nil
}

// NewInterferometer prepares a simulation for tree.
func (c *CLI) NewInterferometer(tree *settings.Tree) (Interferometer, error) {
	if err := checkApp(tree, InterferometerApp); err != nil {
		return nil, opError("interferometer.new", err)
	}
	return &cliInterferometer{cli: c, tree: tree}, nil
}

// NewImager prepares an imaging run for tree.
func (c *CLI) NewImager(tree *settings.Tree) (Imager, error) {
	if err := checkApp(tree, ImagerApp); err != nil {
		return nil, opError("imager.new", err)
	}
	return &cliImager{cli: c, tree: tree}, nil
}

func checkApp(tree *settings.Tree, app string) error {
	if tree == nil {
		return errors.New("settings tree is nil")
	}
	if tree.App() != app {
		return fmt.Errorf("settings tree is for %q, want %q", tree.App(), app)
	}
	return nil
}

// scratch creates a per-call work directory and returns its cleanup func.
func (c *CLI) scratch(ctx context.Context, name string) (string, func(), error) {
	dir, err := os.MkdirTemp(c.cfg.WorkDir, "oskar-"+name+"-*")
	if err != nil {
		return "", nil, err
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return "", nil, err
	}
	cleanup := func() {
		logger := ctxlog.FromContext(ctx)
		if c.cfg.KeepWorkDir {
			logger.Info("Keeping OSKAR work directory.", "dir", dir)
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("Failed to remove OSKAR work directory.", "dir", dir, "error", err)
		}
	}
	return dir, cleanup, nil
}

type cliSky struct {
	data      *mat.Dense
	precision Precision
}

func (s *cliSky) NumSources() int {
	rows, _ := s.data.Dims()
	return rows
}

func (s *cliSky) Precision() Precision { return s.precision }

type cliInterferometer struct {
	cli  *CLI
	tree *settings.Tree
	sky  *cliSky
}

func (i *cliInterferometer) SetSkyModel(sky Sky) error {
	s, ok := sky.(*cliSky)
	if !ok {
		return opError("interferometer.set_sky_model", fmt.Errorf("unsupported sky model type %T", sky))
	}
	i.sky = s
	return nil
}

func (i *cliInterferometer) Run(ctx context.Context) error {
	const op = "interferometer.run"
	dir, cleanup, err := i.cli.scratch(ctx, "interferometer")
	if err != nil {
		return opError(op, err)
	}
	defer cleanup()

	tree := i.tree.Clone()
	if i.sky != nil {
		skyPath := filepath.Join(dir, "sky.osm")
		if err := writeSkyFile(skyPath, i.sky); err != nil {
			return opError(op, err)
		}
		if err := tree.Set("sky/oskar_sky_model/file", skyPath); err != nil {
			return opError(op, err)
		}
	}

	iniPath := filepath.Join(dir, "settings.ini")
	if err := tree.SaveINI(iniPath); err != nil {
		return opError(op, err)
	}
	return run(ctx, op, i.cli.cfg.InterferometerBin, iniPath)
}

type cliImager struct {
	cli  *CLI
	tree *settings.Tree
}

func (im *cliImager) Run(ctx context.Context, returnImages int) ([]*mat.Dense, error) {
	const op = "imager.run"
	dir, cleanup, err := im.cli.scratch(ctx, "imager")
	if err != nil {
		return nil, opError(op, err)
	}
	defer cleanup()

	root := filepath.Join(dir, "image")
	tree := im.tree.Clone()
	if err := tree.Set("image/root_path", root); err != nil {
		return nil, opError(op, err)
	}
	iniPath := filepath.Join(dir, "settings.ini")
	if err := tree.SaveINI(iniPath); err != nil {
		return nil, opError(op, err)
	}
	if err := run(ctx, op, im.cli.cfg.ImagerBin, iniPath); err != nil {
		return nil, err
	}
	if returnImages <= 0 {
		return nil, nil
	}

	files, err := filepath.Glob(root + "*.fits")
	if err != nil {
		return nil, opError(op, err)
	}
	if len(files) == 0 {
		return nil, opError(op, errors.New("imager wrote no FITS images"))
	}
	sort.Strings(files)
	if len(files) > returnImages {
		files = files[:returnImages]
	}

	images := make([]*mat.Dense, 0, len(files))
	for _, f := range files {
		img, err := readFITSImage(f)
		if err != nil {
			return nil, opError(op, fmt.Errorf("reading %s: %w", filepath.Base(f), err))
		}
		images = append(images, img)
	}
	return images, nil
}
