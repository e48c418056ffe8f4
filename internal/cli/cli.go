package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vk/oskargrid/internal/app"
	"github.com/vk/oskargrid/internal/hcl"
	"github.com/vk/oskargrid/internal/oskar"
	"github.com/vk/oskargrid/internal/registry"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// ModuleSet builds the modules registered for a run from a toolkit.
type ModuleSet func(tk oskar.Toolkit) []registry.Module

// flagValues holds the raw flag destinations. Only flags the user actually
// set override the config file.
type flagValues struct {
	grid            string
	modulesPath     string
	configFile      string
	logFormat       string
	logLevel        string
	workers         int
	healthcheckPort int
	interferometer  string
	imager          string
	workDir         string
	keepWorkDir     bool
}

// Execute runs the command line with args and returns an *ExitError for
// usage problems.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	cmd := NewRootCmd(out, app.CoreModules)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCmd builds the oskargrid command tree.
func NewRootCmd(out io.Writer, modules ModuleSet) *cobra.Command {
	cmd, _ := newRootCmd(out, modules)
	return cmd
}

func newRootCmd(out io.Writer, modules ModuleSet) (*cobra.Command, *flagValues) {
	var fv flagValues
	def := app.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "oskargrid [GRID_PATH]",
		Short: "Run OSKAR interferometer and imager steps declared in HCL grids",
		Long: `oskargrid executes a grid of steps: OSKAR visibility simulations, imaging
runs that render PNG images, and artifact checks. Steps run concurrently as
soon as the steps they reference have finished.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fv.grid == "" && len(args) > 0 {
				fv.grid = args[0]
			}
			if fv.grid == "" {
				return cmd.Help()
			}
			cfg, err := resolveConfig(cmd, &fv)
			if err != nil {
				return err
			}
			a, err := app.NewApp(out, cfg, hcl.NewLoader(), modules(oskar.NewCLI(cfg.Oskar))...)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	f := cmd.PersistentFlags()
	f.StringVarP(&fv.modulesPath, "modules-path", "m", def.ModulesPath, "Directory containing runner manifests.")
	f.StringVarP(&fv.configFile, "config", "c", "", "Optional TOML config file.")
	f.StringVar(&fv.logFormat, "log-format", def.LogFormat, "Log output format: 'text' or 'json'.")
	f.StringVar(&fv.logLevel, "log-level", def.LogLevel, "Logging level: 'debug', 'info', 'warn' or 'error'.")
	f.StringVar(&fv.interferometer, "oskar-interferometer-bin", def.Oskar.InterferometerBin, "Path of the oskar_sim_interferometer application.")
	f.StringVar(&fv.imager, "oskar-imager-bin", def.Oskar.ImagerBin, "Path of the oskar_imager application.")

	lf := cmd.Flags()
	lf.StringVarP(&fv.grid, "grid", "g", "", "Path to the grid file or directory.")
	lf.IntVarP(&fv.workers, "workers", "w", def.WorkerCount, "Number of concurrent workers for the executor.")
	lf.IntVar(&fv.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	lf.StringVar(&fv.workDir, "work-dir", "", "Parent directory for OSKAR scratch files. Defaults to the system temp dir.")
	lf.BoolVar(&fv.keepWorkDir, "keep-work-dir", false, "Keep OSKAR scratch directories after each call.")

	cmd.AddCommand(newRunnersCmd(out, &fv, modules), newVersionCmd(out))
	return cmd, &fv
}

// resolveConfig layers defaults, the config file and explicitly set flags,
// then validates the result.
func resolveConfig(cmd *cobra.Command, fv *flagValues) (*app.Config, error) {
	cfg := app.DefaultConfig()
	if fv.configFile != "" {
		fc, err := app.LoadFile(fv.configFile)
		if err != nil {
			return nil, usageError(err)
		}
		fc.Apply(&cfg)
	}

	cfg.GridPath = fv.grid
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("modules-path") {
		cfg.ModulesPath = fv.modulesPath
	}
	if changed("log-format") {
		cfg.LogFormat = fv.logFormat
	}
	if changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if changed("workers") {
		cfg.WorkerCount = fv.workers
	}
	if changed("healthcheck-port") {
		cfg.HealthcheckPort = fv.healthcheckPort
	}
	if changed("oskar-interferometer-bin") {
		cfg.Oskar.InterferometerBin = fv.interferometer
	}
	if changed("oskar-imager-bin") {
		cfg.Oskar.ImagerBin = fv.imager
	}
	if changed("work-dir") {
		cfg.Oskar.WorkDir = fv.workDir
	}
	if changed("keep-work-dir") {
		cfg.Oskar.KeepWorkDir = fv.keepWorkDir
	}

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return validated, nil
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(out, "oskargrid version %s\n", Version)
		},
	}
}
