package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vk/oskargrid/internal/app"
	"github.com/vk/oskargrid/internal/hcl"
	"github.com/vk/oskargrid/internal/oskar"
)

// newRunnersCmd lists the runners found in the modules path together with
// their read-only metadata.
func newRunnersCmd(out io.Writer, fv *flagValues, modules ModuleSet) *cobra.Command {
	return &cobra.Command{
		Use:   "runners",
		Short: "List available runners and their metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.DefaultConfig()
			if fv.configFile != "" {
				fc, err := app.LoadFile(fv.configFile)
				if err != nil {
					return usageError(err)
				}
				fc.Apply(&cfg)
			}
			if cmd.Flags().Changed("modules-path") {
				cfg.ModulesPath = fv.modulesPath
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = fv.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = fv.logFormat
			}
			if cfg.ModulesPath == "" {
				return usageError(fmt.Errorf("--modules-path cannot be empty"))
			}

			a, err := app.NewApp(cmd.ErrOrStderr(), &cfg, hcl.NewLoader(), modules(oskar.NewCLI(cfg.Oskar))...)
			if err != nil {
				return err
			}
			return printRunners(out, a)
		},
	}
}

func printRunners(out io.Writer, a *app.App) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUNNER\tHANDLER\tAPP CLASS\tEXEC TIME\tCPUS\tDESCRIPTION")
	for _, r := range a.Registry().Runners() {
		handler := r.Handler
		if !r.Registered {
			handler += " (unregistered)"
		}
		appClass, execTime, cpus := "-", "-", "-"
		if r.Metadata != nil {
			appClass = r.Metadata.AppClass
			execTime = strconv.FormatFloat(r.Metadata.ExecutionTime, 'g', -1, 64)
			cpus = strconv.Itoa(r.Metadata.NumCPUs)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Type, handler, appClass, execTime, cpus, r.Description)
	}
	return tw.Flush()
}
