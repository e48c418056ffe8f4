package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/oskargrid/internal/app"
	"github.com/vk/oskargrid/internal/oskar"
	"github.com/vk/oskargrid/internal/oskar/oskartest"
	"github.com/vk/oskargrid/internal/registry"
	"gonum.org/v1/gonum/mat"
)

var modulesPath = filepath.Join("..", "..", "modules")

// fakeModules ignores the command-line toolkit and binds the core modules
// to tk instead.
func fakeModules(tk *oskartest.Toolkit) ModuleSet {
	return func(oskar.Toolkit) []registry.Module { return app.CoreModules(tk) }
}

func execute(t *testing.T, tk *oskartest.Toolkit, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(&out, fakeModules(tk))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, oskartest.New(), "version")
	require.NoError(t, err)
	assert.Equal(t, "oskargrid version dev\n", out)
}

func TestRunners(t *testing.T) {
	out, err := execute(t, oskartest.New(), "runners", "--modules-path", modulesPath, "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, "RUNNER")
	assert.Regexp(t, `oskar_interferometer\s+OnRunOskarInterferometer\s+oskargrid\.modules\.oskar_interferometer\s+5\s+1`, out)
	assert.Regexp(t, `oskar_imager\s+OnRunOskarImager\s+oskargrid\.modules\.oskar_imager\s+5\s+1`, out)
	assert.Regexp(t, `artifact_info\s+OnRunArtifactInfo\s+-\s+-\s+-`, out)
}

func writeNPY(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, npyio.Write(f, mat.NewDense(2, 3, []float64{20, -30, 1, 20.5, -30.5, 2})))
}

func TestRun_Pipeline(t *testing.T) {
	dir := t.TempDir()
	sky := filepath.Join(dir, "sky.npy")
	writeNPY(t, sky)
	grid := filepath.Join(dir, "main.hcl")
	require.NoError(t, os.WriteFile(grid, []byte(`
step "oskar_interferometer" "sim" {
  arguments {
    inputs  = ["telescope.tm", "`+sky+`"]
    outputs = ["`+filepath.Join(dir, "sim.vis")+`"]
  }
}

step "oskar_imager" "image" {
  arguments {
    inputs  = [step.oskar_interferometer.sim.output.visibilities]
    outputs = ["`+filepath.Join(dir, "image.png")+`"]
  }
}
`), 0o644))

	tk := oskartest.New()
	out, err := execute(t, tk, "-g", grid, "--modules-path", modulesPath, "--log-format", "json", "--workers", "2")
	require.NoError(t, err, out)

	sims, images := tk.Calls()
	assert.Equal(t, 1, sims)
	assert.Equal(t, 1, images)
	assert.Contains(t, out, `"msg":"🏁 Execution finished."`)
	assert.FileExists(t, filepath.Join(dir, "image.png"))
}

func TestRun_NoGridPrintsHelp(t *testing.T) {
	out, err := execute(t, oskartest.New())
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
}

func TestRun_UsageErrors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad log level", []string{"grid.hcl", "--log-level", "loud"}, "invalid log level"},
		{"bad log format", []string{"grid.hcl", "--log-format", "xml"}, "invalid log format"},
		{"zero workers", []string{"grid.hcl", "--workers", "0"}, "worker count must be at least 1"},
		{"too many args", []string{"a.hcl", "b.hcl"}, "accepts at most 1 arg(s)"},
		{"missing config file", []string{"grid.hcl", "--config", "/does/not/exist.toml"}, "opening config file"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, oskartest.New(), tc.args...)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
			assert.Equal(t, 2, ExitCode(err))
		})
	}
}

func TestResolveConfig_Precedence(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "oskargrid.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[log]
level = "warn"
format = "json"

[engine]
workers = 6

[oskar]
imager_bin = "/from/file/oskar_imager"
`), 0o644))

	var captured *app.Config
	cmd, fv := newRootCmd(&bytes.Buffer{}, fakeModules(oskartest.New()))
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		fv.grid = args[0]
		cfg, err := resolveConfig(cmd, fv)
		captured = cfg
		return err
	}
	cmd.SetArgs([]string{"grid.hcl", "--config", cfgPath, "--log-level", "debug", "--oskar-interferometer-bin", "/from/flag/sim"})
	require.NoError(t, cmd.Execute())

	require.NotNil(t, captured)
	assert.Equal(t, "debug", captured.LogLevel, "flag wins over file")
	assert.Equal(t, "json", captured.LogFormat, "file wins over default")
	assert.Equal(t, 6, captured.WorkerCount)
	assert.Equal(t, "/from/file/oskar_imager", captured.Oskar.ImagerBin)
	assert.Equal(t, "/from/flag/sim", captured.Oskar.InterferometerBin)
	assert.Equal(t, "modules", captured.ModulesPath)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 3, ExitCode(&ExitError{Code: 3, Message: "x"}))
}
