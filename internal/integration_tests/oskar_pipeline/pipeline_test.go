package oskar_pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/oskargrid/internal/app"
	"github.com/vk/oskargrid/internal/driver"
	"github.com/vk/oskargrid/internal/oskar"
	"github.com/vk/oskargrid/internal/oskar/oskartest"
	"github.com/vk/oskargrid/internal/testutil"
	"gonum.org/v1/gonum/mat"
)

// manifests returns the shipped runner manifests keyed by harness path.
func manifests(t *testing.T) map[string]string {
	t.Helper()
	files := make(map[string]string)
	for _, name := range []string{"oskar_interferometer", "oskar_imager", "artifact_info"} {
		b, err := os.ReadFile(filepath.Join("..", "..", "..", "modules", name, "manifest.hcl"))
		require.NoError(t, err)
		files[filepath.Join("modules", name, "manifest.hcl")] = string(b)
	}
	return files
}

func writeSky(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sky.npy")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, npyio.Write(f, mat.NewDense(2, 3, []float64{20, -30, 1, 20.5, -30.5, 3})))
	return path
}

const pipelineGrid = `
step "oskar_interferometer" "sim" {
  arguments {
    inputs          = ["{{dir}}/telescope.tm", "SKY"]
    outputs         = ["{{dir}}/sim.vis"]
    doubleprecision = false
    num_channels    = 2
  }
}

step "oskar_imager" "image" {
  arguments {
    inputs        = [step.oskar_interferometer.sim.output.visibilities]
    outputs       = ["{{dir}}/image.png"]
    size          = 64
    u_wavelengths = 100
  }
}

step "artifact_info" "check" {
  arguments {
    path = step.oskar_imager.image.output.image
  }
}
`

func gridWithSky(sky string) string {
	return strings.ReplaceAll(pipelineGrid, "SKY", sky)
}

func TestOskarPipeline_SimulateImageInspect(t *testing.T) {
	tk := oskartest.New()
	files := manifests(t)
	files["grid/main.hcl"] = gridWithSky(writeSky(t))

	result := testutil.RunIntegrationTest(t, files, app.CoreModules(tk)...)
	require.NoError(t, result.StartupErr)
	require.NoError(t, result.Err, result.LogOutput)

	testutil.AssertStepRan(t, result, "oskar_interferometer", "sim")
	testutil.AssertStepRan(t, result, "oskar_imager", "image")
	testutil.AssertStepRan(t, result, "artifact_info", "check")

	require.Len(t, tk.Skies, 1)
	assert.Equal(t, oskar.Single, tk.Skies[0].Precision())
	assert.Equal(t, 2, tk.Skies[0].NumSources())

	require.Len(t, tk.InterferometerTrees, 1)
	channels, ok := tk.InterferometerTrees[0].Get("observation/num_channels")
	require.True(t, ok)
	assert.EqualValues(t, 2, channels)

	require.Len(t, tk.ImagerTrees, 1)
	vis, ok := tk.ImagerTrees[0].Get("image/input_vis_data")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(result.Dir, "sim.vis"), vis)

	assert.FileExists(t, filepath.Join(result.Dir, "image.png"))
	assert.Contains(t, result.LogOutput, "u_wavelengths and v_wavelengths are accepted but not applied by the imager.")
	assert.Contains(t, result.LogOutput, "content_type=image/png")
}

func TestOskarPipeline_MissingPortsFailBeforeToolkit(t *testing.T) {
	tk := oskartest.New()
	files := manifests(t)
	files["grid/main.hcl"] = `
step "oskar_interferometer" "sim" {
  arguments {
    inputs  = ["telescope.tm"]
    outputs = ["sim.vis"]
  }
}
`
	result := testutil.RunIntegrationTest(t, files, app.CoreModules(tk)...)
	require.NoError(t, result.StartupErr)
	require.Error(t, result.Err)
	assert.True(t, errors.Is(result.Err, driver.ErrConfiguration))

	var cfgErr *driver.ConfigurationError
	require.ErrorAs(t, result.Err, &cfgErr)
	assert.Equal(t, 2, cfgErr.Want)
	assert.Equal(t, 1, cfgErr.Got)

	sims, _ := tk.Calls()
	assert.Zero(t, sims)
	assert.Empty(t, tk.InterferometerTrees)
}

func TestOskarPipeline_ToolkitFailureIsVerbatim(t *testing.T) {
	tk := oskartest.New()
	execErr := &oskar.ExecutionError{Op: "interferometer.run", ExitCode: 1, Stderr: "cannot open telescope model"}
	tk.InterferometerErr = execErr
	files := manifests(t)
	files["grid/main.hcl"] = gridWithSky(writeSky(t))

	result := testutil.RunIntegrationTest(t, files, app.CoreModules(tk)...)
	require.Error(t, result.Err)

	var got *oskar.ExecutionError
	require.ErrorAs(t, result.Err, &got)
	assert.Same(t, execErr, got)
	testutil.AssertStepNotRan(t, result, "oskar_imager", "image")
	testutil.AssertStepNotRan(t, result, "artifact_info", "check")
}
