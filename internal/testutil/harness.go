// Package testutil holds shared helpers for integration tests: a log
// buffer, throwaway modules and a harness that runs a grid end to end.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/oskargrid/internal/app"
	"github.com/vk/oskargrid/internal/hcl"
	"github.com/vk/oskargrid/internal/registry"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	// Dir is the temporary root the files were written to.
	Dir string
	// StartupErr is set when the app could not be created.
	StartupErr error
	// Err is the error returned by App.Run.
	Err error
	App *app.App
}

// RunIntegrationTest runs the harness with a background context.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, modules...)
}

// RunIntegrationTestWithContext writes files below a temp dir, creates an
// app whose grid path is "grid/" and whose modules path is "modules/", and
// runs it. File names are relative, e.g. "modules/x/manifest.hcl". The
// string "{{dir}}" in any file is replaced with the temp dir.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	gridDir := filepath.Join(tmpDir, "grid")
	modulesDir := filepath.Join(tmpDir, "modules")
	require.NoError(t, os.MkdirAll(gridDir, 0o755))
	require.NoError(t, os.MkdirAll(modulesDir, 0o755))

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(ExpandDir(content, tmpDir)), 0o644))
	}

	cfg := app.DefaultConfig()
	cfg.GridPath = gridDir
	cfg.ModulesPath = modulesDir
	cfg.LogLevel = "debug"
	cfg.WorkerCount = 4

	logBuffer := &SafeBuffer{}
	result := &HarnessResult{Dir: tmpDir}
	defer func() {
		result.LogOutput = logBuffer.String()
		if os.Getenv("BGGO_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
		}
	}()

	testApp, err := app.NewApp(logBuffer, &cfg, hcl.NewLoader(), modules...)
	if err != nil {
		result.StartupErr = err
		return result
	}
	result.App = testApp
	result.Err = testApp.Run(ctx)
	return result
}
