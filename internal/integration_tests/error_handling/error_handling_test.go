package error_handling

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/oskargrid/internal/testutil"
)

func TestErrorHandling_StepFailureSkipsDependents(t *testing.T) {
	t.Parallel()
	result := testutil.RunIntegrationTest(t, map[string]string{
		"modules/sleeper/manifest.hcl": testutil.SleeperManifest,
		"grid/main.hcl": `
step "sleeper" "A" {
  arguments {
    id   = "A"
    fail = true
  }
}
step "sleeper" "B" {
  arguments {
    id = step.sleeper.A.output.id
  }
}
step "sleeper" "C" {
  arguments {
    id = "C"
  }
  depends_on = ["sleeper.B"]
}
`,
	}, testutil.NewMockSleeperModule(time.Millisecond))

	require.NoError(t, result.StartupErr)
	require.Error(t, result.Err)
	assert.ErrorContains(t, result.Err, "execution failed for step.sleeper.A: sleeper A failed")
	testutil.AssertStepNotRan(t, result, "sleeper", "B")
	testutil.AssertStepNotRan(t, result, "sleeper", "C")
}

func TestErrorHandling_RequiredArgumentMissing(t *testing.T) {
	t.Parallel()
	result := testutil.RunIntegrationTest(t, map[string]string{
		"modules/sleeper/manifest.hcl": testutil.SleeperManifest,
		"grid/main.hcl": `
step "sleeper" "A" {
  arguments {
    fail = false
  }
}
`,
	}, testutil.NewMockSleeperModule(time.Millisecond))

	require.NoError(t, result.StartupErr)
	assert.ErrorContains(t, result.Err, `missing required argument "id"`)
}

func TestErrorHandling_UndeclaredArgument(t *testing.T) {
	t.Parallel()
	result := testutil.RunIntegrationTest(t, map[string]string{
		"modules/sleeper/manifest.hcl": testutil.SleeperManifest,
		"grid/main.hcl": `
step "sleeper" "A" {
  arguments {
    id       = "A"
    colormap = "jet"
  }
}
`,
	}, testutil.NewMockSleeperModule(time.Millisecond))

	assert.ErrorContains(t, result.Err, "unsupported argument(s): colormap")
}

func TestErrorHandling_UndeclaredOutputReference(t *testing.T) {
	t.Parallel()
	result := testutil.RunIntegrationTest(t, map[string]string{
		"modules/sleeper/manifest.hcl": testutil.SleeperManifest,
		"grid/main.hcl": `
step "sleeper" "A" {
  arguments {
    id = "A"
  }
}
step "sleeper" "B" {
  arguments {
    id = step.sleeper.A.output.name
  }
}
`,
	}, testutil.NewMockSleeperModule(time.Millisecond))

	assert.ErrorContains(t, result.Err, `reference to undeclared output "name" on step "step.sleeper.A"`)
	testutil.AssertStepNotRan(t, result, "sleeper", "A")
}

func TestErrorHandling_InvalidHCLIsRejected(t *testing.T) {
	t.Parallel()
	result := testutil.RunIntegrationTest(t, map[string]string{
		"grid/main.hcl": `step "sleeper" "A" {`,
	}, testutil.NewMockSleeperModule(time.Millisecond))

	assert.ErrorContains(t, result.StartupErr, "failed to parse HCL file")
	assert.Nil(t, result.App)
}

func TestErrorHandling_ParityCheck(t *testing.T) {
	t.Parallel()
	type input struct {
		Count int `bggo:"count"`
	}
	module := testutil.SimpleModule{
		"OnRunCounter": {
			NewInput:  func() any { return new(input) },
			InputType: reflect.TypeOf(input{}),
			NewDeps:   func() any { return new(struct{}) },
			Fn:        func(context.Context, *struct{}, *input) (any, error) { return nil, nil },
		},
	}

	result := testutil.RunIntegrationTest(t, map[string]string{
		"modules/counter/manifest.hcl": `
runner "counter" {
  lifecycle {
    on_run = "OnRunCounter"
  }
  input "count" {
    type = string
  }
  input "label" {
    type = string
  }
}
`,
	}, module)

	require.Error(t, result.StartupErr)
	assert.ErrorContains(t, result.StartupErr, "runner 'counter', input 'count': type mismatch")
	assert.ErrorContains(t, result.StartupErr, "manifest declares input 'label' which is not found in Go struct")
}

func TestErrorHandling_CancelledRun(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	result := testutil.RunIntegrationTestWithContext(ctx, t, map[string]string{
		"modules/sleeper/manifest.hcl": testutil.SleeperManifest,
		"grid/main.hcl": `
step "sleeper" "A" {
  arguments {
    id = "A"
  }
}
step "sleeper" "B" {
  arguments {
    id = step.sleeper.A.output.id
  }
}
`,
	}, testutil.NewMockSleeperModule(5*time.Second))

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
	testutil.AssertStepNotRan(t, result, "sleeper", "B")
}
