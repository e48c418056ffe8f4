package dag

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/oskargrid/internal/config"
	bghcl "github.com/vk/oskargrid/internal/hcl"
	"github.com/vk/oskargrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

type echoInput struct {
	Value string `bggo:"value"`
	Fail  bool   `bggo:"fail"`
}

type echoOutput struct {
	Value string `cty:"value"`
}

type echoDeps struct {
	mu    *sync.Mutex
	calls *[]string
	delay time.Duration
}

// newTestRegistry registers an "echo" runner that records its calls and
// returns its input value as output.
func newTestRegistry(calls *[]string, delay time.Duration) *registry.Registry {
	var mu sync.Mutex
	r := registry.New()
	r.RegisterRunner("OnRunEcho", &registry.RegisteredRunner{
		NewInput:  func() any { return new(echoInput) },
		InputType: reflect.TypeOf(echoInput{}),
		NewDeps:   func() any { return &echoDeps{mu: &mu, calls: calls, delay: delay} },
		Fn: func(ctx context.Context, deps *echoDeps, in *echoInput) (any, error) {
			if deps.delay > 0 {
				select {
				case <-time.After(deps.delay):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			deps.mu.Lock()
			*deps.calls = append(*deps.calls, in.Value)
			deps.mu.Unlock()
			if in.Fail {
				return nil, errors.New("echo failed: " + in.Value)
			}
			return echoOutput{Value: in.Value}, nil
		},
	})
	falseVal := cty.False
	r.PopulateDefinitionsFromModel(&config.Model{Runners: map[string]*config.RunnerDefinition{
		"echo": {
			Type:      "echo",
			Lifecycle: &config.Lifecycle{OnRun: "OnRunEcho"},
			Inputs: map[string]*config.InputDefinition{
				"value": {Name: "value", Type: cty.String},
				"fail":  {Name: "fail", Type: cty.Bool, Default: &falseVal, Optional: true},
			},
			Outputs: map[string]*config.OutputDefinition{
				"value": {Name: "value", Type: cty.String},
			},
		},
	}})
	return r
}

func parseExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(src), "grid.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return e
}

func echoStep(t *testing.T, name, value string, dependsOn ...string) *config.Step {
	return &config.Step{
		RunnerType: "echo",
		Name:       name,
		Arguments:  map[string]hcl.Expression{"value": parseExpr(t, value)},
		DependsOn:  dependsOn,
	}
}

func model(steps ...*config.Step) *config.Model {
	return &config.Model{Grid: &config.Grid{Steps: steps}}
}

func TestBuild_Links(t *testing.T) {
	var calls []string
	r := newTestRegistry(&calls, 0)

	g, err := Build(context.Background(), model(
		echoStep(t, "a", `"a"`),
		echoStep(t, "b", `"${step.echo.a.output.value}-b"`),
		echoStep(t, "c", `"c"`, "echo.a", "step.echo.b"),
	), r)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)

	b := g.Nodes["step.echo.b"]
	c := g.Nodes["step.echo.c"]
	assert.Contains(t, b.Deps, "step.echo.a")
	assert.Len(t, c.Deps, 2)
	assert.Len(t, g.Nodes["step.echo.a"].Dependents, 2)
	assert.Equal(t, int32(2), c.depCount.Load())
}

func TestBuild_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		steps   func(t *testing.T) []*config.Step
		wantErr string
	}{
		{
			name: "cycle",
			steps: func(t *testing.T) []*config.Step {
				return []*config.Step{
					echoStep(t, "a", `step.echo.b.output.value`),
					echoStep(t, "b", `step.echo.a.output.value`),
				}
			},
			wantErr: "cycle detected",
		},
		{
			name: "unknown runner",
			steps: func(t *testing.T) []*config.Step {
				return []*config.Step{{RunnerType: "nope", Name: "x"}}
			},
			wantErr: "unknown runner type 'nope'",
		},
		{
			name: "duplicate step",
			steps: func(t *testing.T) []*config.Step {
				return []*config.Step{echoStep(t, "a", `"1"`), echoStep(t, "a", `"2"`)}
			},
			wantErr: "duplicate step definition 'step.echo.a'",
		},
		{
			name: "missing explicit dependency",
			steps: func(t *testing.T) []*config.Step {
				return []*config.Step{echoStep(t, "a", `"a"`, "echo.ghost")}
			},
			wantErr: "depends on non-existent step 'echo.ghost'",
		},
		{
			name: "malformed depends_on",
			steps: func(t *testing.T) []*config.Step {
				return []*config.Step{echoStep(t, "a", `"a"`, "ghost")}
			},
			wantErr: "invalid dependency address format",
		},
		{
			name: "undeclared output",
			steps: func(t *testing.T) []*config.Step {
				return []*config.Step{
					echoStep(t, "a", `"a"`),
					echoStep(t, "b", `step.echo.a.output.missing`),
				}
			},
			wantErr: `reference to undeclared output "missing" on step "step.echo.a"`,
		},
		{
			name: "missing implicit step",
			steps: func(t *testing.T) []*config.Step {
				return []*config.Step{echoStep(t, "b", `step.echo.a.output.value`)}
			},
			wantErr: "references non-existent step 'step.echo.a'",
		},
		{
			name: "unknown variable",
			steps: func(t *testing.T) []*config.Step {
				return []*config.Step{echoStep(t, "b", `var.name`)}
			},
			wantErr: "unknown variable 'var.name'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls []string
			_, err := Build(context.Background(), model(tc.steps(t)...), newTestRegistry(&calls, 0))
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestExecutor_RunPassesOutputs(t *testing.T) {
	var calls []string
	r := newTestRegistry(&calls, 0)
	g, err := Build(context.Background(), model(
		echoStep(t, "a", `"a"`),
		echoStep(t, "b", `"${step.echo.a.output.value}-b"`),
		echoStep(t, "c", `"${step.echo.b.output.value}-c"`),
	), r)
	require.NoError(t, err)

	require.NoError(t, NewExecutor(g, 4, r, bghcl.NewConverter()).Run(context.Background()))

	assert.Equal(t, []string{"a", "a-b", "a-b-c"}, calls)
	for _, n := range g.Nodes {
		assert.Equal(t, Done, n.GetState(), n.ID)
	}
	assert.Equal(t, map[string]any{"value": "a-b-c"}, g.Outputs()["step.echo.c"])
}

func TestExecutor_FailureSkipsDependents(t *testing.T) {
	var calls []string
	r := newTestRegistry(&calls, 0)
	failing := echoStep(t, "a", `"a"`)
	failing.Arguments["fail"] = parseExpr(t, `true`)

	g, err := Build(context.Background(), model(
		failing,
		echoStep(t, "b", `step.echo.a.output.value`),
		echoStep(t, "c", `"c"`, "echo.b"),
	), r)
	require.NoError(t, err)

	err = NewExecutor(g, 2, r, bghcl.NewConverter()).Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "execution failed for step.echo.a: echo failed: a")

	assert.Equal(t, []string{"a"}, calls)
	assert.Equal(t, Failed, g.Nodes["step.echo.b"].GetState())
	assert.ErrorContains(t, g.Nodes["step.echo.c"].Error, "skipped due to upstream failure of 'step.echo.b'")
}

func TestExecutor_DecodeError(t *testing.T) {
	var calls []string
	r := newTestRegistry(&calls, 0)
	g, err := Build(context.Background(), model(&config.Step{RunnerType: "echo", Name: "a"}), r)
	require.NoError(t, err)

	err = NewExecutor(g, 1, r, bghcl.NewConverter()).Run(context.Background())
	assert.ErrorContains(t, err, `missing required argument "value"`)
	assert.Empty(t, calls)
}

func TestExecutor_ParallelWorkers(t *testing.T) {
	var calls []string
	r := newTestRegistry(&calls, 50*time.Millisecond)
	var steps []*config.Step
	for _, name := range []string{"a", "b", "c", "d"} {
		steps = append(steps, echoStep(t, name, `"`+name+`"`))
	}
	g, err := Build(context.Background(), model(steps...), r)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, NewExecutor(g, 4, r, bghcl.NewConverter()).Run(context.Background()))
	assert.Less(t, time.Since(start), 180*time.Millisecond)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, calls)
}

func TestExecutor_Cancellation(t *testing.T) {
	var calls []string
	r := newTestRegistry(&calls, time.Second)
	g, err := Build(context.Background(), model(
		echoStep(t, "a", `"a"`),
		echoStep(t, "b", `step.echo.a.output.value`),
	), r)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = NewExecutor(g, 1, r, bghcl.NewConverter()).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, calls)
	assert.Equal(t, Failed, g.Nodes["step.echo.b"].GetState())
}

func TestExecutor_EmptyGraph(t *testing.T) {
	var calls []string
	r := newTestRegistry(&calls, 0)
	g, err := Build(context.Background(), model(), r)
	require.NoError(t, err)
	assert.NoError(t, NewExecutor(g, 0, r, bghcl.NewConverter()).Run(context.Background()))
}

func TestParseDepAddress(t *testing.T) {
	addr, err := parseDepAddress("oskar_imager.image")
	require.NoError(t, err)
	assert.Equal(t, &depAddress{RunnerType: "oskar_imager", Name: "image"}, addr)

	addr, err = parseDepAddress("step.oskar_imager.image")
	require.NoError(t, err)
	assert.Equal(t, "image", addr.Name)

	for _, bad := range []string{"", "image", "a.b.c", "a[0]"} {
		_, err := parseDepAddress(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatTraversal(t *testing.T) {
	expr := parseExpr(t, `step.echo.a.output["value"][0]`)
	require.Len(t, expr.Variables(), 1)
	assert.Equal(t, `step.echo.a.output["value"][0]`, formatTraversal(expr.Variables()[0]))
}

func TestStateString(t *testing.T) {
	var states atomic.Int32
	states.Store(int32(Running))
	assert.Equal(t, "running", State(states.Load()).String())
	assert.Equal(t, "unknown", State(42).String())
}
