package hcl

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/oskargrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

type testInput struct {
	Inputs    []string `bggo:"inputs"`
	Size      int      `bggo:"size"`
	FOVDeg    float64  `bggo:"fov_deg"`
	GPU       bool     `bggo:"usegpu"`
	FreqMax   string   `bggo:"freq_max_hz"`
	Untracked string
}

func expr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return e
}

func defaultVal(v cty.Value) *cty.Value { return &v }

func testDef() *config.RunnerDefinition {
	return &config.RunnerDefinition{Type: "oskar_imager", Inputs: map[string]*config.InputDefinition{
		"inputs":      {Name: "inputs", Type: cty.List(cty.String)},
		"size":        {Name: "size", Type: cty.Number, Default: defaultVal(cty.NumberIntVal(256)), Optional: true},
		"fov_deg":     {Name: "fov_deg", Type: cty.Number, Default: defaultVal(cty.NumberFloatVal(2)), Optional: true},
		"usegpu":      {Name: "usegpu", Type: cty.Bool, Default: defaultVal(cty.False), Optional: true},
		"freq_max_hz": {Name: "freq_max_hz", Type: cty.String, Default: defaultVal(cty.StringVal("max")), Optional: true},
	}}
}

func testStep(args map[string]hcl.Expression) *config.Step {
	return &config.Step{RunnerType: "oskar_imager", Name: "image", Arguments: args}
}

func TestConverter_DecodeStep(t *testing.T) {
	ctx := context.Background()
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{
		"step": cty.ObjectVal(map[string]cty.Value{
			"oskar_interferometer": cty.ObjectVal(map[string]cty.Value{
				"sim": cty.ObjectVal(map[string]cty.Value{
					"output": cty.ObjectVal(map[string]cty.Value{"visibilities": cty.StringVal("sim.vis")}),
				}),
			}),
		}),
	}}

	t.Run("arguments and defaults", func(t *testing.T) {
		var in testInput
		err := NewConverter().DecodeStep(ctx, &in, testStep(map[string]hcl.Expression{
			"inputs": expr(t, `[step.oskar_interferometer.sim.output.visibilities]`),
			"size":   expr(t, `512`),
			"usegpu": expr(t, `true`),
		}), testDef(), evalCtx)
		require.NoError(t, err)

		want := testInput{Inputs: []string{"sim.vis"}, Size: 512, FOVDeg: 2, GPU: true, FreqMax: "max"}
		if diff := cmp.Diff(want, in); diff != "" {
			t.Errorf("decoded input mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("string converts to number", func(t *testing.T) {
		var in testInput
		err := NewConverter().DecodeStep(ctx, &in, testStep(map[string]hcl.Expression{
			"inputs":  expr(t, `[]`),
			"fov_deg": expr(t, `"1.5"`),
		}), testDef(), nil)
		require.NoError(t, err)
		assert.Equal(t, 1.5, in.FOVDeg)
		assert.Empty(t, in.Inputs)
	})

	t.Run("missing required", func(t *testing.T) {
		var in testInput
		err := NewConverter().DecodeStep(ctx, &in, testStep(nil), testDef(), nil)
		assert.EqualError(t, err, `missing required argument "inputs"`)
	})

	t.Run("undeclared argument", func(t *testing.T) {
		var in testInput
		err := NewConverter().DecodeStep(ctx, &in, testStep(map[string]hcl.Expression{
			"inputs": expr(t, `[]`),
			"colour": expr(t, `"jet"`),
		}), testDef(), nil)
		assert.EqualError(t, err, "unsupported argument(s): colour")
	})

	t.Run("type mismatch", func(t *testing.T) {
		var in testInput
		err := NewConverter().DecodeStep(ctx, &in, testStep(map[string]hcl.Expression{
			"inputs": expr(t, `[]`),
			"usegpu": expr(t, `"sometimes"`),
		}), testDef(), nil)
		assert.ErrorContains(t, err, "failed to decode argument 'usegpu'")
	})

	t.Run("defaults only", func(t *testing.T) {
		def := testDef()
		delete(def.Inputs, "inputs")
		var in testInput
		require.NoError(t, NewConverter().DecodeStep(ctx, &in, nil, def, nil))
		assert.Equal(t, testInput{Size: 256, FOVDeg: 2, FreqMax: "max"}, in)
	})

	t.Run("non-pointer target", func(t *testing.T) {
		err := NewConverter().DecodeStep(ctx, testInput{}, nil, testDef(), nil)
		assert.ErrorContains(t, err, "non-nil pointer")
	})

	t.Run("no definition", func(t *testing.T) {
		var in testInput
		err := NewConverter().DecodeStep(ctx, &in, nil, nil, nil)
		assert.EqualError(t, err, "no runner definition to decode against")
	})
}

func TestConverter_ToCtyValue(t *testing.T) {
	type output struct {
		Image string `cty:"image"`
		Bytes int64  `cty:"bytes"`
	}
	c := NewConverter()

	val, err := c.ToCtyValue(output{Image: "a.png", Bytes: 10})
	require.NoError(t, err)
	assert.Equal(t, "a.png", val.GetAttr("image").AsString())

	val, err = c.ToCtyValue(&output{Image: "b.png"})
	require.NoError(t, err)
	assert.Equal(t, "b.png", val.GetAttr("image").AsString())

	passthrough := cty.StringVal("x")
	val, err = c.ToCtyValue(passthrough)
	require.NoError(t, err)
	assert.True(t, val.RawEquals(passthrough))

	val, err = c.ToCtyValue(nil)
	require.NoError(t, err)
	assert.Equal(t, cty.NilVal, val)

	_, err = c.ToCtyValue(make(chan int))
	assert.Error(t, err)
}
