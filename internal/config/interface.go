package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader reads manifests and grids in one concrete syntax.
type Loader interface {
	// Load reads every file below paths (files or directories) and returns
	// the model together with the Converter that understands its
	// expressions.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter moves values between the loaded configuration and Go.
type Converter interface {
	// DecodeStep fills a runner's input struct from a step's arguments,
	// evaluated against evalCtx, falling back to the defaults declared in
	// def. Missing required inputs and undeclared arguments are errors.
	DecodeStep(
		ctx context.Context,
		inputStruct any,
		step *Step,
		def *RunnerDefinition,
		evalCtx *hcl.EvalContext,
	) error

	// ToCtyValue turns a handler's return value into the value exposed as
	// step.<runner>.<name>.output.
	ToCtyValue(v any) (cty.Value, error)
}
