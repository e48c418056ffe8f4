package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/oskargrid/internal/config"
	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// isExprDefined reports whether an optional attribute was actually written
// in the source. gohcl fills omitted optional expression fields with a
// zero-width placeholder, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	defined := rng.End.Byte > rng.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", rng.String(),
		"is_defined", defined,
	)
	return defined
}

func translateInputDefinition(ctx context.Context, in *inputDefinition, runnerType string) (*config.InputDefinition, error) {
	parsedType, err := typeExprToCtyType(ctx, in.Type)
	if err != nil {
		return nil, fmt.Errorf("in runner '%s', input '%s': %w", runnerType, in.Name, err)
	}

	def := &config.InputDefinition{
		Name:        in.Name,
		Type:        parsedType,
		Description: in.Description,
	}
	if !isExprDefined(ctx, in.Default, "default") {
		return def, nil
	}

	val, diags := in.Default.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid default value for input '%s' in runner '%s': %w", in.Name, runnerType, diags)
	}
	if val.IsNull() {
		def.Optional = true
		return def, nil
	}
	if parsedType != cty.DynamicPseudoType {
		converted, err := convertDefault(val, parsedType)
		if err != nil {
			return nil, fmt.Errorf("default value for input '%s' in runner '%s': %w", in.Name, runnerType, err)
		}
		val = converted
	}
	def.Default = &val
	def.Optional = true
	return def, nil
}

// translateRunnerDefinition converts the HCL-specific runner schema into the agnostic model.
func translateRunnerDefinition(ctx context.Context, s *runnerDefinition) (*config.RunnerDefinition, error) {
	r := &config.RunnerDefinition{
		Type:        s.Type,
		Description: s.Description,
		Inputs:      make(map[string]*config.InputDefinition),
		Outputs:     make(map[string]*config.OutputDefinition),
	}
	if s.Lifecycle != nil {
		r.Lifecycle = &config.Lifecycle{OnRun: s.Lifecycle.OnRun}
	}
	if s.Metadata != nil {
		r.Metadata = &config.Metadata{
			AppClass:      s.Metadata.AppClass,
			ExecutionTime: s.Metadata.ExecutionTime,
			NumCPUs:       s.Metadata.NumCPUs,
		}
	}

	for _, in := range s.Inputs {
		if _, dup := r.Inputs[in.Name]; dup {
			return nil, fmt.Errorf("runner '%s' declares input '%s' twice", s.Type, in.Name)
		}
		def, err := translateInputDefinition(ctx, in, s.Type)
		if err != nil {
			return nil, err
		}
		r.Inputs[in.Name] = def
	}

	for _, out := range s.Outputs {
		parsedType, err := typeExprToCtyType(ctx, out.Type)
		if err != nil {
			return nil, fmt.Errorf("in runner '%s', output '%s': %w", s.Type, out.Name, err)
		}
		r.Outputs[out.Name] = &config.OutputDefinition{
			Name:        out.Name,
			Type:        parsedType,
			Description: out.Description,
		}
	}
	return r, nil
}

// translateStep converts the HCL-specific step schema into the agnostic model.
func translateStep(s *step) (*config.Step, error) {
	args, err := extractBodyAttributes(s.Arguments)
	if err != nil {
		return nil, fmt.Errorf("step '%s': %w", config.StepID(s.RunnerType, s.Name), err)
	}
	return &config.Step{
		RunnerType: s.RunnerType,
		Name:       s.Name,
		Arguments:  args,
		DependsOn:  s.DependsOn,
	}, nil
}

// extractBodyAttributes converts an arguments block into a map of expressions.
func extractBodyAttributes(block *stepArgs) (map[string]hcl.Expression, error) {
	if block == nil || block.Body == nil {
		return nil, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap, nil
}
