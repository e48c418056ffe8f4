package dag

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// executeStepNode decodes a step's arguments, calls its handler and stores
// the handler's output on the node.
func (e *Executor) executeStepNode(ctx context.Context, node *Node) error {
	logger := ctxlog.FromContext(ctx).With("step", node.ID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("▶️ Starting step")

	runnerDef, handler, err := e.registry.Handler(node.StepConfig.RunnerType)
	if err != nil {
		return err
	}

	var inputStruct any
	if handler.NewInput != nil {
		inputStruct = handler.NewInput()
	}
	if inputStruct != nil {
		evalCtx := e.buildEvalContext(ctx, node)
		if err := e.converter.DecodeStep(ctx, inputStruct, node.StepConfig, runnerDef, evalCtx); err != nil {
			return fmt.Errorf("decoding arguments for %s: %w", node.ID, err)
		}
	}
	logger.Debug("Step Input:", "data", inputStruct)

	var depsStruct any
	if handler.NewDeps != nil {
		depsStruct = handler.NewDeps()
	}

	logger.Debug("Calling step run handler.", "handler", runnerDef.Lifecycle.OnRun)
	handlerFunc := reflect.ValueOf(handler.Fn)
	fnType := handlerFunc.Type()
	callArgs := []reflect.Value{reflect.ValueOf(ctx), argValue(depsStruct, fnType.In(1)), argValue(inputStruct, fnType.In(2))}

	results := handlerFunc.Call(callArgs)
	outputVal, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return errResult.(error)
	}

	out, err := e.converter.ToCtyValue(outputVal)
	if err != nil {
		return fmt.Errorf("converting output of %s: %w", node.ID, err)
	}
	node.Output = out
	logger.Debug("Step Output:", "data", formatValueForLogs(node.Output))

	logger.Info("✅ Finished step")
	return nil
}

// argValue returns v as a call argument, or the zero value of want when v
// is nil.
func argValue(v any, want reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(want)
	}
	return reflect.ValueOf(v)
}

// buildEvalContext exposes the outputs of a node's finished dependencies as
// step.<runner_type>.<name>.output.
func (e *Executor) buildEvalContext(ctx context.Context, node *Node) *hcl.EvalContext {
	logger := ctxlog.FromContext(ctx)
	stepOutputsByRunner := make(map[string]map[string]cty.Value)

	for _, depNode := range node.Deps {
		if depNode.GetState() != Done || depNode.Output == cty.NilVal {
			continue
		}
		runnerType := depNode.StepConfig.RunnerType
		if _, ok := stepOutputsByRunner[runnerType]; !ok {
			stepOutputsByRunner[runnerType] = make(map[string]cty.Value)
		}
		stepOutputsByRunner[runnerType][depNode.Name] = cty.ObjectVal(map[string]cty.Value{
			"output": depNode.Output,
		})
	}

	finalStepOutputs := make(map[string]cty.Value, len(stepOutputsByRunner))
	for runnerType, instances := range stepOutputsByRunner {
		finalStepOutputs[runnerType] = cty.ObjectVal(instances)
	}
	logger.Debug("Built HCL evaluation context.", "dependencies", len(node.Deps))
	return &hcl.EvalContext{Variables: map[string]cty.Value{
		"step": cty.ObjectVal(finalStepOutputs),
	}}
}

// Outputs returns the output of every finished step, keyed by node ID.
func (g *Graph) Outputs() map[string]any {
	out := make(map[string]any)
	for id, node := range g.Nodes {
		if node.GetState() == Done {
			out[id] = formatValueForLogs(node.Output)
		}
	}
	return out
}
