package registry

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/vk/oskargrid/internal/config"
	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// ValidateRegistry performs a strict parity check between manifests and Go code.
// It checks the presence and types of inputs, the handler signature and the
// runner metadata.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	types := make([]string, 0, len(r.DefinitionRegistry))
	for runnerType := range r.DefinitionRegistry {
		types = append(types, runnerType)
	}
	sort.Strings(types)

	for _, runnerType := range types {
		def := r.DefinitionRegistry[runnerType]
		if def.Lifecycle == nil || def.Lifecycle.OnRun == "" {
			errs = append(errs, fmt.Sprintf("runner '%s': manifest has no lifecycle.on_run handler", runnerType))
			continue
		}
		handler, ok := r.HandlerRegistry[def.Lifecycle.OnRun]
		if !ok {
			logger.Warn("Runner manifest references an unregistered handler.", "runner", runnerType, "handler", def.Lifecycle.OnRun)
			continue
		}

		errs = append(errs, validateSignature(runnerType, handler)...)
		errs = append(errs, validateMetadata(runnerType, def.Metadata, handler.Metadata)...)

		if handler.InputType == nil {
			if len(def.Inputs) > 0 {
				errs = append(errs, fmt.Sprintf("runner '%s': manifest declares inputs, but Go handler has no input struct", runnerType))
			}
			continue
		}

		hclInputs := make(map[string]struct{})
		for name := range def.Inputs {
			hclInputs[name] = struct{}{}
		}

		goInputs := make(map[string]reflect.StructField)
		inputType := handler.InputType
		for i := 0; i < inputType.NumField(); i++ {
			field := inputType.Field(i)
			if !field.IsExported() {
				continue
			}
			tag := field.Tag.Get("bggo")
			tagName := strings.Split(tag, ",")[0]
			if tagName != "" && tagName != "-" {
				goInputs[tagName] = field
			}
		}

		for _, name := range sortedKeys(goInputs) {
			if _, ok := hclInputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("runner '%s': Go struct has field for input '%s' which is not declared in manifest", runnerType, name))
			}
		}
		for _, name := range sortedKeys(hclInputs) {
			if _, ok := goInputs[name]; !ok {
				errs = append(errs, fmt.Sprintf("runner '%s': manifest declares input '%s' which is not found in Go struct", runnerType, name))
			}
		}

		for _, name := range def.InputNames() {
			inputDef := def.Inputs[name]
			goField, ok := goInputs[name]
			if !ok {
				continue
			}

			manifestType := inputDef.Type
			if manifestType.Equals(cty.DynamicPseudoType) {
				logger.Warn("Manifest for runner has input with 'type = any', which disables static type checking. Consider using a specific type like 'string', 'number', or 'bool'.", "runner", runnerType, "input", name)
				continue
			}

			goFieldType, err := gocty.ImpliedType(reflect.Zero(goField.Type).Interface())
			if err != nil {
				errs = append(errs, fmt.Sprintf("runner '%s', input '%s': could not imply cty type from Go field type %s: %v", runnerType, name, goField.Type, err))
				continue
			}

			if !manifestType.Equals(goFieldType) {
				errs = append(errs, fmt.Sprintf("runner '%s', input '%s': type mismatch. Manifest requires '%s' but Go struct field '%s' provides compatible type '%s'",
					runnerType, name, manifestType.FriendlyName(), goField.Name, goFieldType.FriendlyName()))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// validateSignature checks that Fn has the shape
// func(context.Context, *Deps, *Input) (any, error).
func validateSignature(runnerType string, h *RegisteredRunner) []string {
	fn := reflect.TypeOf(h.Fn)
	if fn == nil || fn.Kind() != reflect.Func {
		return []string{fmt.Sprintf("runner '%s': handler is not a function", runnerType)}
	}
	if fn.NumIn() != 3 || fn.NumOut() != 2 {
		return []string{fmt.Sprintf("runner '%s': handler must take (ctx, deps, input) and return (output, error), got %s", runnerType, fn)}
	}
	var errs []string
	if !fn.In(0).Implements(contextType) {
		errs = append(errs, fmt.Sprintf("runner '%s': handler's first parameter must be a context.Context, got %s", runnerType, fn.In(0)))
	}
	if !fn.Out(1).Implements(errorType) {
		errs = append(errs, fmt.Sprintf("runner '%s': handler's last result must be an error, got %s", runnerType, fn.Out(1)))
	}
	if h.InputType != nil && fn.In(2) != reflect.PointerTo(h.InputType) {
		errs = append(errs, fmt.Sprintf("runner '%s': handler takes %s but input type is %s", runnerType, fn.In(2), h.InputType))
	}
	return errs
}

// validateMetadata compares the manifest metadata block with the metadata
// registered from Go. A runner may declare it in neither place.
func validateMetadata(runnerType string, manifest *config.Metadata, goMeta *Metadata) []string {
	switch {
	case manifest == nil && goMeta == nil:
		return nil
	case manifest == nil:
		return []string{fmt.Sprintf("runner '%s': Go handler declares metadata but manifest has no metadata block", runnerType)}
	case goMeta == nil:
		return []string{fmt.Sprintf("runner '%s': manifest declares metadata but Go handler does not", runnerType)}
	}
	var errs []string
	if manifest.AppClass != goMeta.AppClass {
		errs = append(errs, fmt.Sprintf("runner '%s': metadata app_class mismatch: manifest %q, Go %q", runnerType, manifest.AppClass, goMeta.AppClass))
	}
	if manifest.ExecutionTime != goMeta.ExecutionTime {
		errs = append(errs, fmt.Sprintf("runner '%s': metadata execution_time mismatch: manifest %g, Go %g", runnerType, manifest.ExecutionTime, goMeta.ExecutionTime))
	}
	if manifest.NumCPUs != goMeta.NumCPUs {
		errs = append(errs, fmt.Sprintf("runner '%s': metadata num_cpus mismatch: manifest %d, Go %d", runnerType, manifest.NumCPUs, goMeta.NumCPUs))
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
