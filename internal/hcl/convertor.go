package hcl

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/oskargrid/internal/config"
	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

var _ config.Converter = (*Converter)(nil)

// DecodeStep evaluates the step's arguments, applies the defaults of def,
// and populates the `bggo`-tagged fields of inputStruct. Arguments that the
// manifest does not declare are rejected. A nil step decodes defaults only.
func (c *Converter) DecodeStep(
	ctx context.Context,
	inputStruct any,
	step *config.Step,
	def *config.RunnerDefinition,
	evalCtx *hcl.EvalContext,
) error {
	logger := ctxlog.FromContext(ctx)
	if def == nil {
		return fmt.Errorf("no runner definition to decode against")
	}
	var args map[string]hcl.Expression
	if step != nil {
		args = step.Arguments
		logger = logger.With("step", step.ID())
	}
	defs := def.Inputs
	logger.Debug("Decoding step arguments.", "runner", def.Type, "arguments", len(args))

	structVal := reflect.ValueOf(inputStruct)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() {
		return fmt.Errorf("inputStruct must be a non-nil pointer")
	}
	structVal = structVal.Elem()
	structType := structVal.Type()

	if unknown := undeclaredArguments(args, defs); len(unknown) > 0 {
		return fmt.Errorf("unsupported argument(s): %s", strings.Join(unknown, ", "))
	}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		lookupName := field.Name
		if tag := field.Tag.Get("bggo"); tag != "" {
			lookupName = strings.Split(tag, ",")[0]
		}

		inputDef, ok := defs[lookupName]
		if !ok {
			continue
		}
		targetPtr := fieldVal.Addr().Interface()

		if argExpr, provided := args[lookupName]; provided {
			val, diags := argExpr.Value(evalCtx)
			if diags.HasErrors() {
				return diags
			}
			if err := c.decode(ctx, val, inputDef.Type, targetPtr); err != nil {
				return fmt.Errorf("failed to decode argument '%s': %w", lookupName, err)
			}
			continue
		}

		if inputDef.Default == nil {
			if !inputDef.Optional {
				return fmt.Errorf("missing required argument %q", lookupName)
			}
			continue
		}
		if err := c.decode(ctx, *inputDef.Default, inputDef.Type, targetPtr); err != nil {
			return fmt.Errorf("failed to apply default for '%s': %w", lookupName, err)
		}
	}
	logger.Debug("Finished HCL body decoding successfully.")
	return nil
}

func undeclaredArguments(args map[string]hcl.Expression, defs map[string]*config.InputDefinition) []string {
	var unknown []string
	for name := range args {
		if _, ok := defs[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// decode converts val first to the manifest type, then to the Go field type.
func (c *Converter) decode(ctx context.Context, val cty.Value, manifestType cty.Type, goVal any) error {
	logger := ctxlog.FromContext(ctx)
	if manifestType != cty.NilType && manifestType != cty.DynamicPseudoType {
		converted, err := convert.Convert(val, manifestType)
		if err != nil {
			return fmt.Errorf("cannot convert %s to manifest type %s: %w", val.Type().FriendlyName(), manifestType.FriendlyName(), err)
		}
		val = converted
	}

	target := reflect.ValueOf(goVal)
	impliedType, err := gocty.ImpliedType(target.Elem().Interface())
	if err != nil {
		logger.Debug("Could not imply cty.Type from Go type, attempting direct decoding.", "go_type", target.Elem().Type().String(), "error", err)
		return gocty.FromCtyValue(val, goVal)
	}

	converted, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}
	if !val.Type().Equals(converted.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", converted.Type().FriendlyName(),
		)
	}
	return gocty.FromCtyValue(converted, goVal)
}

// convertDefault checks a manifest default against the declared type.
func convertDefault(val cty.Value, ty cty.Type) (cty.Value, error) {
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	return converted, nil
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
// cty.Values pass through and pointers are dereferenced.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	if val, ok := v.(cty.Value); ok {
		return val, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return cty.NilVal, nil
		}
		v = rv.Elem().Interface()
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
