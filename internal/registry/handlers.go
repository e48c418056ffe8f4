package registry

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/vk/oskargrid/internal/config"
)

// Metadata is the read-only description every runner declares: the
// component class it is published as, its expected run time in seconds and
// the number of CPUs it occupies.
type Metadata struct {
	AppClass      string
	ExecutionTime float64
	NumCPUs       int
}

// RegisteredRunner holds the compiled Go parts of a runner's lifecycle function.
type RegisteredRunner struct {
	NewInput  func() any
	InputType reflect.Type
	NewDeps   func() any
	Fn        any
	Metadata  *Metadata
}

// RegisterRunner registers a Go function for a runner's lifecycle event.
func (r *Registry) RegisterRunner(name string, handler *RegisteredRunner) {
	if _, exists := r.HandlerRegistry[name]; exists {
		panic(fmt.Sprintf("runner handler with name '%s' already registered", name))
	}
	slog.Debug("Registering runner handler.", "name", name)
	r.HandlerRegistry[name] = handler
}

// Handler returns the registered handler for a runner type, resolved
// through the runner's manifest lifecycle.
func (r *Registry) Handler(runnerType string) (*config.RunnerDefinition, *RegisteredRunner, error) {
	def, ok := r.DefinitionRegistry[runnerType]
	if !ok {
		return nil, nil, fmt.Errorf("no runner definition found for type '%s'", runnerType)
	}
	if def.Lifecycle == nil || def.Lifecycle.OnRun == "" {
		return def, nil, fmt.Errorf("runner '%s' has no on_run lifecycle handler", runnerType)
	}
	h, ok := r.HandlerRegistry[def.Lifecycle.OnRun]
	if !ok {
		return def, nil, fmt.Errorf("handler '%s' for runner '%s' is not registered", def.Lifecycle.OnRun, runnerType)
	}
	return def, h, nil
}
