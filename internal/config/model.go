package config

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is everything the loader read: runner manifests keyed by runner
// type, plus the steps of the grid.
type Model struct {
	Runners map[string]*RunnerDefinition
	Grid    *Grid
}

// Grid is the ordered list of steps found in the grid files.
type Grid struct {
	Steps []*Step
}

// Step is one `step "<runner>" "<name>"` block.
type Step struct {
	RunnerType string
	Name       string
	Arguments  map[string]hcl.Expression
	DependsOn  []string

	// Source is the file the step was read from, empty for steps built in code.
	Source string
}

// StepID is the address other steps use to reference a step.
func StepID(runnerType, name string) string {
	return fmt.Sprintf("step.%s.%s", runnerType, name)
}

// ID returns the step's address, e.g. "step.oskar_imager.image".
func (s *Step) ID() string { return StepID(s.RunnerType, s.Name) }

// RunnerDefinition is a runner manifest: the named read-write parameters a
// step may set, the outputs it exposes and the handler that runs it.
type RunnerDefinition struct {
	Type        string
	Description string
	Lifecycle   *Lifecycle
	Metadata    *Metadata
	Inputs      map[string]*InputDefinition
	Outputs     map[string]*OutputDefinition

	Source string
}

// InputNames returns the declared input names in sorted order.
func (d *RunnerDefinition) InputNames() []string {
	names := make([]string, 0, len(d.Inputs))
	for name := range d.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lifecycle names the Go handler bound to the on_run event.
type Lifecycle struct {
	OnRun string
}

// Metadata is the read-only description of a runner: the component class
// it implements and the resources a scheduler should budget for it.
type Metadata struct {
	AppClass      string
	ExecutionTime float64
	NumCPUs       int
}

// InputDefinition is one `input` block. An input with a default, or with
// an explicit null default, is optional.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// OutputDefinition is one `output` block.
type OutputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
}
