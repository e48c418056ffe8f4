package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes every top-level block that may appear in any file.
// Manifests and grids can therefore share a directory.
type fileRoot struct {
	Runners []*runnerDefinition `hcl:"runner,block"`
	Steps   []*step             `hcl:"step,block"`
}

// --- Grid ---

// stepArgs represents the content of the 'arguments' block within a step.
type stepArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// step is a runnable instance of a defined runner.
type step struct {
	RunnerType string    `hcl:"runner_type,label"`
	Name       string    `hcl:"instance_name,label"`
	Arguments  *stepArgs `hcl:"arguments,block"`
	DependsOn  []string  `hcl:"depends_on,optional"`
}

// --- Runner manifests ---

type lifecycle struct {
	OnRun string `hcl:"on_run,optional"`
}

type metadata struct {
	AppClass      string  `hcl:"app_class,optional"`
	ExecutionTime float64 `hcl:"execution_time,optional"`
	NumCPUs       int     `hcl:"num_cpus,optional"`
}

type inputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}

type outputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
}

type runnerDefinition struct {
	Type        string              `hcl:"type,label"`
	Description string              `hcl:"description,optional"`
	Lifecycle   *lifecycle          `hcl:"lifecycle,block"`
	Metadata    *metadata           `hcl:"metadata,block"`
	Inputs      []*inputDefinition  `hcl:"input,block"`
	Outputs     []*outputDefinition `hcl:"output,block"`
}
