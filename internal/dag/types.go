package dag

import (
	"sync"
	"sync/atomic"

	"github.com/vk/oskargrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// State is the execution state of a node.
type State int32

const (
	Pending State = iota
	Running
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Graph is the set of step nodes keyed by ID ("step.<runner>.<name>").
type Graph struct {
	Nodes map[string]*Node
}

// Node is a single step in the graph.
type Node struct {
	ID         string
	Name       string
	StepConfig *config.Step
	Deps       map[string]*Node
	Dependents map[string]*Node

	State  atomic.Int32
	Output cty.Value
	Error  error

	depCount atomic.Int32
	skipOnce sync.Once
}

// GetState returns the node's current state.
func (n *Node) GetState() State {
	return State(n.State.Load())
}

// SetInitialCounters primes the dependency counter before execution.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}
