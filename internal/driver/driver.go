// Package driver defines the contract shared by the OSKAR components: ports,
// artifacts, the single-shot lifecycle and the configuration error.
package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("invalid driver configuration")
	// ErrNotConfigured is returned by Run before Initialize.
	ErrNotConfigured = errors.New("driver is not configured")
	// ErrAlreadyRun is returned by a second Run.
	ErrAlreadyRun = errors.New("driver has already run")
)

// Ports are the artifact paths connected upstream (Inputs) and
// downstream (Outputs) of a component, in declaration order.
type Ports struct {
	Inputs  []string
	Outputs []string
}

// Abs returns a copy of p with every non-empty path made absolute against
// the current working directory.
func (p Ports) Abs() (Ports, error) {
	abs := func(paths []string) ([]string, error) {
		out := make([]string, len(paths))
		for i, path := range paths {
			if path == "" {
				continue
			}
			a, err := filepath.Abs(path)
			if err != nil {
				return nil, fmt.Errorf("resolving port %q: %w", path, err)
			}
			out[i] = a
		}
		return out, nil
	}
	in, err := abs(p.Inputs)
	if err != nil {
		return Ports{}, err
	}
	out, err := abs(p.Outputs)
	if err != nil {
		return Ports{}, err
	}
	return Ports{Inputs: in, Outputs: out}, nil
}

// Artifact describes what a successful Run wrote.
type Artifact struct {
	Path        string
	ContentType string
	// Size is the number of bytes written by the driver itself, or zero
	// when the external toolkit wrote the file.
	Size int64
}

// Contract is implemented by every OSKAR component.
type Contract[C any] interface {
	// Initialize stores configuration and ports. It performs no external
	// calls and may be repeated until Run.
	Initialize(cfg C, ports Ports) error
	// Run executes the component once.
	Run(ctx context.Context) (*Artifact, error)
}

// ConfigurationError reports a component wired with too few ports.
type ConfigurationError struct {
	Component string
	Port      string
	Want      int
	Got       int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: need at least %d %s, got %d", e.Component, e.Want, e.Port, e.Got)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// RequirePorts checks that ports has at least the given number of inputs
// and outputs.
func RequirePorts(component string, ports Ports, inputs, outputs int) error {
	if len(ports.Inputs) < inputs {
		return &ConfigurationError{Component: component, Port: "inputs", Want: inputs, Got: len(ports.Inputs)}
	}
	if len(ports.Outputs) < outputs {
		return &ConfigurationError{Component: component, Port: "outputs", Want: outputs, Got: len(ports.Outputs)}
	}
	return nil
}

// State is a position in the driver lifecycle.
type State int

const (
	Unconfigured State = iota
	Configured
	Running
	Executed
	Failed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Executed:
		return "executed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Lifecycle tracks the single-shot state machine. The zero value is
// Unconfigured and ready to use.
type Lifecycle struct {
	mu    sync.Mutex
	state State
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Configure moves to Configured. It fails once Run has started.
func (l *Lifecycle) Configure() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state >= Running {
		return ErrAlreadyRun
	}
	l.state = Configured
	return nil
}

// Begin claims the single run. The returned func records the outcome and
// must be called exactly once.
func (l *Lifecycle) Begin() (finish func(err error), err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case Unconfigured:
		return nil, ErrNotConfigured
	case Running, Executed, Failed:
		return nil, ErrAlreadyRun
	}
	l.state = Running
	return func(err error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.state = Failed
			return
		}
		l.state = Executed
	}, nil
}
