package testutil

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/vk/oskargrid/internal/registry"
)

// SleeperManifest declares the "sleeper" runner served by MockSleeperModule.
const SleeperManifest = `
runner "sleeper" {
  lifecycle {
    on_run = "OnRunSleeper"
  }
  input "id" {
    type = string
  }
  input "fail" {
    type    = bool
    default = false
  }
  output "id" {
    type = string
  }
}
`

// ExecutionRecord holds the start and end times for a single step's execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// SleeperInput is the input of the "sleeper" runner.
type SleeperInput struct {
	ID   string `bggo:"id"`
	Fail bool   `bggo:"fail"`
}

// SleeperOutput is the output of the "sleeper" runner.
type SleeperOutput struct {
	ID string `cty:"id"`
}

// MockSleeperModule records the execution time of each step that uses it.
type MockSleeperModule struct {
	mu             sync.Mutex
	executionTimes map[string]*ExecutionRecord
	sleepDuration  time.Duration
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		executionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
	}
}

// Records returns a copy of the recorded execution times keyed by step id.
func (m *MockSleeperModule) Records() map[string]ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ExecutionRecord, len(m.executionTimes))
	for id, rec := range m.executionTimes {
		out[id] = *rec
	}
	return out
}

// Register registers the "sleeper" runner's Go handler.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunSleeper", &registry.RegisteredRunner{
		NewInput:  func() any { return new(SleeperInput) },
		InputType: reflect.TypeOf(SleeperInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, _ *struct{}, input *SleeperInput) (any, error) {
			start := time.Now()
			select {
			case <-time.After(m.sleepDuration):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			end := time.Now()

			m.mu.Lock()
			m.executionTimes[input.ID] = &ExecutionRecord{Start: start, End: end}
			m.mu.Unlock()

			if input.Fail {
				return nil, fmt.Errorf("sleeper %s failed", input.ID)
			}
			return SleeperOutput{ID: input.ID}, nil
		},
	})
}
