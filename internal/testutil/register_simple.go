package testutil

import "github.com/vk/oskargrid/internal/registry"

// SimpleModule registers a fixed set of handlers keyed by handler name, so
// a test can bind manifests written inline to Go functions.
type SimpleModule map[string]*registry.RegisteredRunner

// Register implements the registry.Module interface.
func (m SimpleModule) Register(r *registry.Registry) {
	for name, runner := range m {
		if runner != nil {
			r.RegisterRunner(name, runner)
		}
	}
}
