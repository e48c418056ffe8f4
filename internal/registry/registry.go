package registry

import (
	"sort"

	"github.com/vk/oskargrid/internal/config"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered handlers and definitions for a single
// application instance.
type Registry struct {
	HandlerRegistry    map[string]*RegisteredRunner
	DefinitionRegistry map[string]*config.RunnerDefinition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		HandlerRegistry:    make(map[string]*RegisteredRunner),
		DefinitionRegistry: make(map[string]*config.RunnerDefinition),
	}
}

// PopulateDefinitionsFromModel copies the loaded module definitions from the
// config model into the registry for easy access during execution.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for key, val := range model.Runners {
		r.DefinitionRegistry[key] = val
	}
}

// RunnerInfo summarises one runner for listing.
type RunnerInfo struct {
	Type        string
	Description string
	Handler     string
	Registered  bool
	Metadata    *Metadata
}

// Runners lists every runner definition, sorted by type.
func (r *Registry) Runners() []RunnerInfo {
	infos := make([]RunnerInfo, 0, len(r.DefinitionRegistry))
	for runnerType, def := range r.DefinitionRegistry {
		info := RunnerInfo{Type: runnerType, Description: def.Description}
		if def.Lifecycle != nil {
			info.Handler = def.Lifecycle.OnRun
			if h, ok := r.HandlerRegistry[info.Handler]; ok {
				info.Registered = true
				info.Metadata = h.Metadata
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Type < infos[j].Type })
	return infos
}
