package app

import (
	"github.com/vk/oskargrid/internal/oskar"
	"github.com/vk/oskargrid/internal/registry"
	"github.com/vk/oskargrid/modules/artifact_info"
	"github.com/vk/oskargrid/modules/oskar_imager"
	"github.com/vk/oskargrid/modules/oskar_interferometer"
)

// CoreModules is the list of all modules compiled into the oskargrid
// binary, bound to the given toolkit.
func CoreModules(tk oskar.Toolkit) []registry.Module {
	return []registry.Module{
		oskar_interferometer.NewModule(tk),
		oskar_imager.NewModule(tk),
		&artifact_info.Module{},
	}
}
