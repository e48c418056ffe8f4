package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/oskargrid/internal/config"
	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/vk/oskargrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file below paths. It is agnostic to the origin of
// the paths and accepts runner and step blocks from any file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{
		Runners: make(map[string]*config.RunnerDefinition),
		Grid:    &config.Grid{},
	}

	hclFiles, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, runner := range root.Runners {
			def, err := translateRunnerDefinition(ctx, runner)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
			if prev, exists := model.Runners[def.Type]; exists {
				return nil, nil, fmt.Errorf("%s: runner %q is already defined in %s", file, def.Type, prev.Source)
			}
			def.Source = file
			model.Runners[def.Type] = def
		}
		for _, s := range root.Steps {
			st, err := translateStep(s)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
			st.Source = file
			model.Grid.Steps = append(model.Grid.Steps, st)
		}
	}

	logger.Debug("HCL loading complete.", "runners", len(model.Runners), "steps", len(model.Grid.Steps))
	return model, NewConverter(), nil
}
