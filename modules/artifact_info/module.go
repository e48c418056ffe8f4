package artifact_info

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"reflect"

	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/vk/oskargrid/internal/registry"
)

// DirectoryContentType is reported for directory artifacts such as
// telescope models.
const DirectoryContentType = "inode/directory"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the artifact_info runner.
type Input struct {
	Path string `bggo:"path"`
}

// Output describes the inspected artifact.
type Output struct {
	Path        string `cty:"path"`
	Size        int64  `cty:"size"`
	ContentType string `cty:"content_type"`
}

// Deps is an empty struct because this runner does not use the toolkit.
type Deps struct{}

// OnRunArtifactInfo is the handler for the 'artifact_info' runner's on_run
// lifecycle event.
func OnRunArtifactInfo(ctx context.Context, _ *Deps, input *Input) (any, error) {
	logger := ctxlog.FromContext(ctx)

	out, err := Inspect(input.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("Artifact inspected.", "path", out.Path, "size", out.Size, "content_type", out.ContentType)
	return *out, nil
}

// Inspect reports the size and sniffed content type of the file at path.
// Directories report the total size of the files below them.
func Inspect(path string) (*Output, error) {
	if path == "" {
		return nil, errors.New("artifact path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("inspecting artifact: %w", err)
	}
	if info.IsDir() {
		size, err := dirSize(path)
		if err != nil {
			return nil, fmt.Errorf("inspecting artifact %s: %w", path, err)
		}
		return &Output{Path: path, Size: size, ContentType: DirectoryContentType}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("inspecting artifact: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("inspecting artifact %s: %w", path, err)
	}
	return &Output{Path: path, Size: info.Size(), ContentType: http.DetectContentType(head[:n])}, nil
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunArtifactInfo", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunArtifactInfo,
	})
}
