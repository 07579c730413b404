package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/philipparndt/gopreview/pkg/openscad"
	"github.com/philipparndt/gopreview/pkg/scene"
)

// SCADLoader renders OpenSCAD sources to a temporary STL and loads that
type SCADLoader struct {
	logger *zap.Logger
	stl    *STLLoader
}

// NewSCADLoader creates an OpenSCAD loader
func NewSCADLoader(logger *zap.Logger) *SCADLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SCADLoader{logger: logger, stl: NewSTLLoader()}
}

func (l *SCADLoader) Load(ctx context.Context, src Source) (*scene.Node, error) {
	path := pathOf(src)
	if path == "" {
		return nil, &LoadError{
			Source: src.Name(),
			Reason: ReasonUnsupported,
			Err:    fmt.Errorf("%w: openscad sources must be files", ErrUnsupportedFormat),
		}
	}

	tmp, err := os.CreateTemp("", "gopreview-*.stl")
	if err != nil {
		return nil, &LoadError{Source: src.Name(), Reason: ReasonFetch, Err: err}
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	renderer := openscad.NewRenderer(filepath.Dir(path), l.logger)
	if err := renderer.RenderToSTL(ctx, path, tmpPath); err != nil {
		if errors.Is(err, openscad.ErrNotInstalled) {
			return nil, &LoadError{Source: src.Name(), Reason: ReasonUnsupported, Err: err}
		}
		return nil, err
	}

	root, err := l.stl.Load(ctx, NewFileSource(tmpPath))
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = src.Name()
		}
		return nil, err
	}
	root.Name = strings.TrimSuffix(src.Name(), filepath.Ext(src.Name()))
	return root, nil
}

// WatchTargets lists the files whose change should reload path: the file
// itself, plus every use/include dependency for OpenSCAD sources
func WatchTargets(path string, logger *zap.Logger) ([]string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".scad") {
		return []string{path}, nil
	}
	return openscad.NewRenderer(filepath.Dir(path), logger).ResolveDependencies(path)
}
