// Package loader turns model files into scene graphs.
//
// A Registry picks a Loader by file extension; Async runs a load on its own
// goroutine and reports the result through a callback. Every failure that
// leaves this package is a *LoadError.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/philipparndt/gopreview/pkg/scene"
)

// Loader parses one model format into a scene graph
type Loader interface {
	Load(ctx context.Context, src Source) (*scene.Node, error)
}

// Func adapts a function to the Loader interface
type Func func(ctx context.Context, src Source) (*scene.Node, error)

func (f Func) Load(ctx context.Context, src Source) (*scene.Node, error) {
	return f(ctx, src)
}

// Registry dispatches loads to the loader registered for the file extension
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
	logger  *zap.Logger
}

// NewRegistry creates a registry with the STL, glTF and OpenSCAD loaders
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "loader"))

	r := &Registry{
		loaders: make(map[string]Loader),
		logger:  logger,
	}

	gltfLoader := NewGLTFLoader(logger)
	r.Register(".stl", NewSTLLoader())
	r.Register(".gltf", gltfLoader)
	r.Register(".glb", gltfLoader)
	r.Register(".scad", NewSCADLoader(logger))
	return r
}

// Register binds a loader to a file extension such as ".stl"
func (r *Registry) Register(ext string, l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[normalizeExt(ext)] = l
}

// Supports reports whether a loader is registered for name's extension
func (r *Registry) Supports(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// Extensions lists the registered extensions
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	return exts
}

func (r *Registry) lookup(name string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[normalizeExt(filepath.Ext(name))]
	return l, ok
}

// Load parses src with the loader matching its extension. Loaders that do
// not watch ctx themselves are abandoned when ctx ends.
func (r *Registry) Load(ctx context.Context, src Source) (*scene.Node, error) {
	l, ok := r.lookup(src.Name())
	if !ok {
		return nil, &LoadError{
			Source: src.Name(),
			Reason: ReasonUnsupported,
			Err:    fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(src.Name())),
		}
	}

	r.logger.Debug("Loading model", zap.String("source", src.Name()))

	type result struct {
		root *scene.Node
		err  error
	}
	done := make(chan result, 1)
	go func() {
		root, err := l.Load(ctx, src)
		done <- result{root: root, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, Classify(src.Name(), ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, Classify(src.Name(), res.err)
		}
		return res.root, nil
	}
}

// Async loads src on a new goroutine and hands the outcome to fn. A non-nil
// error passed to fn is always a *LoadError.
func Async(ctx context.Context, l Loader, src Source, fn func(*scene.Node, error)) {
	go func() {
		root, err := l.Load(ctx, src)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil {
			fn(nil, Classify(src.Name(), err))
			return
		}
		fn(root, nil)
	}()
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
