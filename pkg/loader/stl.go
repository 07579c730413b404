package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/philipparndt/gopreview/pkg/scene"
	"github.com/philipparndt/gopreview/pkg/stl"
)

// STLLoader loads ASCII and binary STL files
type STLLoader struct {
	// Color is the base color of the generated material.
	Color scene.Color
}

// NewSTLLoader creates an STL loader with a neutral grey material
func NewSTLLoader() *STLLoader {
	return &STLLoader{Color: scene.RGB(0.7, 0.7, 0.7)}
}

func (l *STLLoader) Load(ctx context.Context, src Source) (*scene.Node, error) {
	rc, err := open(src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &LoadError{Source: src.Name(), Reason: ReasonFetch, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model, err := stl.ParseReader(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Source: src.Name(), Reason: ReasonParse, Err: err}
	}
	if model.TriangleCount() == 0 {
		return nil, &LoadError{Source: src.Name(), Reason: ReasonParse, Err: fmt.Errorf("%w: no facets", stl.ErrMalformed)}
	}

	return l.node(src.Name(), model), nil
}

func (l *STLLoader) node(name string, model *stl.Model) *scene.Node {
	if model.Name != "" {
		name = model.Name
	}

	surface := scene.DefaultSurface()
	surface.Color = l.Color

	root := scene.NewNode(name)
	root.Mesh = &scene.Mesh{
		Positions: model.Positions(),
		Material: &scene.StandardMaterial{
			Name:      "stl",
			Surface:   surface,
			Roughness: 0.6,
		},
		CastShadow:    true,
		ReceiveShadow: true,
	}
	return root
}
