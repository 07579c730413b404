package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/philipparndt/gopreview/pkg/geometry"
	"github.com/philipparndt/gopreview/pkg/scene"
)

const (
	extUnlit = "KHR_materials_unlit"

	// maxNodeDepth guards against cyclic node references in broken files.
	maxNodeDepth = 256
)

// physicalExtensions promote a material to scene.PhysicalMaterial
var physicalExtensions = []string{
	"KHR_materials_clearcoat",
	"KHR_materials_transmission",
	"KHR_materials_sheen",
	"KHR_materials_ior",
	"KHR_materials_specular",
	"KHR_materials_volume",
	"KHR_materials_iridescence",
}

var errNodeCycle = errors.New("gltf: node hierarchy too deep or cyclic")

// GLTFLoader loads glTF 2.0 JSON and binary (GLB) files
type GLTFLoader struct {
	logger *zap.Logger
}

// NewGLTFLoader creates a glTF loader
func NewGLTFLoader(logger *zap.Logger) *GLTFLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GLTFLoader{logger: logger}
}

func (l *GLTFLoader) Load(ctx context.Context, src Source) (*scene.Node, error) {
	doc, dir, err := l.decode(src)
	if err != nil {
		return nil, err
	}

	b := &gltfBuilder{
		doc:       doc,
		dir:       dir,
		logger:    l.logger.With(zap.String("source", src.Name())),
		materials: make(map[int]scene.Material),
		textures:  make(map[int]*scene.Texture),
	}
	return b.build(ctx, src.Name())
}

func (l *GLTFLoader) decode(src Source) (*gltf.Document, string, error) {
	if path := pathOf(src); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, "", &LoadError{Source: src.Name(), Reason: ReasonFetch, Err: err}
		}
		doc, err := gltf.Open(path)
		if err != nil {
			return nil, "", &LoadError{Source: src.Name(), Reason: ReasonParse, Err: err}
		}
		return doc, filepath.Dir(path), nil
	}

	rc, err := open(src)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	doc := new(gltf.Document)
	if err := gltf.NewDecoder(rc).Decode(doc); err != nil {
		return nil, "", &LoadError{Source: src.Name(), Reason: ReasonParse, Err: err}
	}
	return doc, "", nil
}

type gltfBuilder struct {
	doc    *gltf.Document
	dir    string
	logger *zap.Logger

	defaultMaterial scene.Material
	materials       map[int]scene.Material
	textures        map[int]*scene.Texture
}

func (b *gltfBuilder) build(ctx context.Context, name string) (*scene.Node, error) {
	root := scene.NewNode(name)
	for _, idx := range b.rootNodes() {
		child, err := b.node(ctx, idx, 0)
		if err != nil {
			return nil, err
		}
		root.Add(child)
	}

	if len(root.Meshes()) == 0 {
		return nil, fmt.Errorf("gltf: %s contains no triangle meshes", name)
	}
	return root, nil
}

// rootNodes returns the nodes of the default scene, or every parentless node
// when the file declares no scenes
func (b *gltfBuilder) rootNodes() []int {
	doc := b.doc
	if len(doc.Scenes) > 0 {
		i := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			i = *doc.Scene
		}
		return doc.Scenes[i].Nodes
	}

	isChild := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func (b *gltfBuilder) node(ctx context.Context, idx, depth int) (*scene.Node, error) {
	if depth > maxNodeDepth {
		return nil, errNodeCycle
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("gltf: node index %d out of range", idx)
	}

	gn := b.doc.Nodes[idx]
	n := scene.NewNode(gn.Name)
	n.Transform = nodeTransform(gn)

	if gn.Mesh != nil {
		if err := b.attachMesh(n, *gn.Mesh); err != nil {
			return nil, err
		}
	}

	for _, c := range gn.Children {
		child, err := b.node(ctx, c, depth+1)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

func nodeTransform(gn *gltf.Node) scene.Transform {
	if m := gn.Matrix; m != ([16]float64{}) && m != identityColumnMajor {
		// glTF matrices are column-major
		var rm geometry.Mat4
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				rm[r*4+c] = m[c*4+r]
			}
		}
		t, rot, s := rm.DecomposeTRS()
		return scene.Transform{Position: t, Rotation: rot, Scale: s}
	}

	t := gn.TranslationOrDefault()
	q := gn.RotationOrDefault()
	s := gn.ScaleOrDefault()
	return scene.Transform{
		Position: geometry.NewVector3(t[0], t[1], t[2]),
		Rotation: geometry.Quat(q).Mat3(),
		Scale:    geometry.NewVector3(s[0], s[1], s[2]),
	}
}

var identityColumnMajor = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// attachMesh puts a single-primitive mesh on n directly and gives each
// primitive of a multi-primitive mesh its own child node
func (b *gltfBuilder) attachMesh(n *scene.Node, meshIdx int) error {
	if meshIdx < 0 || meshIdx >= len(b.doc.Meshes) {
		return fmt.Errorf("gltf: mesh index %d out of range", meshIdx)
	}
	gm := b.doc.Meshes[meshIdx]

	var meshes []*scene.Mesh
	for i, p := range gm.Primitives {
		mesh, err := b.primitive(p)
		if err != nil {
			return fmt.Errorf("gltf: mesh %q primitive %d: %w", gm.Name, i, err)
		}
		if mesh != nil {
			meshes = append(meshes, mesh)
		}
	}

	if len(meshes) == 1 {
		n.Mesh = meshes[0]
		return nil
	}
	for i, mesh := range meshes {
		child := scene.NewNode(fmt.Sprintf("%s#%d", gm.Name, i))
		child.Mesh = mesh
		n.Add(child)
	}
	return nil
}

func (b *gltfBuilder) primitive(p *gltf.Primitive) (*scene.Mesh, error) {
	if p.Mode != gltf.PrimitiveTriangles {
		b.logger.Debug("Skipping non-triangle primitive", zap.Int("mode", int(p.Mode)))
		return nil, nil
	}
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	acr, err := b.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	mesh := &scene.Mesh{
		Positions:     make([]geometry.Vector3, len(positions)),
		CastShadow:    true,
		ReceiveShadow: true,
	}
	for i, v := range positions {
		mesh.Positions[i] = geometry.NewVector3(float64(v[0]), float64(v[1]), float64(v[2]))
	}

	if uvIdx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		acr, err := b.accessor(uvIdx)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read texture coordinates: %w", err)
		}
		if len(uvs) == len(positions) {
			mesh.UVs = make([][2]float64, len(uvs))
			for i, uv := range uvs {
				mesh.UVs[i] = [2]float64{float64(uv[0]), float64(uv[1])}
			}
		}
	}

	if p.Indices != nil {
		acr, err := b.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		indices, err := modeler.ReadIndices(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		mesh.Indices = make([]int, 0, len(indices)-len(indices)%3)
		for _, i := range indices[:len(indices)-len(indices)%3] {
			if int(i) >= len(positions) {
				return nil, fmt.Errorf("index %d out of range for %d vertices", i, len(positions))
			}
			mesh.Indices = append(mesh.Indices, int(i))
		}
	} else {
		mesh.Positions = mesh.Positions[:len(mesh.Positions)-len(mesh.Positions)%3]
	}

	mesh.Material = b.material(p.Material)
	return mesh, nil
}

func (b *gltfBuilder) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", idx)
	}
	return b.doc.Accessors[idx], nil
}

func (b *gltfBuilder) material(idx *int) scene.Material {
	if idx == nil || *idx < 0 || *idx >= len(b.doc.Materials) {
		if b.defaultMaterial == nil {
			b.defaultMaterial = &scene.StandardMaterial{
				Name:      "default",
				Surface:   scene.DefaultSurface(),
				Roughness: 1,
			}
		}
		return b.defaultMaterial
	}
	if m, ok := b.materials[*idx]; ok {
		return m
	}

	m := b.convertMaterial(b.doc.Materials[*idx])
	b.materials[*idx] = m
	return m
}

func (b *gltfBuilder) convertMaterial(gm *gltf.Material) scene.Material {
	surface := scene.DefaultSurface()
	metalness, roughness := 1.0, 1.0

	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		f := pbr.BaseColorFactorOrDefault()
		surface.Color = scene.RGB(f[0], f[1], f[2])
		surface.Opacity = f[3]
		if pbr.BaseColorTexture != nil {
			surface.Map = b.texture(pbr.BaseColorTexture.Index)
		}
		metalness = pbr.MetallicFactorOrDefault()
		roughness = pbr.RoughnessFactorOrDefault()
	}
	if gm.AlphaMode == gltf.AlphaBlend {
		surface.Transparent = true
	}
	if gm.DoubleSided {
		surface.Side = scene.DoubleSide
	}

	if _, ok := gm.Extensions[extUnlit]; ok {
		return &scene.BasicMaterial{Name: gm.Name, Surface: surface}
	}

	standard := scene.StandardMaterial{
		Name:      gm.Name,
		Surface:   surface,
		Metalness: metalness,
		Roughness: roughness,
	}
	if f := gm.EmissiveFactor; f != ([3]float64{}) {
		standard.Emissive = scene.RGB(f[0], f[1], f[2])
	}

	for _, ext := range physicalExtensions {
		if _, ok := gm.Extensions[ext]; ok {
			return &scene.PhysicalMaterial{
				StandardMaterial: standard,
				Clearcoat:        extensionFactor(gm.Extensions, "KHR_materials_clearcoat", "clearcoatFactor"),
				Transmission:     extensionFactor(gm.Extensions, "KHR_materials_transmission", "transmissionFactor"),
				SheenRoughness:   extensionFactor(gm.Extensions, "KHR_materials_sheen", "sheenRoughnessFactor"),
			}
		}
	}
	return &standard
}

// extensionFactor reads a numeric field of an extension kept as raw JSON.
// Missing extensions and fields read as zero.
func extensionFactor(exts gltf.Extensions, name, field string) float64 {
	raw, ok := exts[name]
	if !ok {
		return 0
	}

	var fields map[string]any
	switch v := raw.(type) {
	case json.RawMessage:
		if err := json.Unmarshal(v, &fields); err != nil {
			return 0
		}
	case []byte:
		if err := json.Unmarshal(v, &fields); err != nil {
			return 0
		}
	case map[string]any:
		fields = v
	default:
		return 0
	}

	f, _ := fields[field].(float64)
	return f
}

// texture decodes a texture once. Broken textures are logged and dropped so
// the model still shows with its base color.
func (b *gltfBuilder) texture(idx int) *scene.Texture {
	if tex, ok := b.textures[idx]; ok {
		return tex
	}

	tex, err := b.decodeTexture(idx)
	if err != nil {
		b.logger.Warn("Failed to load texture", zap.Int("texture", idx), zap.Error(err))
	}
	b.textures[idx] = tex
	return tex
}

func (b *gltfBuilder) decodeTexture(idx int) (*scene.Texture, error) {
	if idx < 0 || idx >= len(b.doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", idx)
	}
	gt := b.doc.Textures[idx]
	if gt.Source == nil || *gt.Source < 0 || *gt.Source >= len(b.doc.Images) {
		return nil, fmt.Errorf("texture %d has no image", idx)
	}
	img := b.doc.Images[*gt.Source]

	name := img.Name
	if name == "" {
		name = img.URI
	}

	var data []byte
	var err error
	switch {
	case img.BufferView != nil:
		data, err = b.bufferView(*img.BufferView)
	case img.IsEmbeddedResource():
		data, err = img.MarshalData()
	case img.URI != "" && b.dir != "":
		uri, uerr := url.PathUnescape(img.URI)
		if uerr != nil {
			uri = img.URI
		}
		data, err = os.ReadFile(filepath.Join(b.dir, filepath.FromSlash(uri)))
	default:
		return nil, fmt.Errorf("image %q cannot be resolved", name)
	}
	if err != nil {
		return nil, err
	}

	return DecodeTexture(name, data)
}

func (b *gltfBuilder) bufferView(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(b.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", idx)
	}
	bv := b.doc.BufferViews[idx]
	if bv.Buffer < 0 || bv.Buffer >= len(b.doc.Buffers) {
		return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
	}
	data := b.doc.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, fmt.Errorf("buffer view %d exceeds buffer length %d", idx, len(data))
	}
	return data[bv.ByteOffset:end], nil
}
