package scene

import "github.com/philipparndt/gopreview/pkg/geometry"

// Transform is a node's local translation, rotation and scale
type Transform struct {
	Position geometry.Vector3
	Rotation geometry.Mat3
	Scale    geometry.Vector3
}

// IdentityTransform returns a transform that leaves points unchanged
func IdentityTransform() Transform {
	return Transform{
		Rotation: geometry.Mat3Identity(),
		Scale:    geometry.NewVector3(1, 1, 1),
	}
}

// Matrix returns T × R × S
func (t Transform) Matrix() geometry.Mat4 {
	return geometry.ComposeTRS(t.Position, t.Rotation, t.Scale)
}

// Node is one element of the scene graph
type Node struct {
	Name      string
	Transform Transform
	Mesh      *Mesh

	parent   *Node
	children []*Node
}

// NewNode creates an empty node with an identity transform
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: IdentityTransform()}
}

// Add attaches children to the node, detaching them from any previous parent
func (n *Node) Add(children ...*Node) {
	for _, child := range children {
		if child == nil || child == n {
			continue
		}
		if child.parent != nil {
			child.parent.Remove(child)
		}
		child.parent = n
		n.children = append(n.children, child)
	}
}

// Remove detaches a direct child
func (n *Node) Remove(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Children returns the direct children
func (n *Node) Children() []*Node {
	return n.children
}

// Parent returns the parent node or nil for a root
func (n *Node) Parent() *Node {
	return n.parent
}

// WorldMatrix returns the node's transform composed with all its ancestors
func (n *Node) WorldMatrix() geometry.Mat4 {
	m := n.Transform.Matrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.Transform.Matrix().Mul(m)
	}
	return m
}

// Traverse visits the node and its descendants depth-first together with
// their world matrices
func (n *Node) Traverse(fn func(node *Node, world geometry.Mat4)) {
	var parentWorld geometry.Mat4
	if n.parent != nil {
		parentWorld = n.parent.WorldMatrix()
	} else {
		parentWorld = geometry.Mat4Identity()
	}
	n.traverse(parentWorld, fn)
}

func (n *Node) traverse(parentWorld geometry.Mat4, fn func(*Node, geometry.Mat4)) {
	world := parentWorld.Mul(n.Transform.Matrix())
	fn(n, world)
	for _, child := range n.children {
		child.traverse(world, fn)
	}
}

// BoundingBox returns the world-space bounds of every mesh below the node
func (n *Node) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	n.Traverse(func(node *Node, world geometry.Mat4) {
		if node.Mesh == nil {
			return
		}
		for _, p := range node.Mesh.Positions {
			bbox.Extend(world.MulPoint(p))
		}
	})
	return bbox
}

// Meshes returns every mesh below the node in traversal order
func (n *Node) Meshes() []*Mesh {
	var meshes []*Mesh
	n.Traverse(func(node *Node, _ geometry.Mat4) {
		if node.Mesh != nil {
			meshes = append(meshes, node.Mesh)
		}
	})
	return meshes
}
