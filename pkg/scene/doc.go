// Package scene is the in-memory scene graph the preview renders: a tree of
// transformable nodes carrying triangle meshes, a small tagged set of
// material kinds, and a perspective camera.
package scene
