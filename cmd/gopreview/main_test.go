package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asciiTriangle = `solid tri
facet normal 0 0 1
  outer loop
    vertex 0 0 0
    vertex 4 0 0
    vertex 0 2 0
  endloop
endfacet
endsolid tri
`

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tri.stl")
	require.NoError(t, os.WriteFile(path, []byte(asciiTriangle), 0o644))
	return path
}

func TestInfo(t *testing.T) {
	out := execute(t, "info", writeModel(t), "--log-level", "error")

	assert.Contains(t, out, "Name: tri")
	assert.Contains(t, out, "Triangles: 1")
	assert.Contains(t, out, "Materials: 1 standard")
	assert.Contains(t, out, "Width (X): 4.000 units")
	assert.Contains(t, out, "Scale: 0.750000")
}

func TestRender(t *testing.T) {
	output := filepath.Join(t.TempDir(), "thumb.png")
	out := execute(t, "render", writeModel(t),
		"--log-level", "error",
		"--width", "40", "--height", "30",
		"--edge", "80", "--format", "png",
		"--yaw", "30", "--zoom", "1.5",
		"-o", output)

	assert.Contains(t, out, "Wrote "+output)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 107, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
}
