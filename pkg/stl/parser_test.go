package stl

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/philipparndt/gopreview/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asciiTriangle = `solid cube corner
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid cube corner
`

// encodeBinary writes triangles in binary STL layout. The header starts with
// "solid" on purpose to exercise format detection.
func encodeBinary(triangles []geometry.Triangle) []byte {
	var buf bytes.Buffer
	header := make([]byte, binaryHeaderSize)
	copy(header, "solid binary export")
	buf.Write(header)
	binary.Write(&buf, binary.LittleEndian, uint32(len(triangles)))
	for _, tri := range triangles {
		for _, v := range []geometry.Vector3{tri.Normal, tri.V1, tri.V2, tri.V3} {
			binary.Write(&buf, binary.LittleEndian, [3]float32{float32(v.X), float32(v.Y), float32(v.Z)})
		}
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

func TestParseASCII(t *testing.T) {
	model, err := ParseReader(strings.NewReader(asciiTriangle))
	require.NoError(t, err)

	assert.Equal(t, "cube corner", model.Name)
	require.Equal(t, 1, model.TriangleCount())
	assert.Equal(t, geometry.NewVector3(1, 0, 0), model.Triangles[0].V2)
	assert.Equal(t, geometry.NewVector3(0, 0, 1), model.Triangles[0].Normal)
}

func TestParseASCIIRejectsBadVertex(t *testing.T) {
	bad := strings.Replace(asciiTriangle, "vertex 1 0 0", "vertex 1 zero 0", 1)

	_, err := ParseReader(strings.NewReader(bad))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseBinaryWithSolidHeader(t *testing.T) {
	tris := []geometry.Triangle{
		geometry.NewTriangle(geometry.NewVector3(0, 0, 1), geometry.NewVector3(0, 0, 0), geometry.NewVector3(2, 0, 0), geometry.NewVector3(0, 2, 0)),
		geometry.NewTriangle(geometry.NewVector3(0, 0, -1), geometry.NewVector3(0, 0, 4), geometry.NewVector3(0, 2, 4), geometry.NewVector3(2, 0, 4)),
	}

	model, err := ParseReader(bytes.NewReader(encodeBinary(tris)))
	require.NoError(t, err)

	assert.Equal(t, "solid binary export", model.Name)
	require.Equal(t, 2, model.TriangleCount())
	bbox := model.BoundingBox()
	assert.Equal(t, geometry.NewVector3(2, 2, 4), bbox.Max)
	assert.Len(t, model.Positions(), 6)
}

func TestParseBinaryTruncated(t *testing.T) {
	data := encodeBinary([]geometry.Triangle{{}})
	// Claim more triangles than the body holds.
	binary.LittleEndian.PutUint32(data[binaryHeaderSize:], 3)
	data[0] = 'x'

	_, err := ParseReader(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadVector(t *testing.T) {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(-2))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(3.25))

	assert.Equal(t, geometry.NewVector3(1.5, -2, 3.25), readVector(b))
}
