package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/philipparndt/gopreview/pkg/geometry"
)

const (
	binaryHeaderSize = 80
	binaryFacetSize  = 50
)

// ErrMalformed is wrapped by every parse failure caused by file contents
var ErrMalformed = errors.New("stl: malformed file")

// Parse reads an STL file from disk
func Parse(filename string) (*Model, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file)
}

// ParseReader reads an STL stream and detects whether it is ASCII or binary.
// Binary files are recognized by their facet count matching the stream
// length, since many exporters write "solid" into the binary header too.
func ParseReader(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL data: %w", err)
	}

	if isBinary(data) {
		return parseBinary(data)
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCII(bytes.NewReader(data))
	}
	return parseBinary(data)
}

func isBinary(data []byte) bool {
	if len(data) < binaryHeaderSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[binaryHeaderSize:])
	return uint64(len(data)) == uint64(binaryHeaderSize+4)+uint64(count)*binaryFacetSize
}

// parseASCII parses an ASCII STL file
func parseASCII(reader io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(reader)
	model := NewModel("")

	var normal geometry.Vector3
	var vertices []geometry.Vector3
	line := 0

	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 {
				model.Name = strings.Join(fields[1:], " ")
			}

		case "facet":
			if len(fields) >= 5 && fields[1] == "normal" {
				v, err := parseVector(fields[2:5])
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: facet normal: %v", ErrMalformed, line, err)
				}
				normal = v
			}

		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrMalformed, line)
			}
			v, err := parseVector(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: vertex: %v", ErrMalformed, line, err)
			}
			vertices = append(vertices, v)

		case "endfacet":
			if len(vertices) != 3 {
				return nil, fmt.Errorf("%w: line %d: facet has %d vertices", ErrMalformed, line, len(vertices))
			}
			model.AddTriangle(geometry.NewTriangle(normal, vertices[0], vertices[1], vertices[2]))
			vertices = vertices[:0]
			normal = geometry.Vector3{}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASCII STL: %w", err)
	}

	return model, nil
}

func parseVector(fields []string) (geometry.Vector3, error) {
	var xyz [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geometry.Vector3{}, err
		}
		xyz[i] = v
	}
	return geometry.NewVector3(xyz[0], xyz[1], xyz[2]), nil
}

// parseBinary parses a binary STL file held in memory
func parseBinary(data []byte) (*Model, error) {
	if len(data) < binaryHeaderSize+4 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the binary header", ErrMalformed, len(data))
	}

	model := NewModel(strings.TrimSpace(string(bytes.TrimRight(data[:binaryHeaderSize], "\x00"))))

	count := binary.LittleEndian.Uint32(data[binaryHeaderSize:])
	body := data[binaryHeaderSize+4:]
	if uint64(len(body)) < uint64(count)*binaryFacetSize {
		return nil, fmt.Errorf("%w: header declares %d triangles but only %d bytes follow", ErrMalformed, count, len(body))
	}

	model.Triangles = make([]geometry.Triangle, 0, count)
	for i := uint32(0); i < count; i++ {
		facet := body[i*binaryFacetSize : (i+1)*binaryFacetSize]
		model.AddTriangle(geometry.NewTriangle(
			readVector(facet[0:]),
			readVector(facet[12:]),
			readVector(facet[24:]),
			readVector(facet[36:]),
		))
		// The trailing uint16 attribute byte count is ignored.
	}

	return model, nil
}

func readVector(b []byte) geometry.Vector3 {
	return geometry.NewVector3(
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[0:]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))),
		float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))),
	)
}
