package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// SU2 (VTK numbering) element types
var su2ElementTypeMap = map[int]ElementType{
	3:  Line,
	5:  Triangle,
	9:  Quad,
	10: Tet,
	12: Hex,
	13: Prism,
	14: Pyramid,
}

func numNodes(etype ElementType) int {
	return [...]int{2, 3, 4, 4, 8, 6, 5}[etype]
}

// ReadSU2 reads an SU2 native format file
func ReadSU2(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseSU2(file)
}

/*
ParseSU2 reads the SU2 native format. Volume elements build the cells, each MARKER_TAG becomes a
patch holding its surface elements. The patch type is taken from the marker name, see
types.PatchTag.
*/
func ParseSU2(r io.Reader) (*Mesh, error) {
	var (
		scanner      = bufio.NewScanner(r)
		ndime        int
		points       []r3.Vec
		elements     [][]int
		elementTypes []ElementType
		boundary     []BoundaryFace
	)
	next := func(what string) ([]string, error) {
		if !scanner.Scan() {
			return nil, fmt.Errorf("unexpected EOF reading %s", what)
		}
		return strings.Fields(stripComment(scanner.Text())), nil
	}
	readElement := func(fields []string) (etype ElementType, nodes []int, err error) {
		if len(fields) < 2 {
			return 0, nil, fmt.Errorf("invalid element line")
		}
		su2Type, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, nil, fmt.Errorf("invalid element type: %w", err)
		}
		etype, ok := su2ElementTypeMap[su2Type]
		if !ok {
			return 0, nil, fmt.Errorf("unknown element type: %d", su2Type)
		}
		nn := numNodes(etype)
		if len(fields) < nn+1 {
			return 0, nil, fmt.Errorf("element type %v expects %d nodes, got %d fields", etype, nn, len(fields)-1)
		}
		nodes = make([]int, nn)
		for j := 0; j < nn; j++ {
			if nodes[j], err = strconv.Atoi(fields[1+j]); err != nil {
				return 0, nil, fmt.Errorf("invalid node index: %w", err)
			}
		}
		return
	}

	for scanner.Scan() {
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "NDIME="):
			fmt.Sscanf(line, "NDIME=%d", &ndime)
			if ndime != 3 {
				return nil, fmt.Errorf("only 3D meshes are supported, got NDIME=%d", ndime)
			}

		case strings.HasPrefix(line, "NPOIN="):
			var npoin int
			fmt.Sscanf(line, "NPOIN=%d", &npoin)
			points = make([]r3.Vec, npoin)
			for i := 0; i < npoin; i++ {
				fields, err := next("points")
				if err != nil {
					return nil, err
				}
				if len(fields) < 3 {
					return nil, fmt.Errorf("invalid point line %d: expected 3 coordinates", i)
				}
				var c [3]float64
				for j := 0; j < 3; j++ {
					if c[j], err = strconv.ParseFloat(fields[j], 64); err != nil {
						return nil, fmt.Errorf("invalid coordinate: %w", err)
					}
				}
				// Point ID is implicit (0-based), a trailing explicit ID is ignored
				points[i] = r3.Vec{X: c[0], Y: c[1], Z: c[2]}
			}

		case strings.HasPrefix(line, "NELEM="):
			var nelem int
			fmt.Sscanf(line, "NELEM=%d", &nelem)
			elements = make([][]int, 0, nelem)
			elementTypes = make([]ElementType, 0, nelem)
			for i := 0; i < nelem; i++ {
				fields, err := next("elements")
				if err != nil {
					return nil, err
				}
				etype, nodes, err := readElement(fields)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				if etype < Tet {
					continue // Skip lower dimensional elements
				}
				elements = append(elements, nodes)
				elementTypes = append(elementTypes, etype)
			}

		case strings.HasPrefix(line, "NMARK="):
			var nmark int
			fmt.Sscanf(line, "NMARK=%d", &nmark)
			for i := 0; i < nmark; i++ {
				fields, err := next("marker tag")
				if err != nil {
					return nil, err
				}
				markerLine := strings.Join(fields, " ")
				if !strings.HasPrefix(markerLine, "MARKER_TAG=") {
					return nil, fmt.Errorf("expected MARKER_TAG=, got: %s", markerLine)
				}
				tagName := strings.TrimSpace(strings.TrimPrefix(markerLine, "MARKER_TAG="))
				if fields, err = next("marker elements"); err != nil {
					return nil, err
				}
				var nMarkerElems int
				fmt.Sscanf(strings.Join(fields, ""), "MARKER_ELEMS=%d", &nMarkerElems)
				for j := 0; j < nMarkerElems; j++ {
					if fields, err = next("marker element"); err != nil {
						return nil, err
					}
					etype, nodes, err := readElement(fields)
					if err != nil {
						return nil, fmt.Errorf("marker %s element %d: %w", tagName, j, err)
					}
					if etype != Triangle && etype != Quad {
						return nil, fmt.Errorf("marker %s element %d is a %s, expected a surface element",
							tagName, j, etype)
					}
					boundary = append(boundary, BoundaryFace{Vertices: nodes, Tag: tagName})
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for i, nodes := range elements {
		for _, n := range nodes {
			if n < 0 || n >= len(points) {
				return nil, fmt.Errorf("element %d: node index %d out of range [0,%d)", i, n, len(points))
			}
		}
	}
	return NewFromElements(points, elements, elementTypes, boundary, nil)
}

func stripComment(line string) string {
	if idx := strings.Index(line, "%"); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}
