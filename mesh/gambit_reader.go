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

// Gambit element types and the permutation from Gambit to local node order
var gambitElements = map[int]struct {
	etype ElementType
	order []int
	// faces in Gambit node numbering, indexed by Gambit face number - 1
	faces [][]int
}{
	4: {Hex, []int{0, 1, 3, 2, 4, 5, 7, 6},
		[][]int{{0, 1, 5, 4}, {1, 3, 7, 5}, {3, 2, 6, 7}, {2, 0, 4, 6}, {0, 2, 3, 1}, {4, 5, 7, 6}}},
	5: {Prism, []int{0, 1, 2, 3, 4, 5},
		[][]int{{0, 1, 4, 3}, {1, 2, 5, 4}, {2, 0, 3, 5}, {0, 2, 1}, {3, 4, 5}}},
	6: {Tet, []int{0, 1, 2, 3},
		[][]int{{1, 0, 2}, {0, 1, 3}, {1, 2, 3}, {2, 0, 3}}},
	7: {Pyramid, []int{0, 1, 3, 2, 4},
		[][]int{{0, 2, 3, 1}, {0, 1, 4}, {1, 3, 4}, {3, 2, 4}, {2, 0, 4}}},
}

// ReadGambit reads a Gambit neutral file
func ReadGambit(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseGambit(file)
}

/*
ParseGambit reads a 3D Gambit neutral file. Every element based boundary condition set becomes a
patch named after the set, its type taken from the name as for SU2 markers. Node based sets carry
no faces and are skipped. Element groups are ignored.
*/
func ParseGambit(r io.Reader) (m *Mesh, err error) {
	var (
		scanner      = bufio.NewScanner(r)
		numnp, nelem int
		points       []r3.Vec
		elements     [][]int
		gambitNodes  [][]int // element nodes in file order, for boundary faces
		elementTypes []ElementType
		gambitTypes  []int
		boundary     []BoundaryFace
		line         int
	)
	next := func(what string) ([]string, error) {
		if !scanner.Scan() {
			return nil, fmt.Errorf("unexpected EOF reading %s", what)
		}
		line++
		return strings.Fields(scanner.Text()), nil
	}
	atoi := func(s string) int {
		v, aerr := strconv.Atoi(s)
		if aerr != nil && err == nil {
			err = fmt.Errorf("line %d: %w", line, aerr)
		}
		return v
	}

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		switch {
		case strings.Contains(text, "NUMNP") && strings.Contains(text, "NELEM"):
			fields, ferr := next("problem size")
			if ferr != nil {
				return nil, ferr
			}
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: short problem size line", line)
			}
			numnp, nelem = atoi(fields[0]), atoi(fields[1])
			points = make([]r3.Vec, numnp)

		case strings.HasPrefix(text, "NODAL COORDINATES"):
			for i := 0; i < numnp; i++ {
				fields, ferr := next("coordinates")
				if ferr != nil {
					return nil, ferr
				}
				if len(fields) < 4 {
					return nil, fmt.Errorf("line %d: Gambit reader needs 3D coordinates", line)
				}
				id := atoi(fields[0])
				if id < 1 || id > numnp {
					return nil, fmt.Errorf("line %d: node %d of %d", line, id, numnp)
				}
				var x [3]float64
				for d := range x {
					if x[d], err = strconv.ParseFloat(fields[1+d], 64); err != nil {
						return nil, fmt.Errorf("line %d: %w", line, err)
					}
				}
				points[id-1] = r3.Vec{X: x[0], Y: x[1], Z: x[2]}
			}

		case strings.HasPrefix(text, "ELEMENTS/CELLS"):
			for i := 0; i < nelem; i++ {
				fields, ferr := next("elements")
				if ferr != nil {
					return nil, ferr
				}
				if len(fields) < 3 {
					return nil, fmt.Errorf("line %d: short element line", line)
				}
				gtype, ndp := atoi(fields[1]), atoi(fields[2])
				ge, ok := gambitElements[gtype]
				if !ok || len(ge.order) != ndp {
					return nil, fmt.Errorf("line %d: unsupported Gambit element type %d with %d nodes", line, gtype, ndp)
				}
				nodes := make([]int, 0, ndp)
				for _, f := range fields[3:] {
					nodes = append(nodes, atoi(f)-1)
				}
				// node lists wrap onto continuation lines
				for len(nodes) < ndp {
					if fields, ferr = next("element nodes"); ferr != nil {
						return nil, ferr
					}
					for _, f := range fields {
						nodes = append(nodes, atoi(f)-1)
					}
				}
				verts := make([]int, ndp)
				for j, g := range ge.order {
					verts[j] = nodes[g]
				}
				elements = append(elements, verts)
				gambitNodes = append(gambitNodes, nodes)
				elementTypes = append(elementTypes, ge.etype)
				gambitTypes = append(gambitTypes, gtype)
			}

		case strings.HasPrefix(text, "BOUNDARY CONDITIONS"):
			fields, ferr := next("boundary condition header")
			if ferr != nil {
				return nil, ferr
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: short boundary condition header", line)
			}
			name, itype, nentry := fields[0], atoi(fields[1]), atoi(fields[2])
			for i := 0; i < nentry; i++ {
				if fields, ferr = next("boundary condition " + name); ferr != nil {
					return nil, ferr
				}
				if itype != 1 {
					continue
				}
				if len(fields) < 3 {
					return nil, fmt.Errorf("line %d: short boundary face entry", line)
				}
				elem, face := atoi(fields[0])-1, atoi(fields[2])-1
				if elem < 0 || elem >= len(elements) {
					return nil, fmt.Errorf("line %d: boundary face on element %d of %d", line, elem+1, len(elements))
				}
				faces := gambitElements[gambitTypes[elem]].faces
				if face < 0 || face >= len(faces) {
					return nil, fmt.Errorf("line %d: element %d has no face %d", line, elem+1, face+1)
				}
				verts := make([]int, len(faces[face]))
				for j, g := range faces[face] {
					verts[j] = gambitNodes[elem][g]
				}
				boundary = append(boundary, BoundaryFace{Tag: name, Vertices: verts})
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: no volume elements in Gambit file", ErrBadTopology)
	}
	return NewFromElements(points, elements, elementTypes, boundary, nil)
}
