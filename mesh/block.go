package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/types"
)

// BlockSides names the six sides of a block mesh, in patch order
var BlockSides = [6]string{"xmin", "xmax", "ymin", "ymax", "zmin", "zmax"}

// BlockSpec describes a structured box of hexahedra
type BlockSpec struct {
	N      [3]int
	Origin r3.Vec
	Length r3.Vec
	// Names overrides the side names, empty entries keep the default
	Names [6]string
	// Types sets the patch type per side name, sides not listed are generic patches
	Types map[string]types.PatchType
}

func (bs BlockSpec) sideName(side int) string {
	if bs.Names[side] != "" {
		return bs.Names[side]
	}
	return BlockSides[side]
}

// NewBlockMesh builds a box of N[0]*N[1]*N[2] unit-ordered hexahedra, cell (i,j,k) has index
// i + N[0]*(j + N[1]*k)
func NewBlockMesh(bs BlockSpec) (*Mesh, error) {
	var (
		nx, ny, nz = bs.N[0], bs.N[1], bs.N[2]
	)
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("block mesh needs at least one cell in each direction, got %v", bs.N)
	}
	if bs.Length == (r3.Vec{}) {
		bs.Length = r3.Vec{X: float64(nx), Y: float64(ny), Z: float64(nz)}
	}
	var (
		dx = r3.Vec{X: bs.Length.X / float64(nx), Y: bs.Length.Y / float64(ny), Z: bs.Length.Z / float64(nz)}
		pt = func(i, j, k int) int { return i + (nx+1)*(j+(ny+1)*k) }
	)
	points := make([]r3.Vec, (nx+1)*(ny+1)*(nz+1))
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				points[pt(i, j, k)] = r3.Add(bs.Origin, r3.Vec{
					X: float64(i) * dx.X, Y: float64(j) * dx.Y, Z: float64(k) * dx.Z})
			}
		}
	}
	elements := make([][]int, 0, nx*ny*nz)
	elementTypes := make([]ElementType, 0, nx*ny*nz)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				elements = append(elements, []int{
					pt(i, j, k), pt(i+1, j, k), pt(i+1, j+1, k), pt(i, j+1, k),
					pt(i, j, k+1), pt(i+1, j, k+1), pt(i+1, j+1, k+1), pt(i, j+1, k+1),
				})
				elementTypes = append(elementTypes, Hex)
			}
		}
	}
	var boundary []BoundaryFace
	add := func(side int, verts ...int) {
		boundary = append(boundary, BoundaryFace{Vertices: verts, Tag: bs.sideName(side)})
	}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			add(0, pt(0, j, k), pt(0, j+1, k), pt(0, j+1, k+1), pt(0, j, k+1))
		}
	}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			add(1, pt(nx, j, k), pt(nx, j+1, k), pt(nx, j+1, k+1), pt(nx, j, k+1))
		}
	}
	for k := 0; k < nz; k++ {
		for i := 0; i < nx; i++ {
			add(2, pt(i, 0, k), pt(i+1, 0, k), pt(i+1, 0, k+1), pt(i, 0, k+1))
		}
	}
	for k := 0; k < nz; k++ {
		for i := 0; i < nx; i++ {
			add(3, pt(i, ny, k), pt(i+1, ny, k), pt(i+1, ny, k+1), pt(i, ny, k+1))
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			add(4, pt(i, j, 0), pt(i+1, j, 0), pt(i+1, j+1, 0), pt(i, j+1, 0))
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			add(5, pt(i, j, nz), pt(i+1, j, nz), pt(i+1, j+1, nz), pt(i, j+1, nz))
		}
	}
	patchTypes := make(map[string]types.PatchType)
	for side := range BlockSides {
		name := bs.sideName(side)
		if pt, ok := bs.Types[name]; ok {
			patchTypes[name] = pt
		} else {
			patchTypes[name] = types.Patch_Generic
		}
	}
	return NewFromElements(points, elements, elementTypes, boundary, patchTypes)
}
