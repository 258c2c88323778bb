package mesh

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/types"
)

/*
PrimitivePatch is the surface formed by the faces of one or more patches, with its own local
point, edge and face numbering. Local face i is mesh face Addressing[i], local point j is mesh point
MeshPoints[j].
*/
type PrimitivePatch struct {
	Mesh       *Mesh
	Addressing []int
	MeshPoints []int
	// Faces in local point numbering
	LocalFaces [][]int
	Edges      [][2]int // local points
	FaceEdges  [][]int
	EdgeFaces  [][]int
	PointEdges [][]int
}

// NewPrimitivePatch assembles the surface of the given patches
func NewPrimitivePatch(m *Mesh, patchIDs []int) (pp *PrimitivePatch, err error) {
	pp = &PrimitivePatch{Mesh: m}
	for _, id := range patchIDs {
		if id < 0 || id >= len(m.Patches) {
			return nil, fmt.Errorf("%w: patch index %d", ErrNoPatch, id)
		}
		pp.Addressing = append(pp.Addressing, m.Patches[id].Faces()...)
	}
	sort.Ints(pp.Addressing)
	pointMap := make(map[int]int)
	for _, f := range pp.Addressing {
		for _, v := range m.Faces[f] {
			if _, ok := pointMap[v]; !ok {
				pointMap[v] = 0
				pp.MeshPoints = append(pp.MeshPoints, v)
			}
		}
	}
	sort.Ints(pp.MeshPoints)
	for i, v := range pp.MeshPoints {
		pointMap[v] = i
	}
	edgeMap := make(map[types.EdgeKey]int)
	pp.LocalFaces = make([][]int, len(pp.Addressing))
	pp.FaceEdges = make([][]int, len(pp.Addressing))
	for i, f := range pp.Addressing {
		local := make([]int, len(m.Faces[f]))
		for j, v := range m.Faces[f] {
			local[j] = pointMap[v]
		}
		pp.LocalFaces[i] = local
		for _, key := range types.FaceEdgeKeys(local) {
			edgei, exists := edgeMap[key]
			if !exists {
				edgei = len(pp.Edges)
				edgeMap[key] = edgei
				pp.Edges = append(pp.Edges, key.GetVertices(false))
				pp.EdgeFaces = append(pp.EdgeFaces, nil)
			}
			pp.FaceEdges[i] = append(pp.FaceEdges[i], edgei)
			pp.EdgeFaces[edgei] = append(pp.EdgeFaces[edgei], i)
		}
	}
	pp.PointEdges = make([][]int, len(pp.MeshPoints))
	for e, verts := range pp.Edges {
		pp.PointEdges[verts[0]] = append(pp.PointEdges[verts[0]], e)
		pp.PointEdges[verts[1]] = append(pp.PointEdges[verts[1]], e)
	}
	return
}

func (pp *PrimitivePatch) NFaces() int  { return len(pp.Addressing) }
func (pp *PrimitivePatch) NEdges() int  { return len(pp.Edges) }
func (pp *PrimitivePatch) NPoints() int { return len(pp.MeshPoints) }

// LocalPoint returns the position of a local point
func (pp *PrimitivePatch) LocalPoint(pointi int) r3.Vec {
	return pp.Mesh.Points[pp.MeshPoints[pointi]]
}

func (pp *PrimitivePatch) FaceCentre(facei int) r3.Vec {
	return pp.Mesh.FaceCentres()[pp.Addressing[facei]]
}

func (pp *PrimitivePatch) FaceNormal(facei int) r3.Vec {
	return pp.Mesh.FaceNormal(pp.Addressing[facei])
}

func (pp *PrimitivePatch) EdgeCentre(edgei int) r3.Vec {
	e := pp.Edges[edgei]
	return r3.Scale(0.5, r3.Add(pp.LocalPoint(e[0]), pp.LocalPoint(e[1])))
}

// BoundaryEdges returns the edges used by a single face, the perimeter of the surface
func (pp *PrimitivePatch) BoundaryEdges() (edges []int) {
	for e, faces := range pp.EdgeFaces {
		if len(faces) == 1 {
			edges = append(edges, e)
		}
	}
	return
}

// FaceOf returns the local index of a mesh face, -1 when the face is not on the surface
func (pp *PrimitivePatch) FaceOf(meshFace int) int {
	i := sort.SearchInts(pp.Addressing, meshFace)
	if i < len(pp.Addressing) && pp.Addressing[i] == meshFace {
		return i
	}
	return -1
}
