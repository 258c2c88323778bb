package mesh

import (
	"sort"
	"sync"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/types"
)

// cached holds one lazily computed quantity. It is filled on first use and emptied by clear.
type cached[T any] struct {
	mu    sync.Mutex
	valid bool
	value T
}

func (c *cached[T]) get(build func() T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		c.value = build()
		c.valid = true
	}
	return c.value
}

func (c *cached[T]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value, c.valid = zero, false
}

type edgeAddressing struct {
	edges     [][2]int
	faceEdges [][]int
	edgeFaces [][]int
}

type addressing struct {
	facePatch   cached[[]int]
	cellFaces   cached[[][]int]
	pointFaces  cached[[][]int]
	pointCells  cached[[][]int]
	pointEdges  cached[[][]int]
	edges       cached[edgeAddressing]
	faceCentres cached[[]r3.Vec]
	faceAreas   cached[[]r3.Vec]
	cellCentres cached[cellGeometry]
	cyclicPts   cached[map[int][][2]int]
}

func (a *addressing) clear() {
	a.facePatch.clear()
	a.cellFaces.clear()
	a.pointFaces.clear()
	a.pointCells.clear()
	a.pointEdges.clear()
	a.edges.clear()
	a.faceCentres.clear()
	a.faceAreas.clear()
	a.cellCentres.clear()
	a.cyclicPts.clear()
}

// incidenceRows assembles a 0/1 incidence matrix and returns the sorted column indices of each row
func incidenceRows(nr, nc int, fill func(set func(i, j int))) (rows [][]int) {
	rows = make([][]int, nr)
	if nr == 0 || nc == 0 {
		return
	}
	dok := sparse.NewDOK(nr, nc)
	fill(func(i, j int) { dok.Set(i, j, 1) })
	raw := dok.ToCSR().RawMatrix()
	for i := 0; i < nr; i++ {
		row := append([]int(nil), raw.Ind[raw.Indptr[i]:raw.Indptr[i+1]]...)
		sort.Ints(row)
		rows[i] = row
	}
	return
}

// CellFaces returns the faces of every cell
func (m *Mesh) CellFaces() [][]int {
	return m.cache.cellFaces.get(func() [][]int {
		return incidenceRows(m.NCells(), m.NFaces(), func(set func(i, j int)) {
			for f, c := range m.Owner {
				set(c, f)
			}
			for f, c := range m.Neighbour {
				set(c, f)
			}
		})
	})
}

// PointFaces returns the faces using every point
func (m *Mesh) PointFaces() [][]int {
	return m.cache.pointFaces.get(func() [][]int {
		return incidenceRows(m.NPoints(), m.NFaces(), func(set func(i, j int)) {
			for f, verts := range m.Faces {
				for _, v := range verts {
					set(v, f)
				}
			}
		})
	})
}

// PointCells returns the cells using every point
func (m *Mesh) PointCells() [][]int {
	return m.cache.pointCells.get(func() [][]int {
		pointFaces := m.PointFaces()
		return incidenceRows(m.NPoints(), m.NCells(), func(set func(i, j int)) {
			for p, faces := range pointFaces {
				for _, f := range faces {
					set(p, m.Owner[f])
					if m.IsInternalFace(f) {
						set(p, m.Neighbour[f])
					}
				}
			}
		})
	})
}

func (m *Mesh) edgeAddressing() edgeAddressing {
	return m.cache.edges.get(func() (ea edgeAddressing) {
		edgeMap := make(map[types.EdgeKey]int)
		ea.faceEdges = make([][]int, m.NFaces())
		for f, verts := range m.Faces {
			keys := types.FaceEdgeKeys(verts)
			ea.faceEdges[f] = make([]int, len(keys))
			for i, key := range keys {
				edgei, exists := edgeMap[key]
				if !exists {
					edgei = len(ea.edges)
					edgeMap[key] = edgei
					ea.edges = append(ea.edges, key.GetVertices(false))
					ea.edgeFaces = append(ea.edgeFaces, nil)
				}
				ea.faceEdges[f][i] = edgei
				ea.edgeFaces[edgei] = append(ea.edgeFaces[edgei], f)
			}
		}
		return
	})
}

// Edges returns the mesh edges as ascending vertex pairs
func (m *Mesh) Edges() [][2]int { return m.edgeAddressing().edges }

// FaceEdges returns the edges of every face, edge i runs from vertex i to vertex i+1
func (m *Mesh) FaceEdges() [][]int { return m.edgeAddressing().faceEdges }

// EdgeFaces returns the faces using every edge
func (m *Mesh) EdgeFaces() [][]int { return m.edgeAddressing().edgeFaces }

// PointEdges returns the edges using every point
func (m *Mesh) PointEdges() [][]int {
	return m.cache.pointEdges.get(func() [][]int {
		edges := m.Edges()
		return incidenceRows(m.NPoints(), len(edges), func(set func(i, j int)) {
			for e, verts := range edges {
				set(verts[0], e)
				set(verts[1], e)
			}
		})
	})
}

// CellPoints returns the sorted points used by a cell
func (m *Mesh) CellPoints(celli int) (points []int) {
	seen := make(map[int]bool)
	for _, f := range m.CellFaces()[celli] {
		for _, v := range m.Faces[f] {
			if !seen[v] {
				seen[v] = true
				points = append(points, v)
			}
		}
	}
	sort.Ints(points)
	return
}
