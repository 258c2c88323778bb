package walldist

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
)

// correctNearWall replaces the distance of every cell sharing a point with a wall face by the exact
// distance to the wall faces using its points, when that is smaller. Returns the number of cells
// changed.
func correctNearWall(m *mesh.Mesh, walls []int, res *Result) (nCorrected int) {
	var (
		wallFaces  = make(map[int][]int) // wall point -> wall faces using it
		pointCells = m.PointCells()
		cc         = m.CellCentres()
	)
	for _, pi := range walls {
		for _, f := range m.Patches[pi].Faces() {
			for _, v := range m.Faces[f] {
				wallFaces[v] = append(wallFaces[v], f)
			}
		}
	}
	near := make(map[int]bool)
	for v := range wallFaces {
		for _, c := range pointCells[v] {
			near[c] = true
		}
	}
	for c := range near {
		var (
			best     = res.Distance[c]
			bestFace = -1
			tried    = make(map[int]bool)
		)
		for _, v := range m.CellPoints(c) {
			for _, f := range wallFaces[v] {
				if tried[f] {
					continue
				}
				tried[f] = true
				if d := faceDistance(m, f, cc[c]); d < best {
					best, bestFace = d, f
				}
			}
		}
		if bestFace >= 0 {
			res.Distance[c] = best
			res.Normal[c] = m.FaceNormal(bestFace)
			nCorrected++
		}
	}
	return
}

// faceDistance is the distance from x to the polygon of a face, split into a triangle fan about
// the face centre
func faceDistance(m *mesh.Mesh, facei int, x r3.Vec) float64 {
	var (
		verts  = m.Faces[facei]
		centre = m.FaceCentres()[facei]
		dist   = math.Inf(1)
	)
	for i, v := range verts {
		a, b := m.Points[v], m.Points[verts[(i+1)%len(verts)]]
		dist = math.Min(dist, r3.Norm(r3.Sub(x, closestOnTriangle(x, centre, a, b))))
	}
	return dist
}

// closestOnTriangle returns the point of triangle abc nearest to p, by locating p in the Voronoi
// regions of the vertices and edges before falling back to the interior
func closestOnTriangle(p, a, b, c r3.Vec) r3.Vec {
	var (
		ab = r3.Sub(b, a)
		ac = r3.Sub(c, a)
		ap = r3.Sub(p, a)
	)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return r3.Add(a, r3.Scale(d1/(d1-d3), ab))
	}
	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return r3.Add(a, r3.Scale(d2/(d2-d6), ac))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		return r3.Add(b, r3.Scale((d4-d3)/((d4-d3)+(d5-d6)), r3.Sub(c, b)))
	}
	denom := va + vb + vc
	if denom == 0 {
		// degenerate triangle
		return a
	}
	v, w := vb/denom, vc/denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}
