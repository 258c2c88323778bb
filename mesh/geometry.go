package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const vSmall = 1.0e-300

type cellGeometry struct {
	centres []r3.Vec
	volumes []float64
}

// FaceCentres returns the area weighted centre of every face
func (m *Mesh) FaceCentres() []r3.Vec {
	return m.cache.faceCentres.get(func() []r3.Vec {
		centres := make([]r3.Vec, m.NFaces())
		for f := range m.Faces {
			centres[f], _ = m.faceGeometry(f)
		}
		return centres
	})
}

// FaceAreas returns the area vector of every face, pointing out of the owner cell
func (m *Mesh) FaceAreas() []r3.Vec {
	return m.cache.faceAreas.get(func() []r3.Vec {
		areas := make([]r3.Vec, m.NFaces())
		for f := range m.Faces {
			_, areas[f] = m.faceGeometry(f)
		}
		return areas
	})
}

// FaceNormal returns the unit normal of a face
func (m *Mesh) FaceNormal(facei int) r3.Vec {
	sf := m.FaceAreas()[facei]
	if mag := r3.Norm(sf); mag > vSmall {
		return r3.Scale(1/mag, sf)
	}
	return r3.Vec{}
}

/*
faceGeometry splits a polygon into triangles about the vertex average and sums them. The centre is
the area weighted mean of the triangle centroids, the area vector is half the sum of the triangle
cross products.
*/
func (m *Mesh) faceGeometry(facei int) (centre, area r3.Vec) {
	var (
		verts = m.Faces[facei]
		n     = len(verts)
	)
	if n == 3 {
		tri := r3.Triangle{m.Points[verts[0]], m.Points[verts[1]], m.Points[verts[2]]}
		return tri.Centroid(), r3.Scale(0.5, r3.Cross(r3.Sub(tri[1], tri[0]), r3.Sub(tri[2], tri[0])))
	}
	var est r3.Vec
	for _, v := range verts {
		est = r3.Add(est, m.Points[v])
	}
	est = r3.Scale(1/float64(n), est)

	var sumN r3.Vec
	for i := 0; i < n; i++ {
		p, q := m.Points[verts[i]], m.Points[verts[(i+1)%n]]
		sumN = r3.Add(sumN, r3.Cross(r3.Sub(q, p), r3.Sub(est, p)))
	}
	var (
		sumA  float64
		sumAc r3.Vec
		dir   = r3.Unit(sumN)
	)
	for i := 0; i < n; i++ {
		p, q := m.Points[verts[i]], m.Points[verts[(i+1)%n]]
		c := r3.Add(r3.Add(p, q), est)
		a := math.Abs(r3.Dot(r3.Cross(r3.Sub(q, p), r3.Sub(est, p)), dir))
		sumA += a
		sumAc = r3.Add(sumAc, r3.Scale(a, c))
	}
	if sumA < vSmall {
		return est, r3.Vec{}
	}
	return r3.Scale(1/(3*sumA), sumAc), r3.Scale(0.5, sumN)
}

func (m *Mesh) cellGeometry() cellGeometry {
	return m.cache.cellCentres.get(func() (cg cellGeometry) {
		var (
			nc          = m.NCells()
			faceCentres = m.FaceCentres()
			faceAreas   = m.FaceAreas()
			cellFaces   = m.CellFaces()
		)
		cg.centres = make([]r3.Vec, nc)
		cg.volumes = make([]float64, nc)
		for c := 0; c < nc; c++ {
			var est r3.Vec
			for _, f := range cellFaces[c] {
				est = r3.Add(est, faceCentres[f])
			}
			est = r3.Scale(1/float64(len(cellFaces[c])), est)
			// Sum the pyramids standing on each face with their apex at the estimated centre
			var (
				ctr r3.Vec
				vol float64
			)
			for _, f := range cellFaces[c] {
				pyr3Vol := math.Abs(r3.Dot(faceAreas[f], r3.Sub(faceCentres[f], est)))
				pc := r3.Add(r3.Scale(0.75, faceCentres[f]), r3.Scale(0.25, est))
				ctr = r3.Add(ctr, r3.Scale(pyr3Vol, pc))
				vol += pyr3Vol
			}
			if vol > vSmall {
				cg.centres[c] = r3.Scale(1/vol, ctr)
			} else {
				cg.centres[c] = est
			}
			cg.volumes[c] = vol / 3
		}
		return
	})
}

func (m *Mesh) CellCentres() []r3.Vec  { return m.cellGeometry().centres }
func (m *Mesh) CellVolumes() []float64 { return m.cellGeometry().volumes }

// EdgeCentre returns the midpoint of an edge
func (m *Mesh) EdgeCentre(edgei int) r3.Vec {
	e := m.Edges()[edgei]
	return r3.Scale(0.5, r3.Add(m.Points[e[0]], m.Points[e[1]]))
}
