package payload

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
)

// WallPoint is the nearest seed point found so far for a cell or face, and the squared distance to it
type WallPoint struct {
	Origin  r3.Vec
	DistSqr float64
}

func NewWallPoint() WallPoint {
	return WallPoint{DistSqr: -1}
}

func (w *WallPoint) Reset()      { *w = NewWallPoint() }
func (w *WallPoint) Valid() bool { return w.DistSqr > -Small }

// Distance returns the distance to the origin, +Inf when not visited
func (w *WallPoint) Distance() float64 {
	if !w.Valid() {
		return math.Inf(1)
	}
	return math.Sqrt(w.DistSqr)
}

// Update takes the origin of w2 when it is closer to pt, see improves
func (w *WallPoint) Update(pt r3.Vec, w2 *WallPoint, tol float64) bool {
	dist2 := r3.Norm2(r3.Sub(pt, w2.Origin))
	if w.Valid() && !improves(w.DistSqr, dist2, tol) {
		return false
	}
	w.Origin, w.DistSqr = w2.Origin, dist2
	return true
}

func (w *WallPoint) UpdateCell(m *mesh.Mesh, celli, nbrFacei int, nbr *WallPoint, tol float64) bool {
	return w.Update(m.CellCentres()[celli], nbr, tol)
}

func (w *WallPoint) UpdateFace(m *mesh.Mesh, facei, nbrCelli int, nbr *WallPoint, tol float64) bool {
	return w.Update(m.FaceCentres()[facei], nbr, tol)
}

func (w *WallPoint) UpdateFaceFromFace(m *mesh.Mesh, facei int, nbr *WallPoint, tol float64) bool {
	return w.Update(m.FaceCentres()[facei], nbr, tol)
}

func (w *WallPoint) Transform(rot *r3.Mat) { w.Origin = rotate(rot, w.Origin) }

// LeaveDomain makes the origin relative to the face centre it is sent from
func (w *WallPoint) LeaveDomain(m *mesh.Mesh, patchi, index int, centre r3.Vec) {
	w.Origin = r3.Sub(w.Origin, centre)
}

func (w *WallPoint) EnterDomain(m *mesh.Mesh, patchi, index int, centre r3.Vec) {
	w.Origin = r3.Add(w.Origin, centre)
}

func (w *WallPoint) Equal(o *WallPoint) bool { return *w == *o }

// WallPointData carries the normal of the wall face the origin lies on
type WallPointData struct {
	WallPoint
	Normal r3.Vec
}

func NewWallPointData() WallPointData {
	return WallPointData{WallPoint: NewWallPoint()}
}

func (w *WallPointData) Reset() { *w = NewWallPointData() }

func (w *WallPointData) Update(pt r3.Vec, w2 *WallPointData, tol float64) bool {
	if !w.WallPoint.Update(pt, &w2.WallPoint, tol) {
		return false
	}
	w.Normal = w2.Normal
	return true
}

func (w *WallPointData) UpdateCell(m *mesh.Mesh, celli, nbrFacei int, nbr *WallPointData, tol float64) bool {
	return w.Update(m.CellCentres()[celli], nbr, tol)
}

func (w *WallPointData) UpdateFace(m *mesh.Mesh, facei, nbrCelli int, nbr *WallPointData, tol float64) bool {
	return w.Update(m.FaceCentres()[facei], nbr, tol)
}

func (w *WallPointData) UpdateFaceFromFace(m *mesh.Mesh, facei int, nbr *WallPointData, tol float64) bool {
	return w.Update(m.FaceCentres()[facei], nbr, tol)
}

func (w *WallPointData) Transform(rot *r3.Mat) {
	w.WallPoint.Transform(rot)
	w.Normal = rotate(rot, w.Normal)
}

func (w *WallPointData) Equal(o *WallPointData) bool { return *w == *o }
