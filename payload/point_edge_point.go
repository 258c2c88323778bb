package payload

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
)

// PointEdgePoint is the distance information held on mesh points and edges
type PointEdgePoint struct {
	Origin  r3.Vec
	DistSqr float64
}

func NewPointEdgePoint() PointEdgePoint {
	return PointEdgePoint{DistSqr: -1}
}

func (p *PointEdgePoint) Reset()      { *p = NewPointEdgePoint() }
func (p *PointEdgePoint) Valid() bool { return p.DistSqr > -Small }

func (p *PointEdgePoint) Distance() float64 {
	if !p.Valid() {
		return math.Inf(1)
	}
	return math.Sqrt(p.DistSqr)
}

func (p *PointEdgePoint) Update(pt r3.Vec, p2 *PointEdgePoint, tol float64) bool {
	dist2 := r3.Norm2(r3.Sub(pt, p2.Origin))
	if p.Valid() && !improves(p.DistSqr, dist2, tol) {
		return false
	}
	p.Origin, p.DistSqr = p2.Origin, dist2
	return true
}

func (p *PointEdgePoint) UpdatePoint(m *mesh.Mesh, pointi, edgei int, edgeInfo *PointEdgePoint, tol float64) bool {
	return p.Update(m.Points[pointi], edgeInfo, tol)
}

func (p *PointEdgePoint) UpdatePointFromPoint(m *mesh.Mesh, pointi int, nbr *PointEdgePoint, tol float64) bool {
	return p.Update(m.Points[pointi], nbr, tol)
}

func (p *PointEdgePoint) UpdateEdge(m *mesh.Mesh, edgei, pointi int, pointInfo *PointEdgePoint, tol float64) bool {
	return p.Update(m.EdgeCentre(edgei), pointInfo, tol)
}

func (p *PointEdgePoint) Transform(rot *r3.Mat) { p.Origin = rotate(rot, p.Origin) }

func (p *PointEdgePoint) LeaveDomain(m *mesh.Mesh, patchi, index int, centre r3.Vec) {
	p.Origin = r3.Sub(p.Origin, centre)
}

func (p *PointEdgePoint) EnterDomain(m *mesh.Mesh, patchi, index int, centre r3.Vec) {
	p.Origin = r3.Add(p.Origin, centre)
}

func (p *PointEdgePoint) Equal(o *PointEdgePoint) bool { return *p == *o }

// PointData carries a scalar and a vector along with the distance. Neither takes part in the
// update decision, they are copied from whichever origin wins.
type PointData struct {
	PointEdgePoint
	S float64
	V r3.Vec
}

func NewPointData() PointData {
	return PointData{PointEdgePoint: NewPointEdgePoint()}
}

func (p *PointData) Reset() { *p = NewPointData() }

func (p *PointData) Update(pt r3.Vec, p2 *PointData, tol float64) bool {
	if !p.PointEdgePoint.Update(pt, &p2.PointEdgePoint, tol) {
		return false
	}
	p.S, p.V = p2.S, p2.V
	return true
}

func (p *PointData) UpdatePoint(m *mesh.Mesh, pointi, edgei int, edgeInfo *PointData, tol float64) bool {
	return p.Update(m.Points[pointi], edgeInfo, tol)
}

func (p *PointData) UpdatePointFromPoint(m *mesh.Mesh, pointi int, nbr *PointData, tol float64) bool {
	return p.Update(m.Points[pointi], nbr, tol)
}

func (p *PointData) UpdateEdge(m *mesh.Mesh, edgei, pointi int, pointInfo *PointData, tol float64) bool {
	return p.Update(m.EdgeCentre(edgei), pointInfo, tol)
}

func (p *PointData) Transform(rot *r3.Mat) {
	p.PointEdgePoint.Transform(rot)
	p.V = rotate(rot, p.V)
}

func (p *PointData) Equal(o *PointData) bool { return *p == *o }
