package payload

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
)

// TopoDistanceData counts the faces crossed on the way from a seed, Data tags the seed
type TopoDistanceData struct {
	Distance int32
	Data     int32
}

func NewTopoDistanceData() TopoDistanceData {
	return TopoDistanceData{Distance: -1, Data: -1}
}

func (t *TopoDistanceData) Reset()      { *t = NewTopoDistanceData() }
func (t *TopoDistanceData) Valid() bool { return t.Distance != -1 }

// adopt takes a candidate at the given distance when it is closer, or as close with a lower tag
func (t *TopoDistanceData) adopt(distance, data int32) bool {
	if t.Valid() && (distance > t.Distance || (distance == t.Distance && data >= t.Data)) {
		return false
	}
	t.Distance, t.Data = distance, data
	return true
}

func (t *TopoDistanceData) UpdateCell(m *mesh.Mesh, celli, nbrFacei int, nbr *TopoDistanceData, tol float64) bool {
	return t.adopt(nbr.Distance, nbr.Data)
}

func (t *TopoDistanceData) UpdateFace(m *mesh.Mesh, facei, nbrCelli int, nbr *TopoDistanceData, tol float64) bool {
	return t.adopt(nbr.Distance+1, nbr.Data)
}

func (t *TopoDistanceData) UpdateFaceFromFace(m *mesh.Mesh, facei int, nbr *TopoDistanceData, tol float64) bool {
	return t.adopt(nbr.Distance, nbr.Data)
}

// Point and edge variants, an edge is one hop further than the point it is reached from

func (t *TopoDistanceData) UpdatePoint(m *mesh.Mesh, pointi, edgei int, edgeInfo *TopoDistanceData, tol float64) bool {
	return t.adopt(edgeInfo.Distance, edgeInfo.Data)
}

func (t *TopoDistanceData) UpdatePointFromPoint(m *mesh.Mesh, pointi int, nbr *TopoDistanceData, tol float64) bool {
	return t.adopt(nbr.Distance, nbr.Data)
}

func (t *TopoDistanceData) UpdateEdge(m *mesh.Mesh, edgei, pointi int, pointInfo *TopoDistanceData, tol float64) bool {
	return t.adopt(pointInfo.Distance+1, pointInfo.Data)
}

func (t *TopoDistanceData) Transform(*r3.Mat)                        {}
func (t *TopoDistanceData) LeaveDomain(*mesh.Mesh, int, int, r3.Vec) {}
func (t *TopoDistanceData) EnterDomain(*mesh.Mesh, int, int, r3.Vec) {}
func (t *TopoDistanceData) Equal(o *TopoDistanceData) bool           { return *t == *o }
