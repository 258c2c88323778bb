package payload

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
)

// PatchEdgeFaceInfo is the distance information held on the edges and faces of a surface
type PatchEdgeFaceInfo struct {
	Origin  r3.Vec
	DistSqr float64
}

func NewPatchEdgeFaceInfo() PatchEdgeFaceInfo {
	return PatchEdgeFaceInfo{DistSqr: -1}
}

func (p *PatchEdgeFaceInfo) Reset()      { *p = NewPatchEdgeFaceInfo() }
func (p *PatchEdgeFaceInfo) Valid() bool { return p.DistSqr > -Small }

func (p *PatchEdgeFaceInfo) Distance() float64 {
	if !p.Valid() {
		return math.Inf(1)
	}
	return math.Sqrt(p.DistSqr)
}

func (p *PatchEdgeFaceInfo) Update(pt r3.Vec, p2 *PatchEdgeFaceInfo, tol float64) bool {
	dist2 := r3.Norm2(r3.Sub(pt, p2.Origin))
	if p.Valid() && !improves(p.DistSqr, dist2, tol) {
		return false
	}
	p.Origin, p.DistSqr = p2.Origin, dist2
	return true
}

func (p *PatchEdgeFaceInfo) UpdateEdge(pp *mesh.PrimitivePatch, edgei, facei int, faceInfo *PatchEdgeFaceInfo,
	tol float64) bool {
	return p.Update(pp.EdgeCentre(edgei), faceInfo, tol)
}

func (p *PatchEdgeFaceInfo) UpdateFace(pp *mesh.PrimitivePatch, facei, edgei int, edgeInfo *PatchEdgeFaceInfo,
	tol float64) bool {
	return p.Update(pp.FaceCentre(facei), edgeInfo, tol)
}

func (p *PatchEdgeFaceInfo) Transform(rot *r3.Mat) { p.Origin = rotate(rot, p.Origin) }

func (p *PatchEdgeFaceInfo) Equal(o *PatchEdgeFaceInfo) bool { return *p == *o }

const (
	RegionUnset   int32 = -1
	RegionBlocked int32 = -2
)

// PatchEdgeFaceRegion labels surface faces and edges with a zone, the lowest label reaching an
// entity wins. Blocked entities stop the front.
type PatchEdgeFaceRegion struct {
	Region int32
}

func NewPatchEdgeFaceRegion() PatchEdgeFaceRegion {
	return PatchEdgeFaceRegion{Region: RegionUnset}
}

func (r *PatchEdgeFaceRegion) Reset()        { *r = NewPatchEdgeFaceRegion() }
func (r *PatchEdgeFaceRegion) Valid() bool   { return r.Region != RegionUnset }
func (r *PatchEdgeFaceRegion) Blocked() bool { return r.Region == RegionBlocked }

func (r *PatchEdgeFaceRegion) Update(r2 *PatchEdgeFaceRegion) bool {
	if !r2.Valid() || r2.Blocked() || r.Blocked() {
		return false
	}
	if !r.Valid() || r2.Region < r.Region {
		r.Region = r2.Region
		return true
	}
	return false
}

func (r *PatchEdgeFaceRegion) UpdateEdge(pp *mesh.PrimitivePatch, edgei, facei int, faceInfo *PatchEdgeFaceRegion,
	tol float64) bool {
	return r.Update(faceInfo)
}

func (r *PatchEdgeFaceRegion) UpdateFace(pp *mesh.PrimitivePatch, facei, edgei int, edgeInfo *PatchEdgeFaceRegion,
	tol float64) bool {
	return r.Update(edgeInfo)
}

func (r *PatchEdgeFaceRegion) Transform(*r3.Mat) {}

func (r *PatchEdgeFaceRegion) Equal(o *PatchEdgeFaceRegion) bool { return *r == *o }
