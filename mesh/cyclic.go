package mesh

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/types"
)

// RotationTensor returns the tensor rotating by angleDeg degrees about axis
func RotationTensor(axis r3.Vec, angleDeg float64) *r3.Mat {
	return r3.NewRotation(angleDeg*math.Pi/180, r3.Unit(axis)).Mat()
}

func transpose(rot *r3.Mat) *r3.Mat {
	t := r3.NewMat(nil)
	t.CloneFrom(rot.T())
	return t
}

func isRotation(rot *r3.Mat, tol float64) bool {
	var rrt r3.Mat
	rrt.Mul(rot, rot.T())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.
			if i == j {
				want = 1
			}
			if !scalar.EqualWithinAbs(rrt.At(i, j), want, tol) {
				return false
			}
		}
	}
	return scalar.EqualWithinAbs(rot.Det(), 1, tol)
}

/*
CouplePatches pairs patches a and b as cyclic halves. rot takes vectors expressed on b into the
frame of a, nil means the halves are related by a translation only. b receives the inverse rotation.
The faces of b are reordered so that face i of a is coupled to face i of b.
*/
func (m *Mesh) CouplePatches(a, b int, rot *r3.Mat) error {
	if a < 0 || a >= len(m.Patches) || b < 0 || b >= len(m.Patches) || a == b {
		return fmt.Errorf("%w: cannot couple patches %d and %d", ErrNoPatch, a, b)
	}
	pa, pb := m.Patches[a], m.Patches[b]
	if pa.Size != pb.Size {
		return fmt.Errorf("%w: cyclic patches %s and %s have %d and %d faces", ErrBadTopology,
			pa.Name, pb.Name, pa.Size, pb.Size)
	}
	if rot != nil && !isRotation(rot, 1e-9) {
		return fmt.Errorf("%w: cyclic transform between %s and %s is not a rotation", ErrBadTopology,
			pa.Name, pb.Name)
	}
	pa.Type, pb.Type = types.Patch_Cyclic, types.Patch_Cyclic
	pa.NeighbourPatch, pb.NeighbourPatch = b, a
	pa.Rotation, pb.Rotation = nil, nil
	if rot != nil {
		pa.Rotation, pb.Rotation = rot, transpose(rot)
	}
	if err := m.matchCyclicFaces(pa, pb); err != nil {
		pa.Type, pb.Type = types.Patch_Generic, types.Patch_Generic
		pa.NeighbourPatch, pb.NeighbourPatch = -1, -1
		pa.Rotation, pb.Rotation = nil, nil
		return err
	}
	m.Invalidate()
	return nil
}

// matchCyclicFaces permutes the faces of b into the order of their partners on a
func (m *Mesh) matchCyclicFaces(pa, pb *Patch) error {
	var (
		fc    = m.FaceCentres()
		tol   = 1e-6 * math.Min(m.minPatchEdge(pa), m.minPatchEdge(pb))
		order = make([]int, pa.Size)
		taken = make(map[int]bool)
	)
	for i := 0; i < pb.Size; i++ {
		x := m.TransformPosition(pa.Index, fc[pb.Start+i])
		match, best := -1, math.Inf(1)
		for j := 0; j < pa.Size; j++ {
			if d := r3.Norm(r3.Sub(fc[pa.Start+j], x)); d < best {
				match, best = j, d
			}
		}
		if best > tol || taken[match] {
			return fmt.Errorf("%w: face %d of %s has no partner on %s", ErrBadTopology, pb.Start+i,
				pb.Name, pa.Name)
		}
		taken[match] = true
		order[match] = pb.Start + i
	}
	faces := make([][]int, pb.Size)
	owner := make([]int, pb.Size)
	for j, f := range order {
		faces[j], owner[j] = m.Faces[f], m.Owner[f]
	}
	copy(m.Faces[pb.Start:], faces)
	copy(m.Owner[pb.Start:], owner)
	return nil
}

// CyclicPointPairs returns, for a coupled cyclic patch, the pairs (point on patch, matching point on
// the partner patch), matched geometrically through the cyclic transform.
func (m *Mesh) CyclicPointPairs(patchi int) ([][2]int, error) {
	p := m.Patches[patchi]
	if p.Type != types.Patch_Cyclic || p.NeighbourPatch < 0 {
		return nil, fmt.Errorf("%w: %s is not a coupled cyclic patch", ErrBadTopology, p.Name)
	}
	var err error
	pairs := m.cache.cyclicPts.get(func() map[int][][2]int {
		all := make(map[int][][2]int)
		for _, cp := range m.Patches {
			if cp.Type != types.Patch_Cyclic || cp.NeighbourPatch < 0 || cp.Size == 0 {
				continue
			}
			var e error
			if all[cp.Index], e = m.matchCyclicPoints(cp); e != nil && err == nil {
				err = e
			}
		}
		return all
	})
	if err != nil {
		m.cache.cyclicPts.clear()
		return nil, err
	}
	return pairs[patchi], nil
}

// patchCentroid is the area weighted mean of the face centres of a patch
func (m *Mesh) patchCentroid(p *Patch) r3.Vec {
	var (
		fc   = m.FaceCentres()
		sf   = m.FaceAreas()
		sum  r3.Vec
		area float64
	)
	for f := p.Start; f < p.Start+p.Size; f++ {
		a := r3.Norm(sf[f])
		sum = r3.Add(sum, r3.Scale(a, fc[f]))
		area += a
	}
	if area < vSmall {
		return sum
	}
	return r3.Scale(1/area, sum)
}

// TransformPosition maps a position on the partner of a cyclic patch onto the patch. The two
// patch centroids are taken as corresponding points.
func (m *Mesh) TransformPosition(patchi int, x r3.Vec) r3.Vec {
	var (
		p  = m.Patches[patchi]
		nb = m.Patches[p.NeighbourPatch]
	)
	rel := r3.Sub(x, m.patchCentroid(nb))
	if !p.IsParallel() {
		rel = p.Rotation.MulVec(rel)
	}
	return r3.Add(rel, m.patchCentroid(p))
}

func (m *Mesh) matchCyclicPoints(p *Patch) (pairs [][2]int, err error) {
	var (
		nb      = m.Patches[p.NeighbourPatch]
		mine    = patchPoints(m, p)
		theirs  = patchPoints(m, nb)
		tol     = 1e-6 * m.minPatchEdge(p)
		claimed = make(map[int]bool)
	)
	if len(mine) != len(theirs) {
		return nil, fmt.Errorf("%w: cyclic patches %s and %s have %d and %d points", ErrBadTopology,
			p.Name, nb.Name, len(mine), len(theirs))
	}
	for _, q := range theirs {
		x := m.TransformPosition(p.Index, m.Points[q])
		match, best := -1, math.Inf(1)
		for _, pt := range mine {
			if d := r3.Norm(r3.Sub(m.Points[pt], x)); d < best {
				match, best = pt, d
			}
		}
		if best > tol || claimed[match] {
			return nil, fmt.Errorf("%w: point %d of %s has no partner on %s", ErrBadTopology, q, nb.Name, p.Name)
		}
		claimed[match] = true
		pairs = append(pairs, [2]int{match, q})
	}
	return
}

// patchPoints returns the sorted mesh points used by a patch
func patchPoints(m *Mesh, p *Patch) (points []int) {
	seen := make(map[int]bool)
	for f := p.Start; f < p.Start+p.Size; f++ {
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

func (m *Mesh) minPatchEdge(p *Patch) float64 {
	minLen := math.Inf(1)
	for f := p.Start; f < p.Start+p.Size; f++ {
		verts := m.Faces[f]
		for i := range verts {
			minLen = math.Min(minLen, r3.Norm(r3.Sub(m.Points[verts[(i+1)%len(verts)]], m.Points[verts[i]])))
		}
	}
	return minLen
}
