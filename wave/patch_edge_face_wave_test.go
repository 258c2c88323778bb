package wave

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/parallel"
	"github.com/notargets/meshwave/payload"
)

// zminSurface is the bottom of an nx by ny block
func zminSurface(t *testing.T, nx, ny int) *mesh.PrimitivePatch {
	m := block(t, nx, ny, 1)
	pp, err := mesh.NewPrimitivePatch(m, []int{4})
	require.NoError(t, err)
	return pp
}

func edgeAt(t *testing.T, pp *mesh.PrimitivePatch, x r3.Vec) int {
	for e := 0; e < pp.NEdges(); e++ {
		if r3.Norm(r3.Sub(pp.EdgeCentre(e), x)) < 1e-9 {
			return e
		}
	}
	t.Fatalf("no edge centred at %v", x)
	return -1
}

func TestPatchEdgeFaceWaveStrip(t *testing.T) {
	pp := zminSurface(t, 5, 1)
	e := edgeAt(t, pp, r3.Vec{Y: 0.5})
	seeds := []Seed[payload.PatchEdgeFaceInfo]{{Index: e, Info: payload.PatchEdgeFaceInfo{Origin: pp.EdgeCentre(e)}}}
	w, err := NewPatchEdgeFaceWave[payload.PatchEdgeFaceInfo](pp, seeds, 20, Config{})
	require.NoError(t, err)
	assert.Equal(t, Converged, w.Run())
	assert.Equal(t, 5, w.Iterations())
	for f := 0; f < pp.NFaces(); f++ {
		info, err := w.Info(Face, f)
		require.NoError(t, err)
		assert.InDelta(t, pp.FaceCentre(f).X, info.Distance(), 1e-12, "face %d", f)
	}
	n, err := w.Unreached(Edge)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = w.Info(Cell, 0)
	assert.ErrorIs(t, err, ErrBadIndex)
}

func TestPatchEdgeFaceWavePerimeterDistance(t *testing.T) {
	shuffleVisits(t, 5)
	pp := zminSurface(t, 4, 3)
	var seeds []Seed[payload.PatchEdgeFaceInfo]
	perimeter := pp.BoundaryEdges()
	require.Len(t, perimeter, 14)
	for _, e := range perimeter {
		seeds = append(seeds, Seed[payload.PatchEdgeFaceInfo]{Index: e, Info: payload.PatchEdgeFaceInfo{Origin: pp.EdgeCentre(e)}})
	}
	w, err := NewPatchEdgeFaceWave[payload.PatchEdgeFaceInfo](pp, seeds, 20, Config{Tolerance: 1e-9})
	require.NoError(t, err)
	require.Equal(t, Converged, w.Run())

	for f, info := range w.AllFaceInfo() {
		fc := pp.FaceCentre(f)
		exact := math.Inf(1)
		for _, e := range perimeter {
			exact = min(exact, r3.Norm(r3.Sub(fc, pp.EdgeCentre(e))))
		}
		require.True(t, info.Valid())
		// The front follows the surface, it never beats the straight line
		assert.GreaterOrEqual(t, info.Distance(), exact-1e-12, "face %d", f)
		assert.InDelta(t, exact, info.Distance(), 1e-9, "face %d", f)
	}
}

func TestPatchEdgeFaceWaveBlockedEdge(t *testing.T) {
	pp := zminSurface(t, 4, 1)
	var (
		edgeInfo = make([]payload.PatchEdgeFaceRegion, pp.NEdges())
		faceInfo = make([]payload.PatchEdgeFaceRegion, pp.NFaces())
	)
	for i := range edgeInfo {
		edgeInfo[i].Reset()
	}
	for i := range faceInfo {
		faceInfo[i].Reset()
	}
	edgeInfo[edgeAt(t, pp, r3.Vec{X: 2, Y: 0.5})].Region = payload.RegionBlocked
	seeds := []Seed[payload.PatchEdgeFaceRegion]{
		{Index: edgeAt(t, pp, r3.Vec{Y: 0.5}), Info: payload.PatchEdgeFaceRegion{Region: 0}},
		{Index: edgeAt(t, pp, r3.Vec{X: 4, Y: 0.5}), Info: payload.PatchEdgeFaceRegion{Region: 7}},
	}
	w, err := NewPatchEdgeFaceWaveFrom[payload.PatchEdgeFaceRegion](pp, edgeInfo, faceInfo, seeds, 20, Config{})
	require.NoError(t, err)
	require.Equal(t, Converged, w.Run())
	for f, info := range w.AllFaceInfo() {
		want := int32(0)
		if pp.FaceCentre(f).X > 2 {
			want = 7
		}
		assert.Equal(t, want, info.Region, "face %d", f)
	}
	n, err := w.Unreached(Face)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPatchEdgeFaceWaveErrors(t *testing.T) {
	pp := zminSurface(t, 2, 2)
	_, err := NewPatchEdgeFaceWave[payload.PatchEdgeFaceInfo](pp, nil, 5, Config{})
	assert.ErrorIs(t, err, ErrNoSeeds)
	w, err := NewPatchEdgeFaceWave[payload.PatchEdgeFaceInfo](pp, nil, 0, Config{})
	require.NoError(t, err)
	assert.Equal(t, Unstarted, w.Run())

	_, err = NewPatchEdgeFaceWave[payload.PatchEdgeFaceInfo](pp,
		[]Seed[payload.PatchEdgeFaceInfo]{{Index: pp.NEdges()}}, 5, Config{})
	assert.ErrorIs(t, err, ErrBadIndex)
	_, err = NewPatchEdgeFaceWaveFrom[payload.PatchEdgeFaceInfo](pp, nil, nil, nil, 0, Config{})
	assert.ErrorIs(t, err, ErrSizeMismatch)

	world, err := parallel.NewWorld(2)
	require.NoError(t, err)
	comm, err := world.Comm(0)
	require.NoError(t, err)
	_, err = NewPatchEdgeFaceWave[payload.PatchEdgeFaceInfo](pp, nil, 0, Config{Comm: comm})
	assert.ErrorIs(t, err, ErrParallelUnsupported)
}
