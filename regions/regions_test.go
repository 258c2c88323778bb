package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/payload"
	"github.com/notargets/meshwave/wave"
)

func block(t *testing.T, nx, ny, nz int) *mesh.Mesh {
	m, err := mesh.NewBlockMesh(mesh.BlockSpec{N: [3]int{nx, ny, nz}})
	require.NoError(t, err)
	return m
}

func TestClassifyWithCut(t *testing.T) {
	m := block(t, 5, 1, 1)
	cl, err := Classify(m, []int{0}, []int{4}, []int{2}, Options{})
	require.NoError(t, err)
	assert.Equal(t, wave.Converged, cl.State)
	assert.Equal(t, []int32{payload.Inside, payload.Inside, payload.Cut, payload.Outside, payload.Outside}, cl.Cells)
	assert.Equal(t, 2, cl.Counts["inside"])
	assert.Equal(t, 1, cl.Counts["cut"])
	assert.Zero(t, cl.Counts["mixed"])

	// Without the outside seed the far side is never reached
	cl, err = Classify(m, []int{0}, nil, []int{2}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int32{payload.Inside, payload.Inside, payload.Cut, payload.NotSet, payload.NotSet}, cl.Cells)
	assert.Equal(t, 2, cl.Counts["notset"])
}

func TestClassifyFrontsMeet(t *testing.T) {
	m := block(t, 5, 1, 1)
	cl, err := Classify(m, []int{0}, []int{4}, nil, Options{})
	require.NoError(t, err)
	// Where the fronts meet the cells turn mixed, and mixed overruns both sides
	for c, class := range cl.Cells {
		assert.Equal(t, payload.Mixed, class, "cell %d", c)
	}
	assert.Equal(t, 5, cl.Counts["mixed"])
}

func TestClassifyErrors(t *testing.T) {
	m := block(t, 3, 1, 1)
	_, err := Classify(m, []int{1}, nil, []int{1}, Options{})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = Classify(m, []int{0}, []int{3}, nil, Options{})
	assert.ErrorIs(t, err, ErrBadCell)

	cl, err := Classify(m, nil, nil, []int{1}, Options{})
	require.NoError(t, err)
	assert.Equal(t, wave.Unstarted, cl.State)
	assert.Equal(t, []int32{payload.NotSet, payload.Cut, payload.NotSet}, cl.Cells)
}

func TestPatchRegionsOfBox(t *testing.T) {
	m := block(t, 2, 2, 1)
	all := []int{0, 1, 2, 3, 4, 5}
	pr, err := NewPatchRegions(m, all, 45)
	require.NoError(t, err)
	assert.Equal(t, 6, pr.NRegions)
	assert.Len(t, pr.FeatureEdges, 20)
	// the lowest boundary face is on the first patch
	assert.Equal(t, m.Patches[0].Faces(), pr.RegionFaces(0))
	for r := 0; r < pr.NRegions; r++ {
		faces := pr.RegionFaces(r)
		require.NotEmpty(t, faces)
		pi := m.WhichPatch(faces[0])
		for _, f := range faces {
			assert.Equal(t, pi, m.WhichPatch(f), "region %d", r)
		}
	}

	pr, err = NewPatchRegions(m, all, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, pr.NRegions)
	assert.Empty(t, pr.FeatureEdges)
}

func TestPatchRegionsRightAngle(t *testing.T) {
	m := block(t, 1, 1, 1)
	// Two faces of a cube meet at a right angle
	pr, err := NewPatchRegions(m, []int{0, 2}, 45)
	require.NoError(t, err)
	assert.Equal(t, 2, pr.NRegions)
	assert.Equal(t, []int{0, 1}, pr.FaceRegion)

	_, err = NewPatchRegions(m, []int{9}, 45)
	assert.ErrorIs(t, err, mesh.ErrNoPatch)
}
