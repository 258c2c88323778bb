package InputParameters

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshwave/decompose"
	"github.com/notargets/meshwave/types"
)

func TestParseCase(t *testing.T) {
	fileInput := []byte(`
Title: Channel
Block:
  N: [6, 2, 1]
  Types:
    ymin: wall
    ymax: Wall
Cyclics:
  - A: xmin
    B: xmax
Processors: 2
MaxIterations: 50
Tolerance: 1e-9
Correct: true
`)
	var input CaseParameters
	require.NoError(t, input.Parse(fileInput))
	assert.Equal(t, "Channel", input.Title)
	assert.Equal(t, [3]int{6, 2, 1}, input.Block.N)
	assert.Equal(t, "wall", input.Block.Types["ymin"])
	assert.Equal(t, 2, input.Processors)
	assert.Equal(t, 1e-9, input.Tolerance)
	assert.True(t, input.Correct)
	assert.Equal(t, decompose.Simple, input.DecompositionMethod())

	m, err := input.BuildMesh()
	require.NoError(t, err)
	assert.Equal(t, 12, m.NCells())
	assert.Equal(t, types.Patch_Cyclic, m.Patches[0].Type)
	assert.Equal(t, 1, m.Patches[0].NeighbourPatch)
	assert.Equal(t, []int{2, 3}, m.PatchesOfType(types.Patch_Wall))

	var buf bytes.Buffer
	input.Print(&buf)
	assert.Contains(t, buf.String(), "Types[ymin] = wall")
	assert.Contains(t, buf.String(), "Cyclic[xmin <-> xmax]")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		input CaseParameters
		ok    bool
	}{
		{"mesh file", CaseParameters{MeshFile: "case.su2"}, true},
		{"no mesh", CaseParameters{}, false},
		{"empty block", CaseParameters{Block: &BlockParameters{N: [3]int{2, 0, 1}}}, false},
		{"bad method", CaseParameters{MeshFile: "a.su2", Method: "scotch"}, false},
		{"metis", CaseParameters{MeshFile: "a.su2", Method: "metis", Processors: 4}, true},
		{"self cyclic", CaseParameters{MeshFile: "a.su2", Cyclics: []CyclicPair{{A: "x", B: "x"}}}, false},
		{"rotation without axis", CaseParameters{MeshFile: "a.su2", Cyclics: []CyclicPair{{A: "x", B: "y", Angle: 90}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
	_, err := (&CaseParameters{}).BuildMesh()
	assert.ErrorIs(t, err, ErrNoMesh)
}
