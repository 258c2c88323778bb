package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypes(t *testing.T) {
	{ // Test packed int for edge labeling
		en := NewEdgeKey([2]int{1, 0})
		assert.Equal(t, EdgeKey(1<<32), en)
		assert.Equal(t, [2]int{0, 1}, en.GetVertices(false))
		assert.Equal(t, [2]int{1, 0}, en.GetVertices(true))

		en = NewEdgeKey([2]int{100, 1})
		assert.Equal(t, EdgeKey(100*(1<<32)+1), en)
		assert.Equal(t, [2]int{1, 100}, en.GetVertices(false))

		en = NewEdgeKey([2]int{1<<32 - 1, 1})
		assert.Equal(t, EdgeKey((1<<32-1)<<32+1), en)
		assert.Equal(t, [2]int{1, 1<<32 - 1}, en.GetVertices(false))

		assert.Panics(t, func() { NewEdgeKey([2]int{-1, 2}) })
	}
	{ // Edges of a quad, wrapping back to the first vertex
		keys := FaceEdgeKeys([]int{4, 7, 9, 2})
		assert.Equal(t, 4, len(keys))
		assert.Equal(t, [2]int{4, 7}, keys[0].GetVertices(false))
		assert.Equal(t, [2]int{2, 4}, keys[3].GetVertices(false))
	}
	{
		tokens := []string{"WALL", "Cyclic-1", "Periodic-2", "Wall-22", "Wall-top", "inlet", "processor"}
		flags := []PatchType{Patch_Wall, Patch_Cyclic, Patch_Cyclic, Patch_Wall, Patch_Wall, Patch_Generic,
			Patch_Processor}
		labels := []string{"", "1", "2", "22", "top", "inlet", ""}
		for i, token := range tokens {
			pt := NewPatchTag(token)
			assert.Equal(t, flags[i], pt.GetType(), token)
			assert.Equal(t, labels[i], pt.GetLabel(), token)
		}
		assert.True(t, Patch_Cyclic.IsCoupled())
		assert.False(t, Patch_Wall.IsCoupled())
		assert.Equal(t, "wall", Patch_Wall.String())
		assert.Equal(t, Patch_Symmetry, ParsePatchType(" Symmetry "))
	}
}
