package decompose

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/types"
)

func chain(t *testing.T, n int) *mesh.Mesh {
	m, err := mesh.NewBlockMesh(mesh.BlockSpec{N: [3]int{n, 1, 1},
		Types: map[string]types.PatchType{"xmin": types.Patch_Wall}})
	require.NoError(t, err)
	return m
}

func TestManualChain(t *testing.T) {
	m := chain(t, 5)
	d, err := Manual(m, []int{0, 0, 1, 1, 1}, 2)
	require.NoError(t, err)
	require.Len(t, d.Meshes, 2)

	assert.Equal(t, []int{0, 1}, d.CellProcAddressing[0])
	assert.Equal(t, []int{2, 3, 4}, d.CellProcAddressing[1])

	for p, pm := range d.Meshes {
		require.Len(t, pm.Patches, len(m.Patches)+1, "processor %d", p)
		for i, gp := range m.Patches {
			assert.Equal(t, gp.Name, pm.Patches[i].Name)
			assert.Equal(t, gp.Type, pm.Patches[i].Type)
		}
		proc := pm.Patches[len(m.Patches)]
		assert.Equal(t, types.Patch_Processor, proc.Type)
		assert.Equal(t, 1, proc.Size)
		assert.Equal(t, p, proc.MyProcNo)
		assert.Equal(t, 1-p, proc.NeighbProcNo)
		assert.NoError(t, pm.CheckCoupling())
	}
	assert.Equal(t, "procBoundary0to1", d.Meshes[0].Patches[6].Name)
	assert.Equal(t, "procBoundary1to0", d.Meshes[1].Patches[6].Name)

	// xmin lives on processor 0 only
	assert.Equal(t, 1, d.Meshes[0].Patches[0].Size)
	assert.Equal(t, 0, d.Meshes[1].Patches[0].Size)
	assert.Equal(t, 0, d.Meshes[0].Patches[1].Size)
	assert.Equal(t, 1, d.Meshes[1].Patches[1].Size)

	// The cut face is owned by the local cell on both sides
	var (
		p0, p1 = d.Meshes[0], d.Meshes[1]
		f0, f1 = p0.Patches[6].Start, p1.Patches[6].Start
	)
	assert.Equal(t, 1, p0.Owner[f0])
	assert.Equal(t, 0, p1.Owner[f1])
	assert.False(t, d.FaceFlipped[0][f0])
	assert.True(t, d.FaceFlipped[1][f1])
	assert.Equal(t, d.FaceProcAddressing[0][f0], d.FaceProcAddressing[1][f1])
	assert.InDelta(t, 1, p0.FaceNormal(f0).X, 1e-12)
	assert.InDelta(t, -1, p1.FaceNormal(f1).X, 1e-12)
	c0, c1 := p0.FaceCentres()[f0], p1.FaceCentres()[f1]
	assert.InDelta(t, 2, c0.X, 1e-12)
	assert.InDelta(t, c0.X, c1.X, 1e-12)
	assert.InDelta(t, c0.Y, c1.Y, 1e-12)
	assert.InDelta(t, c0.Z, c1.Z, 1e-12)

	// The four points of the cut face are shared, in the same global order on both sides
	require.Len(t, p0.ProcPoints, 1)
	require.Len(t, p1.ProcPoints, 1)
	assert.Equal(t, 1, p0.ProcPoints[0].NeighbProcNo)
	assert.Equal(t, 0, p1.ProcPoints[0].NeighbProcNo)
	require.Len(t, p0.ProcPoints[0].Points, 4)
	for k := range p0.ProcPoints[0].Points {
		g0 := d.PointProcAddressing[0][p0.ProcPoints[0].Points[k]]
		g1 := d.PointProcAddressing[1][p1.ProcPoints[0].Points[k]]
		assert.Equal(t, g0, g1)
		assert.InDelta(t, 2, m.Points[g0].X, 1e-12)
	}

	// Local geometry matches the global mesh
	for p, pm := range d.Meshes {
		for i, c := range d.CellProcAddressing[p] {
			assert.InDelta(t, m.CellCentres()[c].X, pm.CellCentres()[i].X, 1e-12)
		}
		for i, pt := range d.PointProcAddressing[p] {
			assert.Equal(t, m.Points[pt], pm.Points[i])
		}
	}
}

func TestSimpleMethod(t *testing.T) {
	m := chain(t, 5)
	d, err := Decompose(m, 2, Simple)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 1, 1}, d.CellProc)

	d, err = Decompose(m, 1, Simple)
	require.NoError(t, err)
	require.Len(t, d.Meshes, 1)
	assert.Len(t, d.Meshes[0].Patches, len(m.Patches))
	assert.Empty(t, d.Meshes[0].ProcPoints)
	assert.Equal(t, m.NFaces(), d.Meshes[0].NFaces())
}

func TestCyclicCellsStayTogether(t *testing.T) {
	m := chain(t, 4)
	require.NoError(t, m.CouplePatches(0, 1, nil))
	d, err := Manual(m, []int{0, 0, 1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 0}, d.CellProc)

	p0, p1 := d.Meshes[0], d.Meshes[1]
	assert.Equal(t, 1, p0.Patches[0].Size)
	assert.Equal(t, 1, p0.Patches[1].Size)
	assert.Equal(t, 0, p1.Patches[0].Size)
	assert.Equal(t, 0, p1.Patches[1].Size)
	assert.Equal(t, types.Patch_Cyclic, p1.Patches[0].Type)
	require.NoError(t, p0.CheckCoupling())
	require.NoError(t, p1.CheckCoupling())

	// Cell 2 borders processor 0 on both sides
	require.Len(t, p1.Patches, 7)
	assert.Equal(t, 2, p1.Patches[6].Size)
	pairs, err := p0.CyclicPointPairs(0)
	require.NoError(t, err)
	assert.Len(t, pairs, 4)
}

func TestReconstruct(t *testing.T) {
	m := chain(t, 5)
	d, err := Manual(m, []int{1, 0, 1, 0, 0}, 2)
	require.NoError(t, err)

	var (
		cellFields  = make([][]int, d.NProcs)
		pointFields = make([][]int, d.NProcs)
	)
	for p := range d.Meshes {
		cellFields[p] = append([]int(nil), d.CellProcAddressing[p]...)
		pointFields[p] = make([]int, len(d.PointProcAddressing[p]))
		for i, pt := range d.PointProcAddressing[p] {
			pointFields[p][i] = 100*pt + p
		}
	}
	cells, err := ReconstructCellField(d, cellFields)
	require.NoError(t, err)
	for c, v := range cells {
		assert.Equal(t, c, v)
	}
	points, err := ReconstructPointField(d, pointFields)
	require.NoError(t, err)
	for pt, v := range points {
		assert.Equal(t, pt, v/100)
	}
	// Points of the x=1 plane are used by both ranks, the lowest wins
	for pt, v := range points {
		if m.Points[pt].X == 1 {
			assert.Equal(t, 0, v%100)
		}
	}

	_, err = ReconstructCellField(d, cellFields[:1])
	assert.Error(t, err)
	cellFields[0] = cellFields[0][:1]
	_, err = ReconstructCellField(d, cellFields)
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	m, err := mesh.NewBlockMesh(mesh.BlockSpec{N: [3]int{2, 2, 1}})
	require.NoError(t, err)
	d, err := Manual(m, []int{0, 1, 2, 3}, 4)
	require.NoError(t, err)
	for _, s := range d.Stats() {
		assert.Equal(t, 1, s.Cells)
		assert.Equal(t, 2, s.ProcFaces)
		// Each corner cell shares points with all three other ranks
		assert.Equal(t, 2, len(d.Meshes[s.Proc].PatchesOfType(types.Patch_Processor)))
		assert.Equal(t, 2, s.Neighbours)
		assert.Len(t, d.Meshes[s.Proc].ProcPoints, 3)
	}
	var buf bytes.Buffer
	d.Print(&buf)
	assert.Contains(t, buf.String(), "shared pts")
}

func TestDecomposeErrors(t *testing.T) {
	m := chain(t, 3)
	_, err := Manual(m, []int{0, 0}, 2)
	assert.ErrorIs(t, err, ErrBadAssignment)
	_, err = Manual(m, []int{0, 2, 0}, 2)
	assert.ErrorIs(t, err, ErrBadAssignment)
	_, err = Manual(m, []int{0, 0, 0}, 2)
	assert.ErrorIs(t, err, ErrEmptyProcessor)
	_, err = Decompose(m, 0, Simple)
	assert.ErrorIs(t, err, ErrBadAssignment)
	_, err = Decompose(m, 2, Method("scotch"))
	assert.Error(t, err)

	d, err := Manual(m, []int{0, 1, 1}, 2)
	require.NoError(t, err)
	_, err = Manual(d.Meshes[1], []int{0, 0}, 1)
	assert.ErrorIs(t, err, ErrDecomposed)
}

func TestBuildMetisGraph(t *testing.T) {
	m, err := mesh.NewBlockMesh(mesh.BlockSpec{N: [3]int{3, 2, 1}})
	require.NoError(t, err)
	p := newPartitioner(m, DefaultPartitionConfig(2))
	xadj, adjncy, vwgt, adjwgt := p.buildMetisGraph()

	nc := m.NCells()
	require.Len(t, xadj, nc+1)
	assert.Equal(t, int32(0), xadj[0])
	assert.Equal(t, int32(len(adjncy)), xadj[nc])
	assert.Len(t, adjwgt, len(adjncy))
	assert.Len(t, vwgt, nc)
	// Every hexahedron has six faces
	for _, w := range vwgt {
		assert.Equal(t, int32(6), w)
	}
	// Symmetric adjacency, two entries per internal face
	assert.Equal(t, 2*m.NInternalFaces(), len(adjncy))
	has := func(a, b int) bool {
		for _, n := range adjncy[xadj[a]:xadj[a+1]] {
			if int(n) == b {
				return true
			}
		}
		return false
	}
	for c := 0; c < nc; c++ {
		for _, n := range adjncy[xadj[c]:xadj[c+1]] {
			assert.True(t, has(int(n), c), "edge %d-%d is one sided", c, n)
		}
	}

	// Cyclic pairs join the end cells
	require.NoError(t, m.CouplePatches(0, 1, nil))
	_, adjncy2, _, _ := p.buildMetisGraph()
	assert.Equal(t, len(adjncy)+4, len(adjncy2))
}

func TestMetisDecomposition(t *testing.T) {
	if os.Getenv("MESHWAVE_METIS") == "" {
		t.Skip("set MESHWAVE_METIS to run against the METIS library")
	}
	m, err := mesh.NewBlockMesh(mesh.BlockSpec{N: [3]int{4, 4, 2}})
	require.NoError(t, err)
	d, err := Decompose(m, 4, Metis)
	require.NoError(t, err)
	counts := make([]int, 4)
	for _, p := range d.CellProc {
		counts[p]++
	}
	for p, n := range counts {
		assert.Positive(t, n, "processor %d", p)
	}
}
