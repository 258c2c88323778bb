package mesh

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/types"
)

const twoTetSU2 = `
% Two tets sharing face 1-2-3
NDIME= 3
NELEM= 2
10 0 1 2 3 0
10 1 2 3 4 1
NPOIN= 5
0 0 0 0
1 0 0 1
0 1 0 2
0 0 1 3
1 1 1 4
NMARK= 2
MARKER_TAG= Wall-base
MARKER_ELEMS= 3
5 0 2 1
5 0 1 3
5 0 3 2
MARKER_TAG= farfield
MARKER_ELEMS= 3
5 1 2 4
5 2 3 4
5 1 4 3
`

func chain(t *testing.T, n int) *Mesh {
	m, err := NewBlockMesh(BlockSpec{N: [3]int{n, 1, 1}, Types: map[string]types.PatchType{"xmin": types.Patch_Wall}})
	require.NoError(t, err)
	return m
}

func TestBlockMesh(t *testing.T) {
	m := chain(t, 5)
	assert.Equal(t, 5, m.NCells())
	assert.Equal(t, 4, m.NInternalFaces())
	assert.Equal(t, 26, m.NFaces())
	assert.Equal(t, 24, m.NPoints())
	var sizes []int
	for i, p := range m.Patches {
		assert.Equal(t, BlockSides[i], p.Name)
		assert.Equal(t, i, p.Index)
		sizes = append(sizes, p.Size)
	}
	assert.Equal(t, []int{1, 1, 5, 5, 5, 5}, sizes)
	assert.Equal(t, types.Patch_Wall, m.Patches[0].Type)
	assert.Equal(t, types.Patch_Generic, m.Patches[1].Type)

	for c, cc := range m.CellCentres() {
		assert.InDelta(t, float64(c)+0.5, cc.X, 1e-12)
		assert.InDelta(t, 0.5, cc.Y, 1e-12)
		assert.InDelta(t, 0.5, cc.Z, 1e-12)
		assert.InDelta(t, 1., m.CellVolumes()[c], 1e-12)
	}
	// Owner outward normals
	xmin := m.Patches[0].Start
	assert.InDelta(t, -1., m.FaceAreas()[xmin].X, 1e-12)
	assert.InDelta(t, 0., m.FaceCentres()[xmin].X, 1e-12)
	for f := range m.Faces {
		d := r3.Sub(m.FaceCentres()[f], m.CellCentres()[m.Owner[f]])
		assert.Greater(t, r3.Dot(d, m.FaceAreas()[f]), 0.)
	}
	for f := 0; f < m.NInternalFaces(); f++ {
		assert.Less(t, m.Owner[f], m.Neighbour[f])
	}
	for _, faces := range m.CellFaces() {
		assert.Equal(t, 6, len(faces))
	}
	assert.Equal(t, 44, len(m.Edges()))
	for p, edges := range m.PointEdges() {
		want := 4
		if i := p % 6; i == 0 || i == 5 {
			want = 3
		}
		assert.Equal(t, want, len(edges), "point %d", p)
	}
	assert.Equal(t, -1, m.WhichPatch(0))
	assert.Equal(t, 0, m.WhichPatch(xmin))
	assert.Equal(t, 5, m.WhichPatch(m.NFaces()-1))

	_, err := NewBlockMesh(BlockSpec{N: [3]int{0, 1, 1}})
	assert.Error(t, err)
}

func TestPatchLookup(t *testing.T) {
	m := chain(t, 3)
	ids, err := m.PatchIDs("xmax", "ymin")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)
	_, err = m.PatchIDs("nope")
	assert.ErrorIs(t, err, ErrNoPatch)
	assert.Equal(t, []int{0}, m.PatchesOfType(types.Patch_Wall))
	var buf bytes.Buffer
	m.PrintStatistics(&buf)
	assert.Contains(t, buf.String(), "Cells: 3")
	assert.Contains(t, buf.String(), "Hex: 3")
}

func TestNewFromFacesValidation(t *testing.T) {
	m := chain(t, 2)
	// Patches must tile the boundary
	short := []*Patch{{Name: "all", Start: m.NInternalFaces(), Size: m.NBoundaryFaces() - 1}}
	_, err := NewFromFaces(m.Points, m.Faces, m.Owner, m.Neighbour, short)
	assert.ErrorIs(t, err, ErrBadTopology)
	all := []*Patch{{Name: "all", Start: m.NInternalFaces(), Size: m.NBoundaryFaces(), NeighbourPatch: -1}}
	m2, err := NewFromFaces(m.Points, m.Faces, m.Owner, m.Neighbour, all)
	require.NoError(t, err)
	assert.Equal(t, 2, m2.NCells())
	_, err = NewFromFaces(m.Points, m.Faces, m.Owner[:3], m.Neighbour, all)
	assert.ErrorIs(t, err, ErrBadTopology)
}

func TestParseSU2(t *testing.T) {
	m, err := ParseSU2(strings.NewReader(twoTetSU2))
	require.NoError(t, err)
	assert.Equal(t, 2, m.NCells())
	assert.Equal(t, 1, m.NInternalFaces())
	require.Equal(t, 2, len(m.Patches))
	assert.Equal(t, "Wall-base", m.Patches[0].Name)
	assert.Equal(t, types.Patch_Wall, m.Patches[0].Type)
	assert.Equal(t, 3, m.Patches[0].Size)
	assert.Equal(t, types.Patch_Generic, m.Patches[1].Type)
	for f := range m.Faces {
		d := r3.Sub(m.FaceCentres()[f], m.CellCentres()[m.Owner[f]])
		assert.Greater(t, r3.Dot(d, m.FaceAreas()[f]), 0.)
	}
	assert.InDelta(t, 1./6, m.CellVolumes()[0], 1e-12)

	_, err = ParseSU2(strings.NewReader("NDIME= 2\n"))
	assert.Error(t, err)
	_, err = ReadMeshFile("case.neu")
	assert.Error(t, err)
}

func TestUnmatchedBoundaryGoesToDefaultPatch(t *testing.T) {
	src := strings.Replace(twoTetSU2, "NMARK= 2", "NMARK= 1", 1)
	src = src[:strings.Index(src, "MARKER_TAG= farfield")]
	m, err := ParseSU2(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, 2, len(m.Patches))
	assert.Equal(t, DefaultPatchName, m.Patches[1].Name)
	assert.Equal(t, 3, m.Patches[1].Size)
}

func TestCyclicCoupling(t *testing.T) {
	m, err := NewBlockMesh(BlockSpec{N: [3]int{4, 2, 1}})
	require.NoError(t, err)
	require.Error(t, m.CouplePatches(0, 2, nil)) // 2 faces against 4
	require.NoError(t, m.CouplePatches(0, 1, nil))
	require.NoError(t, m.CheckCoupling())
	xmin, xmax := m.Patches[0], m.Patches[1]
	assert.True(t, xmin.IsParallel())
	assert.Equal(t, 1, xmin.NeighbourPatch)
	fc := m.FaceCentres()
	for i := 0; i < xmin.Size; i++ {
		a, b := fc[xmin.Start+i], fc[xmax.Start+i]
		assert.InDelta(t, a.Y, b.Y, 1e-12)
		assert.InDelta(t, a.Z, b.Z, 1e-12)
		x := m.TransformPosition(0, b)
		assert.InDelta(t, 0., r3.Norm(r3.Sub(x, a)), 1e-12)
	}
	pairs, err := m.CyclicPointPairs(0)
	require.NoError(t, err)
	assert.Equal(t, 6, len(pairs))
	for _, pr := range pairs {
		a, b := m.Points[pr[0]], m.Points[pr[1]]
		assert.InDelta(t, 0., a.X, 1e-12)
		assert.InDelta(t, 4., b.X, 1e-12)
		assert.InDelta(t, a.Y, b.Y, 1e-12)
	}
	_, err = m.CyclicPointPairs(2)
	assert.ErrorIs(t, err, ErrBadTopology)

	bad := r3.NewMat([]float64{2, 0, 0, 0, 1, 0, 0, 0, 1})
	assert.Error(t, m.CouplePatches(4, 5, bad))
}

func TestRotationalCyclic(t *testing.T) {
	// xmax (x=3) turned by 90 degrees about z lands on ymax (y=3)
	m, err := NewBlockMesh(BlockSpec{N: [3]int{2, 2, 1}, Origin: r3.Vec{X: 1, Y: 1}})
	require.NoError(t, err)
	rot := RotationTensor(r3.Vec{Z: 1}, 90)
	require.NoError(t, m.CouplePatches(3, 1, rot))
	ymax, xmax := m.Patches[3], m.Patches[1]
	assert.False(t, ymax.IsParallel())
	fc := m.FaceCentres()
	for i := 0; i < ymax.Size; i++ {
		x := m.TransformPosition(ymax.Index, fc[xmax.Start+i])
		assert.InDelta(t, 0., r3.Norm(r3.Sub(x, fc[ymax.Start+i])), 1e-9)
	}
	// The partner holds the inverse rotation
	v := xmax.Rotation.MulVec(ymax.Rotation.MulVec(r3.Vec{X: 1, Y: 2, Z: 3}))
	assert.InDelta(t, 0., r3.Norm(r3.Sub(v, r3.Vec{X: 1, Y: 2, Z: 3})), 1e-12)
}

func TestConnectedRegions(t *testing.T) {
	var (
		points   []r3.Vec
		elements [][]int
		eTypes   []ElementType
	)
	// Two unit cubes far apart
	for b := 0; b < 2; b++ {
		off := float64(10 * b)
		base := len(points)
		for _, z := range []float64{0, 1} {
			points = append(points, r3.Vec{X: off, Z: z}, r3.Vec{X: off + 1, Z: z},
				r3.Vec{X: off + 1, Y: 1, Z: z}, r3.Vec{X: off, Y: 1, Z: z})
		}
		elements = append(elements, []int{base, base + 1, base + 2, base + 3, base + 4, base + 5, base + 6, base + 7})
		eTypes = append(eTypes, Hex)
	}
	m, err := NewFromElements(points, elements, eTypes, nil, nil)
	require.NoError(t, err)
	regions, n := m.ConnectedRegions()
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{0, 1}, regions)

	regions, n = chain(t, 4).ConnectedRegions()
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{0, 0, 0, 0}, regions)
}

func TestPrimitivePatch(t *testing.T) {
	m, err := NewBlockMesh(BlockSpec{N: [3]int{2, 2, 1}})
	require.NoError(t, err)
	pp, err := NewPrimitivePatch(m, []int{4}) // zmin
	require.NoError(t, err)
	assert.Equal(t, 4, pp.NFaces())
	assert.Equal(t, 9, pp.NPoints())
	assert.Equal(t, 12, pp.NEdges())
	assert.Equal(t, 8, len(pp.BoundaryEdges()))
	for i := 0; i < pp.NFaces(); i++ {
		assert.InDelta(t, -1., pp.FaceNormal(i).Z, 1e-12)
		assert.Equal(t, i, pp.FaceOf(pp.Addressing[i]))
	}
	assert.Equal(t, -1, pp.FaceOf(0))
	for _, faces := range pp.EdgeFaces {
		assert.True(t, len(faces) == 1 || len(faces) == 2)
	}
	_, err = NewPrimitivePatch(m, []int{42})
	assert.ErrorIs(t, err, ErrNoPatch)
}

func TestAddressingIsInvalidated(t *testing.T) {
	m := chain(t, 2)
	before := len(m.Edges())
	m.AddPatch(&Patch{Name: "extra", NeighbourPatch: -1, NeighbProcNo: -1})
	assert.Equal(t, 7, len(m.Patches))
	assert.Equal(t, 0, m.Patches[6].Size)
	assert.Equal(t, before, len(m.Edges()))
	assert.Equal(t, 5, m.WhichPatch(m.NFaces()-1))
	assert.False(t, math.IsNaN(m.CellCentres()[0].X))
}

// Two bricks side by side in x, Gambit numbers brick nodes lexicographically
const twoBrickNeu = `        CONTROL INFO 2.4.6
** GAMBIT NEUTRAL FILE
bricks
PROGRAM:                Gambit     VERSION:  2.4.6
     NUMNP     NELEM     NGRPS    NBSETS     NDFCD     NDFVL
        12         2         1         2         3         3
ENDOFSECTION
   NODAL COORDINATES 2.4.6
         1   0.0   0.0   0.0
         2   1.0   0.0   0.0
         3   2.0   0.0   0.0
         4   0.0   1.0   0.0
         5   1.0   1.0   0.0
         6   2.0   1.0   0.0
         7   0.0   0.0   1.0
         8   1.0   0.0   1.0
         9   2.0   0.0   1.0
        10   0.0   1.0   1.0
        11   1.0   1.0   1.0
        12   2.0   1.0   1.0
ENDOFSECTION
      ELEMENTS/CELLS 2.4.6
         1  4  8        1        2        4        5        7        8       10
                       11
         2  4  8        2        3        5        6        8        9       11
                       12
ENDOFSECTION
       ELEMENT GROUP 2.4.6
GROUP:          1 ELEMENTS:          2 MATERIAL:          2 NFLAGS:          1
                           fluid
       0
         1         2
ENDOFSECTION
 BOUNDARY CONDITIONS 2.4.6
                     Wall-floor       1       2       0       6
         1       4       5
         2       4       5
ENDOFSECTION
 BOUNDARY CONDITIONS 2.4.6
                     outlet       1       1       0       6
         2       4       2
ENDOFSECTION
`

func TestParseGambit(t *testing.T) {
	m, err := ParseGambit(strings.NewReader(twoBrickNeu))
	require.NoError(t, err)
	assert.Equal(t, 2, m.NCells())
	assert.Equal(t, 1, m.NInternalFaces())
	require.Len(t, m.Patches, 3)

	floor := m.Patches[0]
	assert.Equal(t, "Wall-floor", floor.Name)
	assert.Equal(t, types.Patch_Wall, floor.Type)
	assert.Equal(t, 2, floor.Size)
	for _, f := range floor.Faces() {
		assert.InDelta(t, 0., m.FaceCentres()[f].Z, 1e-12)
		assert.InDelta(t, -1., m.FaceNormal(f).Z, 1e-12)
	}
	outlet := m.Patches[1]
	assert.Equal(t, 1, outlet.Size)
	assert.InDelta(t, 2., m.FaceCentres()[outlet.Start].X, 1e-12)
	assert.Equal(t, DefaultPatchName, m.Patches[2].Name)
	assert.Equal(t, 7, m.Patches[2].Size)
	for c, v := range m.CellVolumes() {
		assert.InDelta(t, 1., v, 1e-12, "cell %d", c)
	}

	_, err = ParseGambit(strings.NewReader("** GAMBIT NEUTRAL FILE\n"))
	assert.ErrorIs(t, err, ErrBadTopology)
}
