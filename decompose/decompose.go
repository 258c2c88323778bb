/*
Package decompose splits a mesh into per processor sub-meshes joined by processor patches, and
gathers per processor fields back into global order.

Every sub-mesh keeps all patches of the global mesh, in the same order, even when it holds none
of their faces, so that patch indices agree on every processor. Processor patches follow, one per
neighbouring rank in ascending rank order. Faces on a processor patch are ordered by their global
face index on both sides and flipped where needed so the local cell is the owner.
*/
package decompose

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/types"
	"github.com/notargets/meshwave/utils"
)

type Method string

const (
	Simple Method = "simple"
	Metis  Method = "metis"
)

var (
	ErrEmptyProcessor = errors.New("processor received no cells")
	ErrBadAssignment  = errors.New("invalid cell to processor assignment")
	ErrDecomposed     = errors.New("mesh is already decomposed")
)

type Decomposition struct {
	NProcs   int
	CellProc []int // global cell -> processor
	Meshes   []*mesh.Mesh

	// Per processor, local index -> global index
	CellProcAddressing  [][]int
	FaceProcAddressing  [][]int
	PointProcAddressing [][]int
	// FaceFlipped marks local faces whose vertex order is reversed from the global face
	FaceFlipped [][]bool

	global *mesh.Mesh
}

// Decompose assigns cells to nProcs processors with the given method and builds the sub-meshes
func Decompose(m *mesh.Mesh, nProcs int, method Method) (d *Decomposition, err error) {
	if nProcs < 1 {
		return nil, fmt.Errorf("%w: %d processors", ErrBadAssignment, nProcs)
	}
	var cellProc []int
	switch {
	case nProcs == 1:
		cellProc = make([]int, m.NCells())
	case method == Simple:
		pm := utils.NewPartitionMap(nProcs, m.NCells())
		cellProc = make([]int, m.NCells())
		for c := range cellProc {
			cellProc[c] = pm.GetBucket(c)
		}
	case method == Metis:
		if cellProc, err = newPartitioner(m, DefaultPartitionConfig(int32(nProcs))).partition(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown decomposition method %q", method)
	}
	return Manual(m, cellProc, nProcs)
}

// Manual builds the sub-meshes for a given cell to processor assignment. Cells joined through a
// cyclic patch are moved onto the processor of the lowest cell in their group.
func Manual(m *mesh.Mesh, cellToProc []int, nProcs int) (d *Decomposition, err error) {
	if len(cellToProc) != m.NCells() {
		return nil, fmt.Errorf("%w: %d entries for %d cells", ErrBadAssignment, len(cellToProc), m.NCells())
	}
	if len(m.PatchesOfType(types.Patch_Processor)) > 0 {
		return nil, ErrDecomposed
	}
	if err = m.CheckCoupling(); err != nil {
		return nil, err
	}
	cellProc := append([]int(nil), cellToProc...)
	for c, p := range cellProc {
		if p < 0 || p >= nProcs {
			return nil, fmt.Errorf("%w: cell %d on processor %d of %d", ErrBadAssignment, c, p, nProcs)
		}
	}
	if moved := keepCyclicTogether(m, cellProc); moved > 0 {
		log.Printf("Moved %d cells to keep cyclic neighbours on one processor", moved)
	}
	nCells := make([]int, nProcs)
	for _, p := range cellProc {
		nCells[p]++
	}
	for p, n := range nCells {
		if n == 0 {
			return nil, fmt.Errorf("%w: processor %d", ErrEmptyProcessor, p)
		}
	}

	d = &Decomposition{
		NProcs:              nProcs,
		CellProc:            cellProc,
		Meshes:              make([]*mesh.Mesh, nProcs),
		CellProcAddressing:  make([][]int, nProcs),
		FaceProcAddressing:  make([][]int, nProcs),
		PointProcAddressing: make([][]int, nProcs),
		FaceFlipped:         make([][]bool, nProcs),
		global:              m,
	}
	pointProcs := d.pointProcs()
	for p := 0; p < nProcs; p++ {
		if err = d.buildProcessor(p, pointProcs); err != nil {
			return nil, fmt.Errorf("processor %d: %w", p, err)
		}
	}
	d.analyze()
	return
}

// keepCyclicTogether joins the owner cells of every cyclic face pair, returning the number of
// cells that changed processor
func keepCyclicTogether(m *mesh.Mesh, cellProc []int) (moved int) {
	parent := make([]int, m.NCells())
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for _, pi := range m.PatchesOfType(types.Patch_Cyclic) {
		p := m.Patches[pi]
		if p.NeighbourPatch < pi {
			continue
		}
		nb := m.Patches[p.NeighbourPatch]
		for i := 0; i < p.Size; i++ {
			a, b := find(m.Owner[p.Start+i]), find(m.Owner[nb.Start+i])
			// the root is always the lowest cell of the group
			if a < b {
				parent[b] = a
			} else if b < a {
				parent[a] = b
			}
		}
	}
	for c := range cellProc {
		if r := find(c); cellProc[r] != cellProc[c] {
			cellProc[c] = cellProc[r]
			moved++
		}
	}
	return
}

// pointProcs lists, per global point, the ascending processors using it
func (d *Decomposition) pointProcs() [][]int {
	var (
		m     = d.global
		procs = make([][]int, m.NPoints())
	)
	add := func(pt, p int) {
		i := sort.SearchInts(procs[pt], p)
		if i < len(procs[pt]) && procs[pt][i] == p {
			return
		}
		procs[pt] = append(procs[pt], 0)
		copy(procs[pt][i+1:], procs[pt][i:])
		procs[pt][i] = p
	}
	for f, verts := range m.Faces {
		for _, v := range verts {
			add(v, d.CellProc[m.Owner[f]])
			if m.IsInternalFace(f) {
				add(v, d.CellProc[m.Neighbour[f]])
			}
		}
	}
	return procs
}

func reversed(verts []int) []int {
	out := make([]int, len(verts))
	for i, v := range verts {
		out[len(verts)-1-i] = v
	}
	return out
}

func (d *Decomposition) buildProcessor(proc int, pointProcs [][]int) (err error) {
	var (
		m         = d.global
		cellMap   = make(map[int]int)
		cells     []int
		faceAddr  []int
		flipped   []bool
		faces     [][]int
		owner     []int
		neighbour []int
		patches   []*mesh.Patch
	)
	for c, p := range d.CellProc {
		if p == proc {
			cellMap[c] = len(cells)
			cells = append(cells, c)
		}
	}
	addFace := func(f int, flip bool, own int) {
		verts := m.Faces[f]
		if flip {
			verts = reversed(verts)
		}
		faces = append(faces, verts)
		owner = append(owner, own)
		faceAddr = append(faceAddr, f)
		flipped = append(flipped, flip)
	}

	// Internal faces, then processor faces bucketed by neighbour rank
	procFaces := make(map[int][]int)
	for f := 0; f < m.NInternalFaces(); f++ {
		po, pn := d.CellProc[m.Owner[f]], d.CellProc[m.Neighbour[f]]
		switch {
		case po == proc && pn == proc:
			addFace(f, false, cellMap[m.Owner[f]])
			neighbour = append(neighbour, cellMap[m.Neighbour[f]])
		case po == proc:
			procFaces[pn] = append(procFaces[pn], f)
		case pn == proc:
			procFaces[po] = append(procFaces[po], f)
		}
	}

	for _, gp := range m.Patches {
		p := &mesh.Patch{
			Name:           gp.Name,
			Type:           gp.Type,
			Start:          len(faces),
			NeighbourPatch: gp.NeighbourPatch,
			Rotation:       gp.Rotation,
			MyProcNo:       proc,
			NeighbProcNo:   -1,
		}
		for i := 0; i < gp.Size; i++ {
			f := gp.Start + i
			if c, ok := cellMap[m.Owner[f]]; ok {
				addFace(f, false, c)
				p.Size++
			}
		}
		patches = append(patches, p)
	}

	nbrs := make([]int, 0, len(procFaces))
	for q := range procFaces {
		nbrs = append(nbrs, q)
	}
	sort.Ints(nbrs)
	for _, q := range nbrs {
		p := &mesh.Patch{
			Name:           fmt.Sprintf("procBoundary%dto%d", proc, q),
			Type:           types.Patch_Processor,
			Start:          len(faces),
			Size:           len(procFaces[q]),
			NeighbourPatch: -1,
			MyProcNo:       proc,
			NeighbProcNo:   q,
		}
		for _, f := range procFaces[q] {
			if c, ok := cellMap[m.Owner[f]]; ok {
				addFace(f, false, c)
			} else {
				addFace(f, true, cellMap[m.Neighbour[f]])
			}
		}
		patches = append(patches, p)
	}

	// Points in ascending global order
	var (
		pointMap  = make(map[int]int)
		pointAddr []int
	)
	for pt, procs := range pointProcs {
		if i := sort.SearchInts(procs, proc); i < len(procs) && procs[i] == proc {
			pointMap[pt] = len(pointAddr)
			pointAddr = append(pointAddr, pt)
		}
	}
	points := make([]r3.Vec, len(pointAddr))
	for i, pt := range pointAddr {
		points[i] = m.Points[pt]
	}
	for f, verts := range faces {
		local := make([]int, len(verts))
		for i, v := range verts {
			local[i] = pointMap[v]
		}
		faces[f] = local
	}

	pm, err := mesh.NewFromFaces(points, faces, owner, neighbour, patches)
	if err != nil {
		return err
	}
	shared := make(map[int][]int)
	for i, pt := range pointAddr {
		for _, q := range pointProcs[pt] {
			if q != proc {
				shared[q] = append(shared[q], i)
			}
		}
	}
	for q := 0; q < d.NProcs; q++ {
		if pts, ok := shared[q]; ok {
			pm.ProcPoints = append(pm.ProcPoints, mesh.ProcPointSet{NeighbProcNo: q, Points: pts})
		}
	}

	d.Meshes[proc] = pm
	d.CellProcAddressing[proc] = cells
	d.FaceProcAddressing[proc] = faceAddr
	d.PointProcAddressing[proc] = pointAddr
	d.FaceFlipped[proc] = flipped
	return nil
}

func (d *Decomposition) Global() *mesh.Mesh { return d.global }

// ReconstructCellField gathers one field per processor into global cell order
func ReconstructCellField[T any](d *Decomposition, fields [][]T) ([]T, error) {
	if len(fields) != d.NProcs {
		return nil, fmt.Errorf("%d fields for %d processors", len(fields), d.NProcs)
	}
	out := make([]T, d.global.NCells())
	for p, field := range fields {
		addr := d.CellProcAddressing[p]
		if len(field) != len(addr) {
			return nil, fmt.Errorf("processor %d: %d values for %d cells", p, len(field), len(addr))
		}
		for i, c := range addr {
			out[c] = field[i]
		}
	}
	return out, nil
}

// ReconstructPointField gathers one field per processor into global point order. A point shared
// by several processors takes the value of the lowest rank.
func ReconstructPointField[T any](d *Decomposition, fields [][]T) ([]T, error) {
	if len(fields) != d.NProcs {
		return nil, fmt.Errorf("%d fields for %d processors", len(fields), d.NProcs)
	}
	var (
		out  = make([]T, d.global.NPoints())
		seen = make([]bool, d.global.NPoints())
	)
	for p, field := range fields {
		addr := d.PointProcAddressing[p]
		if len(field) != len(addr) {
			return nil, fmt.Errorf("processor %d: %d values for %d points", p, len(field), len(addr))
		}
		for i, pt := range addr {
			if !seen[pt] {
				out[pt], seen[pt] = field[i], true
			}
		}
	}
	return out, nil
}

// ReconstructFaceField gathers one face field per processor into global face order. Faces on
// processor patches take the value of the lowest rank.
func ReconstructFaceField[T any](d *Decomposition, fields [][]T) ([]T, error) {
	if len(fields) != d.NProcs {
		return nil, fmt.Errorf("%d fields for %d processors", len(fields), d.NProcs)
	}
	var (
		out  = make([]T, d.global.NFaces())
		seen = make([]bool, d.global.NFaces())
	)
	for p, field := range fields {
		addr := d.FaceProcAddressing[p]
		if len(field) != len(addr) {
			return nil, fmt.Errorf("processor %d: %d values for %d faces", p, len(field), len(addr))
		}
		for i, f := range addr {
			if !seen[f] {
				out[f], seen[f] = field[i], true
			}
		}
	}
	return out, nil
}
