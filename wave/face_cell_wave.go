package wave

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/types"
)

// FaceCellInfo is what FaceCellWave needs from a payload
type FaceCellInfo[T any] interface {
	*T
	// Reset makes the value unvisited
	Reset()
	Valid() bool
	// UpdateCell merges the information of face nbrFacei into cell celli
	UpdateCell(m *mesh.Mesh, celli, nbrFacei int, nbr *T, tol float64) bool
	// UpdateFace merges the information of cell nbrCelli into face facei
	UpdateFace(m *mesh.Mesh, facei, nbrCelli int, nbr *T, tol float64) bool
	// UpdateFaceFromFace merges the information of the coupled partner of facei
	UpdateFaceFromFace(m *mesh.Mesh, facei int, nbr *T, tol float64) bool
	Transform(rot *r3.Mat)
	LeaveDomain(m *mesh.Mesh, patchi, index int, centre r3.Vec)
	EnterDomain(m *mesh.Mesh, patchi, index int, centre r3.Vec)
	Equal(o *T) bool
}

// FaceCellWave propagates information from faces to cells and back
type FaceCellWave[T any, PT FaceCellInfo[T]] struct {
	mesh    *mesh.Mesh
	cfg     Config
	tol     float64
	maxIter int

	faceInfo, cellInfo       []T
	faceChanged, cellChanged []bool
	changedFaces             []int
	changedCells             []int

	cyclicPatches []int
	procPatch     map[int]int // neighbour rank -> patch
	procRanks     []int

	state  State
	iter   int
	nEvals int
}

// NewFaceCellWave sets up a wave from face seeds, all other faces and cells start unvisited
func NewFaceCellWave[T any, PT FaceCellInfo[T]](m *mesh.Mesh, seeds []Seed[T], maxIter int,
	cfg Config) (*FaceCellWave[T, PT], error) {
	var (
		faceInfo = make([]T, m.NFaces())
		cellInfo = make([]T, m.NCells())
	)
	for i := range faceInfo {
		PT(&faceInfo[i]).Reset()
	}
	for i := range cellInfo {
		PT(&cellInfo[i]).Reset()
	}
	return NewFaceCellWaveFrom[T, PT](m, faceInfo, cellInfo, seeds, maxIter, cfg)
}

// NewFaceCellWaveFrom continues from existing face and cell values, the engine takes ownership
// of both arrays
func NewFaceCellWaveFrom[T any, PT FaceCellInfo[T]](m *mesh.Mesh, allFaceInfo, allCellInfo []T,
	seeds []Seed[T], maxIter int, cfg Config) (w *FaceCellWave[T, PT], err error) {
	if len(allFaceInfo) != m.NFaces() {
		return nil, fmt.Errorf("%w: %d face values for %d faces", ErrSizeMismatch, len(allFaceInfo), m.NFaces())
	}
	if len(allCellInfo) != m.NCells() {
		return nil, fmt.Errorf("%w: %d cell values for %d cells", ErrSizeMismatch, len(allCellInfo), m.NCells())
	}
	if err = m.CheckCoupling(); err != nil {
		return nil, err
	}
	w = &FaceCellWave[T, PT]{
		mesh:        m,
		cfg:         cfg,
		tol:         cfg.tol(),
		maxIter:     maxIter,
		faceInfo:    allFaceInfo,
		cellInfo:    allCellInfo,
		faceChanged: make([]bool, m.NFaces()),
		cellChanged: make([]bool, m.NCells()),
		procPatch:   make(map[int]int),
	}
	for _, p := range m.Patches {
		switch p.Type {
		case types.Patch_Cyclic:
			w.cyclicPatches = append(w.cyclicPatches, p.Index)
		case types.Patch_Processor:
			if !cfg.parallel() {
				return nil, fmt.Errorf("%w: patch %s", ErrNoComm, p.Name)
			}
			if _, dup := w.procPatch[p.NeighbProcNo]; dup {
				return nil, fmt.Errorf("%w: two processor patches face rank %d", mesh.ErrBadTopology, p.NeighbProcNo)
			}
			w.procPatch[p.NeighbProcNo] = p.Index
			w.procRanks = append(w.procRanks, p.NeighbProcNo)
		}
	}
	sort.Ints(w.procRanks)
	if cfg.parallel() {
		if err = checkContiguous[T](); err != nil {
			return nil, err
		}
	}
	if err = w.SetFaceInfo(seeds); err != nil {
		return nil, err
	}
	if err = cfg.checkSeeds(len(seeds), maxIter); err != nil {
		return nil, err
	}
	return
}

// SetFaceInfo overwrites the given faces and marks them changed
func (w *FaceCellWave[T, PT]) SetFaceInfo(seeds []Seed[T]) error {
	for _, s := range seeds {
		if s.Index < 0 || s.Index >= len(w.faceInfo) {
			return fmt.Errorf("%w: seed face %d of %d", ErrBadIndex, s.Index, len(w.faceInfo))
		}
	}
	for _, s := range seeds {
		w.faceInfo[s.Index] = s.Info
		w.markFace(s.Index)
	}
	return nil
}

func (w *FaceCellWave[T, PT]) markFace(facei int) {
	if !w.faceChanged[facei] {
		w.faceChanged[facei] = true
		w.changedFaces = append(w.changedFaces, facei)
	}
}

func (w *FaceCellWave[T, PT]) markCell(celli int) {
	if !w.cellChanged[celli] {
		w.cellChanged[celli] = true
		w.changedCells = append(w.changedCells, celli)
	}
}

func (w *FaceCellWave[T, PT]) updateCell(celli, facei int, nbr *T) {
	cur := PT(&w.cellInfo[celli])
	if cur.Equal(nbr) {
		return
	}
	w.nEvals++
	if cur.UpdateCell(w.mesh, celli, facei, nbr, w.tol) {
		w.markCell(celli)
	}
}

func (w *FaceCellWave[T, PT]) updateFace(facei, celli int, nbr *T) {
	cur := PT(&w.faceInfo[facei])
	if cur.Equal(nbr) {
		return
	}
	w.nEvals++
	if cur.UpdateFace(w.mesh, facei, celli, nbr, w.tol) {
		w.markFace(facei)
	}
}

func (w *FaceCellWave[T, PT]) updateFaceFromFace(facei int, nbr *T) {
	cur := PT(&w.faceInfo[facei])
	if cur.Equal(nbr) {
		return
	}
	w.nEvals++
	if cur.UpdateFaceFromFace(w.mesh, facei, nbr, w.tol) {
		w.markFace(facei)
	}
}

// FaceToCell pushes every changed face into its owner and neighbour cells. It returns the number
// of cells changed on all processors.
func (w *FaceCellWave[T, PT]) FaceToCell() (int, error) {
	visitOrder(w.changedFaces)
	for _, f := range w.changedFaces {
		if !w.faceChanged[f] {
			panic(fmt.Sprintf("face %d is listed as changed but not marked", f))
		}
		info := &w.faceInfo[f]
		w.updateCell(w.mesh.Owner[f], f, info)
		if w.mesh.IsInternalFace(f) {
			w.updateCell(w.mesh.Neighbour[f], f, info)
		}
		w.faceChanged[f] = false
	}
	w.changedFaces = w.changedFaces[:0]
	return w.cfg.sum(len(w.changedCells))
}

// CellToFace pushes every changed cell into its faces, then merges coupled boundaries. It returns
// the number of faces changed on all processors.
func (w *FaceCellWave[T, PT]) CellToFace() (int, error) {
	cellFaces := w.mesh.CellFaces()
	visitOrder(w.changedCells)
	for _, c := range w.changedCells {
		if !w.cellChanged[c] {
			panic(fmt.Sprintf("cell %d is listed as changed but not marked", c))
		}
		for _, f := range cellFaces[c] {
			w.updateFace(f, c, &w.cellInfo[c])
		}
		w.cellChanged[c] = false
	}
	w.changedCells = w.changedCells[:0]
	if err := w.syncCoupled(); err != nil {
		return 0, err
	}
	return w.cfg.sum(len(w.changedFaces))
}

func (w *FaceCellWave[T, PT]) syncCoupled() error {
	w.handleCyclicPatches()
	if w.cfg.parallel() {
		return w.handleProcPatches()
	}
	return nil
}

// handleCyclicPatches merges the changed faces of every cyclic half into its partner
func (w *FaceCellWave[T, PT]) handleCyclicPatches() {
	var (
		m        = w.mesh
		fc       = m.FaceCentres()
		received []pending[T]
	)
	for _, pi := range w.cyclicPatches {
		var (
			p  = m.Patches[pi]
			nb = m.Patches[p.NeighbourPatch]
		)
		for i := 0; i < nb.Size; i++ {
			nf := nb.Start + i
			if !w.faceChanged[nf] {
				continue
			}
			info := w.faceInfo[nf]
			PT(&info).LeaveDomain(m, nb.Index, i, fc[nf])
			if !p.IsParallel() {
				PT(&info).Transform(p.Rotation)
			}
			PT(&info).EnterDomain(m, p.Index, i, fc[p.Start+i])
			received = append(received, pending[T]{index: p.Start + i, info: info})
		}
	}
	for i := range received {
		w.updateFaceFromFace(received[i].index, &received[i].info)
	}
}

// handleProcPatches sends the changed faces of every processor patch to the neighbouring rank and
// merges what comes back
func (w *FaceCellWave[T, PT]) handleProcPatches() error {
	var (
		m    = w.mesh
		fc   = m.FaceCentres()
		send = make(map[int][]byte, len(w.procRanks))
	)
	for _, rank := range w.procRanks {
		var (
			p     = m.Patches[w.procPatch[rank]]
			items []coupledInfo[T]
		)
		for i := 0; i < p.Size; i++ {
			f := p.Start + i
			if !w.faceChanged[f] {
				continue
			}
			info := w.faceInfo[f]
			PT(&info).LeaveDomain(m, p.Index, i, fc[f])
			items = append(items, coupledInfo[T]{Index: int32(i), Info: info})
		}
		if len(items) == 0 {
			continue
		}
		buf, err := encodeInfo(items)
		if err != nil {
			return fmt.Errorf("encoding patch %s: %w", p.Name, err)
		}
		send[rank] = buf
	}
	recv, err := w.cfg.Comm.Exchange(send)
	if err != nil {
		return fmt.Errorf("processor exchange: %w", err)
	}
	for _, rank := range sortedRanks(recv) {
		pi, ok := w.procPatch[rank]
		if !ok {
			return fmt.Errorf("%w: data from rank %d which is not a neighbour", ErrBadMessage, rank)
		}
		p := m.Patches[pi]
		items, err := decodeInfo[T](recv[rank])
		if err != nil {
			return fmt.Errorf("from rank %d: %w", rank, err)
		}
		for _, item := range items {
			i := int(item.Index)
			if i < 0 || i >= p.Size {
				return fmt.Errorf("%w: face %d of patch %s", ErrBadMessage, i, p.Name)
			}
			info := item.Info
			PT(&info).EnterDomain(m, p.Index, i, fc[p.Start+i])
			w.updateFaceFromFace(p.Start+i, &info)
		}
	}
	return nil
}

// Iterate runs up to maxIter rounds of cell to face to cell propagation, starting with the seeds
// and whatever changed since the last call.
// When the budget runs out a confirming round still runs and its updates are kept, so the
// payloads may be one round ahead of Iterations.
func (w *FaceCellWave[T, PT]) Iterate(maxIter int) (State, error) {
	if maxIter <= 0 {
		return w.state, nil
	}
	w.state = Iterating
	if err := w.syncCoupled(); err != nil {
		return w.state, err
	}
	if _, err := w.FaceToCell(); err != nil {
		return w.state, err
	}
	round := 0
	iter, state, err := relax(maxIter, func() (int, error) {
		nFaces, err := w.CellToFace()
		if err != nil {
			return 0, err
		}
		nCells, err := w.FaceToCell()
		if err != nil {
			return 0, err
		}
		round++
		w.cfg.logf("FaceCellWave round %d: changed faces %d, changed cells %d", w.iter+round, nFaces, nCells)
		return nCells, nil
	})
	w.iter += iter
	w.state = state
	return w.state, err
}

// Run iterates with the budget given at construction
func (w *FaceCellWave[T, PT]) Run() (State, error) {
	return w.Iterate(w.maxIter)
}

func (w *FaceCellWave[T, PT]) State() State { return w.state }

// Iterations is the number of rounds that changed at least one cell
func (w *FaceCellWave[T, PT]) Iterations() int { return w.iter }

// NEvals counts the calls into the payload update rules
func (w *FaceCellWave[T, PT]) NEvals() int { return w.nEvals }

func (w *FaceCellWave[T, PT]) Info(kind Entity, i int) (info T, err error) {
	var all []T
	switch kind {
	case Cell:
		all = w.cellInfo
	case Face:
		all = w.faceInfo
	default:
		return info, fmt.Errorf("%w: a face-cell wave holds no %s values", ErrBadIndex, kind)
	}
	if i < 0 || i >= len(all) {
		return info, fmt.Errorf("%w: %s %d of %d", ErrBadIndex, kind, i, len(all))
	}
	return all[i], nil
}

func (w *FaceCellWave[T, PT]) CellInfo(celli int) T { return w.cellInfo[celli] }
func (w *FaceCellWave[T, PT]) FaceInfo(facei int) T { return w.faceInfo[facei] }

// AllCellInfo returns the engine's cell array, it must not be modified while the wave is in use
func (w *FaceCellWave[T, PT]) AllCellInfo() []T { return w.cellInfo }
func (w *FaceCellWave[T, PT]) AllFaceInfo() []T { return w.faceInfo }

// Unreached counts the local cells or faces that were never visited
func (w *FaceCellWave[T, PT]) Unreached(kind Entity) (int, error) {
	switch kind {
	case Cell:
		return countInvalid[T, PT](w.cellInfo), nil
	case Face:
		return countInvalid[T, PT](w.faceInfo), nil
	}
	return 0, fmt.Errorf("%w: a face-cell wave holds no %s values", ErrBadIndex, kind)
}

// GlobalUnreached is Unreached summed over all processors, every rank must call it
func (w *FaceCellWave[T, PT]) GlobalUnreached(kind Entity) (int, error) {
	n, err := w.Unreached(kind)
	if err != nil {
		return 0, err
	}
	return w.cfg.sum(n)
}
