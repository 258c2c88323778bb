package wave

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/types"
)

// PointEdgeInfo is what PointEdgeWave needs from a payload
type PointEdgeInfo[T any] interface {
	*T
	Reset()
	Valid() bool
	UpdatePoint(m *mesh.Mesh, pointi, edgei int, edgeInfo *T, tol float64) bool
	// UpdatePointFromPoint merges the information of a coupled copy of pointi
	UpdatePointFromPoint(m *mesh.Mesh, pointi int, nbr *T, tol float64) bool
	UpdateEdge(m *mesh.Mesh, edgei, pointi int, pointInfo *T, tol float64) bool
	Transform(rot *r3.Mat)
	// patchi is -1 when the point is shared with another processor
	LeaveDomain(m *mesh.Mesh, patchi, index int, centre r3.Vec)
	EnterDomain(m *mesh.Mesh, patchi, index int, centre r3.Vec)
	Equal(o *T) bool
}

type cyclicPoints struct {
	patch int
	pairs [][2]int // point on patch, point on the partner
}

// PointEdgeWave propagates information from points to edges and back
type PointEdgeWave[T any, PT PointEdgeInfo[T]] struct {
	mesh    *mesh.Mesh
	cfg     Config
	tol     float64
	maxIter int

	pointInfo, edgeInfo       []T
	pointChanged, edgeChanged []bool
	changedPoints             []int
	changedEdges              []int

	cyclic    []cyclicPoints
	procSet   map[int]int // neighbour rank -> index into mesh.ProcPoints
	procRanks []int

	state  State
	iter   int
	nEvals int
}

func NewPointEdgeWave[T any, PT PointEdgeInfo[T]](m *mesh.Mesh, seeds []Seed[T], maxIter int,
	cfg Config) (*PointEdgeWave[T, PT], error) {
	var (
		pointInfo = make([]T, m.NPoints())
		edgeInfo  = make([]T, len(m.Edges()))
	)
	for i := range pointInfo {
		PT(&pointInfo[i]).Reset()
	}
	for i := range edgeInfo {
		PT(&edgeInfo[i]).Reset()
	}
	return NewPointEdgeWaveFrom[T, PT](m, pointInfo, edgeInfo, seeds, maxIter, cfg)
}

// NewPointEdgeWaveFrom continues from existing point and edge values, the engine takes ownership
// of both arrays
func NewPointEdgeWaveFrom[T any, PT PointEdgeInfo[T]](m *mesh.Mesh, allPointInfo, allEdgeInfo []T,
	seeds []Seed[T], maxIter int, cfg Config) (w *PointEdgeWave[T, PT], err error) {
	nEdges := len(m.Edges())
	if len(allPointInfo) != m.NPoints() {
		return nil, fmt.Errorf("%w: %d point values for %d points", ErrSizeMismatch, len(allPointInfo), m.NPoints())
	}
	if len(allEdgeInfo) != nEdges {
		return nil, fmt.Errorf("%w: %d edge values for %d edges", ErrSizeMismatch, len(allEdgeInfo), nEdges)
	}
	if err = m.CheckCoupling(); err != nil {
		return nil, err
	}
	w = &PointEdgeWave[T, PT]{
		mesh:         m,
		cfg:          cfg,
		tol:          cfg.tol(),
		maxIter:      maxIter,
		pointInfo:    allPointInfo,
		edgeInfo:     allEdgeInfo,
		pointChanged: make([]bool, m.NPoints()),
		edgeChanged:  make([]bool, nEdges),
		procSet:      make(map[int]int),
	}
	for _, p := range m.Patches {
		if p.Type != types.Patch_Cyclic || p.Size == 0 {
			continue
		}
		pairs, err := m.CyclicPointPairs(p.Index)
		if err != nil {
			return nil, err
		}
		w.cyclic = append(w.cyclic, cyclicPoints{patch: p.Index, pairs: pairs})
	}
	if len(m.ProcPoints) > 0 && !cfg.parallel() {
		return nil, fmt.Errorf("%w: %d shared point sets", ErrNoComm, len(m.ProcPoints))
	}
	for i, set := range m.ProcPoints {
		if _, dup := w.procSet[set.NeighbProcNo]; dup {
			return nil, fmt.Errorf("%w: two point sets shared with rank %d", mesh.ErrBadTopology, set.NeighbProcNo)
		}
		w.procSet[set.NeighbProcNo] = i
		w.procRanks = append(w.procRanks, set.NeighbProcNo)
	}
	sort.Ints(w.procRanks)
	if cfg.parallel() {
		if err = checkContiguous[T](); err != nil {
			return nil, err
		}
	}
	if err = w.SetPointInfo(seeds); err != nil {
		return nil, err
	}
	if err = cfg.checkSeeds(len(seeds), maxIter); err != nil {
		return nil, err
	}
	return
}

// SetPointInfo overwrites the given points and marks them changed
func (w *PointEdgeWave[T, PT]) SetPointInfo(seeds []Seed[T]) error {
	for _, s := range seeds {
		if s.Index < 0 || s.Index >= len(w.pointInfo) {
			return fmt.Errorf("%w: seed point %d of %d", ErrBadIndex, s.Index, len(w.pointInfo))
		}
	}
	for _, s := range seeds {
		w.pointInfo[s.Index] = s.Info
		w.markPoint(s.Index)
	}
	return nil
}

func (w *PointEdgeWave[T, PT]) markPoint(pointi int) {
	if !w.pointChanged[pointi] {
		w.pointChanged[pointi] = true
		w.changedPoints = append(w.changedPoints, pointi)
	}
}

func (w *PointEdgeWave[T, PT]) markEdge(edgei int) {
	if !w.edgeChanged[edgei] {
		w.edgeChanged[edgei] = true
		w.changedEdges = append(w.changedEdges, edgei)
	}
}

func (w *PointEdgeWave[T, PT]) updatePoint(pointi, edgei int, nbr *T) {
	cur := PT(&w.pointInfo[pointi])
	if cur.Equal(nbr) {
		return
	}
	w.nEvals++
	if cur.UpdatePoint(w.mesh, pointi, edgei, nbr, w.tol) {
		w.markPoint(pointi)
	}
}

func (w *PointEdgeWave[T, PT]) updatePointFromPoint(pointi int, nbr *T) {
	cur := PT(&w.pointInfo[pointi])
	if cur.Equal(nbr) {
		return
	}
	w.nEvals++
	if cur.UpdatePointFromPoint(w.mesh, pointi, nbr, w.tol) {
		w.markPoint(pointi)
	}
}

func (w *PointEdgeWave[T, PT]) updateEdge(edgei, pointi int, nbr *T) {
	cur := PT(&w.edgeInfo[edgei])
	if cur.Equal(nbr) {
		return
	}
	w.nEvals++
	if cur.UpdateEdge(w.mesh, edgei, pointi, nbr, w.tol) {
		w.markEdge(edgei)
	}
}

// PointToEdge pushes every changed point into the edges using it, returning the number of edges
// changed on all processors
func (w *PointEdgeWave[T, PT]) PointToEdge() (int, error) {
	pointEdges := w.mesh.PointEdges()
	visitOrder(w.changedPoints)
	for _, p := range w.changedPoints {
		if !w.pointChanged[p] {
			panic(fmt.Sprintf("point %d is listed as changed but not marked", p))
		}
		for _, e := range pointEdges[p] {
			w.updateEdge(e, p, &w.pointInfo[p])
		}
		w.pointChanged[p] = false
	}
	w.changedPoints = w.changedPoints[:0]
	return w.cfg.sum(len(w.changedEdges))
}

// EdgeToPoint pushes every changed edge into its two points, then merges coupled points. It
// returns the number of points changed on all processors.
func (w *PointEdgeWave[T, PT]) EdgeToPoint() (int, error) {
	edges := w.mesh.Edges()
	visitOrder(w.changedEdges)
	for _, e := range w.changedEdges {
		if !w.edgeChanged[e] {
			panic(fmt.Sprintf("edge %d is listed as changed but not marked", e))
		}
		for _, p := range edges[e] {
			w.updatePoint(p, e, &w.edgeInfo[e])
		}
		w.edgeChanged[e] = false
	}
	w.changedEdges = w.changedEdges[:0]
	if err := w.syncCoupled(); err != nil {
		return 0, err
	}
	return w.cfg.sum(len(w.changedPoints))
}

func (w *PointEdgeWave[T, PT]) syncCoupled() error {
	w.handleCyclicPoints()
	if w.cfg.parallel() {
		return w.handleProcPoints()
	}
	return nil
}

func (w *PointEdgeWave[T, PT]) handleCyclicPoints() {
	var (
		m        = w.mesh
		received []pending[T]
	)
	for _, cp := range w.cyclic {
		var (
			p  = m.Patches[cp.patch]
			nb = m.Patches[p.NeighbourPatch]
		)
		for k, pair := range cp.pairs {
			mine, theirs := pair[0], pair[1]
			if !w.pointChanged[theirs] {
				continue
			}
			info := w.pointInfo[theirs]
			PT(&info).LeaveDomain(m, nb.Index, k, m.Points[theirs])
			if !p.IsParallel() {
				PT(&info).Transform(p.Rotation)
			}
			PT(&info).EnterDomain(m, p.Index, k, m.Points[mine])
			received = append(received, pending[T]{index: mine, info: info})
		}
	}
	for i := range received {
		w.updatePointFromPoint(received[i].index, &received[i].info)
	}
}

func (w *PointEdgeWave[T, PT]) handleProcPoints() error {
	var (
		m    = w.mesh
		send = make(map[int][]byte, len(w.procRanks))
	)
	for _, rank := range w.procRanks {
		var (
			set   = m.ProcPoints[w.procSet[rank]]
			items []coupledInfo[T]
		)
		for k, pt := range set.Points {
			if !w.pointChanged[pt] {
				continue
			}
			info := w.pointInfo[pt]
			PT(&info).LeaveDomain(m, -1, k, m.Points[pt])
			items = append(items, coupledInfo[T]{Index: int32(k), Info: info})
		}
		if len(items) == 0 {
			continue
		}
		buf, err := encodeInfo(items)
		if err != nil {
			return fmt.Errorf("encoding points for rank %d: %w", rank, err)
		}
		send[rank] = buf
	}
	recv, err := w.cfg.Comm.Exchange(send)
	if err != nil {
		return fmt.Errorf("processor exchange: %w", err)
	}
	for _, rank := range sortedRanks(recv) {
		si, ok := w.procSet[rank]
		if !ok {
			return fmt.Errorf("%w: data from rank %d which shares no points", ErrBadMessage, rank)
		}
		set := m.ProcPoints[si]
		items, err := decodeInfo[T](recv[rank])
		if err != nil {
			return fmt.Errorf("from rank %d: %w", rank, err)
		}
		for _, item := range items {
			k := int(item.Index)
			if k < 0 || k >= len(set.Points) {
				return fmt.Errorf("%w: shared point %d of %d", ErrBadMessage, k, len(set.Points))
			}
			info := item.Info
			PT(&info).EnterDomain(m, -1, k, m.Points[set.Points[k]])
			w.updatePointFromPoint(set.Points[k], &info)
		}
	}
	return nil
}

// Iterate runs up to maxIter rounds of point to edge to point propagation.
// When the budget runs out a confirming round still runs and its updates are kept, so the
// payloads may be one round ahead of Iterations.
func (w *PointEdgeWave[T, PT]) Iterate(maxIter int) (State, error) {
	if maxIter <= 0 {
		return w.state, nil
	}
	w.state = Iterating
	if err := w.syncCoupled(); err != nil {
		return w.state, err
	}
	round := 0
	iter, state, err := relax(maxIter, func() (int, error) {
		nEdges, err := w.PointToEdge()
		if err != nil {
			return 0, err
		}
		nPoints, err := w.EdgeToPoint()
		if err != nil {
			return 0, err
		}
		round++
		w.cfg.logf("PointEdgeWave round %d: changed edges %d, changed points %d", w.iter+round, nEdges, nPoints)
		return nPoints, nil
	})
	w.iter += iter
	w.state = state
	return w.state, err
}

func (w *PointEdgeWave[T, PT]) Run() (State, error) {
	return w.Iterate(w.maxIter)
}

func (w *PointEdgeWave[T, PT]) State() State    { return w.state }
func (w *PointEdgeWave[T, PT]) Iterations() int { return w.iter }
func (w *PointEdgeWave[T, PT]) NEvals() int     { return w.nEvals }

func (w *PointEdgeWave[T, PT]) Info(kind Entity, i int) (info T, err error) {
	var all []T
	switch kind {
	case Point:
		all = w.pointInfo
	case Edge:
		all = w.edgeInfo
	default:
		return info, fmt.Errorf("%w: a point-edge wave holds no %s values", ErrBadIndex, kind)
	}
	if i < 0 || i >= len(all) {
		return info, fmt.Errorf("%w: %s %d of %d", ErrBadIndex, kind, i, len(all))
	}
	return all[i], nil
}

func (w *PointEdgeWave[T, PT]) AllPointInfo() []T { return w.pointInfo }
func (w *PointEdgeWave[T, PT]) AllEdgeInfo() []T  { return w.edgeInfo }

func (w *PointEdgeWave[T, PT]) Unreached(kind Entity) (int, error) {
	switch kind {
	case Point:
		return countInvalid[T, PT](w.pointInfo), nil
	case Edge:
		return countInvalid[T, PT](w.edgeInfo), nil
	}
	return 0, fmt.Errorf("%w: a point-edge wave holds no %s values", ErrBadIndex, kind)
}

// GlobalUnreached sums Unreached over all processors. Shared points are counted once per processor.
func (w *PointEdgeWave[T, PT]) GlobalUnreached(kind Entity) (int, error) {
	n, err := w.Unreached(kind)
	if err != nil {
		return 0, err
	}
	return w.cfg.sum(n)
}
