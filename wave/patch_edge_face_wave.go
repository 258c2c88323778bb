package wave

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
)

// PatchEdgeFaceInfo is what PatchEdgeFaceWave needs from a payload
type PatchEdgeFaceInfo[T any] interface {
	*T
	Reset()
	Valid() bool
	UpdateEdge(pp *mesh.PrimitivePatch, edgei, facei int, faceInfo *T, tol float64) bool
	UpdateFace(pp *mesh.PrimitivePatch, facei, edgei int, edgeInfo *T, tol float64) bool
	Transform(rot *r3.Mat)
	Equal(o *T) bool
}

// PatchEdgeFaceWave propagates information over a surface, from edges to faces and back. It runs
// on a single processor.
type PatchEdgeFaceWave[T any, PT PatchEdgeFaceInfo[T]] struct {
	patch   *mesh.PrimitivePatch
	tol     float64
	cfg     Config
	maxIter int

	edgeInfo, faceInfo       []T
	edgeChanged, faceChanged []bool
	changedEdges             []int
	changedFaces             []int

	state  State
	iter   int
	nEvals int
}

func NewPatchEdgeFaceWave[T any, PT PatchEdgeFaceInfo[T]](pp *mesh.PrimitivePatch, seeds []Seed[T],
	maxIter int, cfg Config) (*PatchEdgeFaceWave[T, PT], error) {
	var (
		edgeInfo = make([]T, pp.NEdges())
		faceInfo = make([]T, pp.NFaces())
	)
	for i := range edgeInfo {
		PT(&edgeInfo[i]).Reset()
	}
	for i := range faceInfo {
		PT(&faceInfo[i]).Reset()
	}
	return NewPatchEdgeFaceWaveFrom[T, PT](pp, edgeInfo, faceInfo, seeds, maxIter, cfg)
}

// NewPatchEdgeFaceWaveFrom starts from existing edge and face values, for instance with blocked
// entities already in place. The engine takes ownership of both arrays.
func NewPatchEdgeFaceWaveFrom[T any, PT PatchEdgeFaceInfo[T]](pp *mesh.PrimitivePatch, allEdgeInfo, allFaceInfo []T,
	seeds []Seed[T], maxIter int, cfg Config) (w *PatchEdgeFaceWave[T, PT], err error) {
	if cfg.parallel() {
		return nil, ErrParallelUnsupported
	}
	if len(allEdgeInfo) != pp.NEdges() {
		return nil, fmt.Errorf("%w: %d edge values for %d edges", ErrSizeMismatch, len(allEdgeInfo), pp.NEdges())
	}
	if len(allFaceInfo) != pp.NFaces() {
		return nil, fmt.Errorf("%w: %d face values for %d faces", ErrSizeMismatch, len(allFaceInfo), pp.NFaces())
	}
	if len(seeds) == 0 && maxIter > 0 {
		return nil, ErrNoSeeds
	}
	w = &PatchEdgeFaceWave[T, PT]{
		patch:       pp,
		tol:         cfg.tol(),
		cfg:         cfg,
		maxIter:     maxIter,
		edgeInfo:    allEdgeInfo,
		faceInfo:    allFaceInfo,
		edgeChanged: make([]bool, pp.NEdges()),
		faceChanged: make([]bool, pp.NFaces()),
	}
	if err = w.SetEdgeInfo(seeds); err != nil {
		return nil, err
	}
	return
}

// SetEdgeInfo overwrites the given edges and marks them changed
func (w *PatchEdgeFaceWave[T, PT]) SetEdgeInfo(seeds []Seed[T]) error {
	for _, s := range seeds {
		if s.Index < 0 || s.Index >= len(w.edgeInfo) {
			return fmt.Errorf("%w: seed edge %d of %d", ErrBadIndex, s.Index, len(w.edgeInfo))
		}
	}
	for _, s := range seeds {
		w.edgeInfo[s.Index] = s.Info
		if !w.edgeChanged[s.Index] {
			w.edgeChanged[s.Index] = true
			w.changedEdges = append(w.changedEdges, s.Index)
		}
	}
	return nil
}

// EdgeToFace pushes every changed edge into its faces, returning the number of faces changed
func (w *PatchEdgeFaceWave[T, PT]) EdgeToFace() int {
	visitOrder(w.changedEdges)
	for _, e := range w.changedEdges {
		for _, f := range w.patch.EdgeFaces[e] {
			cur := PT(&w.faceInfo[f])
			if cur.Equal(&w.edgeInfo[e]) {
				continue
			}
			w.nEvals++
			if cur.UpdateFace(w.patch, f, e, &w.edgeInfo[e], w.tol) && !w.faceChanged[f] {
				w.faceChanged[f] = true
				w.changedFaces = append(w.changedFaces, f)
			}
		}
		w.edgeChanged[e] = false
	}
	w.changedEdges = w.changedEdges[:0]
	return len(w.changedFaces)
}

// FaceToEdge pushes every changed face into its edges, returning the number of edges changed
func (w *PatchEdgeFaceWave[T, PT]) FaceToEdge() int {
	visitOrder(w.changedFaces)
	for _, f := range w.changedFaces {
		for _, e := range w.patch.FaceEdges[f] {
			cur := PT(&w.edgeInfo[e])
			if cur.Equal(&w.faceInfo[f]) {
				continue
			}
			w.nEvals++
			if cur.UpdateEdge(w.patch, e, f, &w.faceInfo[f], w.tol) && !w.edgeChanged[e] {
				w.edgeChanged[e] = true
				w.changedEdges = append(w.changedEdges, e)
			}
		}
		w.faceChanged[f] = false
	}
	w.changedFaces = w.changedFaces[:0]
	return len(w.changedEdges)
}

// Iterate runs up to maxIter rounds of edge to face to edge propagation.
// When the budget runs out a confirming round still runs and its updates are kept, so the
// payloads may be one round ahead of Iterations.
func (w *PatchEdgeFaceWave[T, PT]) Iterate(maxIter int) State {
	if maxIter <= 0 {
		return w.state
	}
	w.state = Iterating
	round := 0
	iter, state, _ := relax(maxIter, func() (int, error) {
		nFaces := w.EdgeToFace()
		nEdges := w.FaceToEdge()
		round++
		w.cfg.logf("PatchEdgeFaceWave round %d: changed faces %d, changed edges %d", w.iter+round, nFaces, nEdges)
		return nFaces, nil
	})
	w.iter += iter
	w.state = state
	return w.state
}

func (w *PatchEdgeFaceWave[T, PT]) Run() State { return w.Iterate(w.maxIter) }

func (w *PatchEdgeFaceWave[T, PT]) State() State    { return w.state }
func (w *PatchEdgeFaceWave[T, PT]) Iterations() int { return w.iter }
func (w *PatchEdgeFaceWave[T, PT]) NEvals() int     { return w.nEvals }

func (w *PatchEdgeFaceWave[T, PT]) Info(kind Entity, i int) (info T, err error) {
	var all []T
	switch kind {
	case Face:
		all = w.faceInfo
	case Edge:
		all = w.edgeInfo
	default:
		return info, fmt.Errorf("%w: a patch edge-face wave holds no %s values", ErrBadIndex, kind)
	}
	if i < 0 || i >= len(all) {
		return info, fmt.Errorf("%w: %s %d of %d", ErrBadIndex, kind, i, len(all))
	}
	return all[i], nil
}

func (w *PatchEdgeFaceWave[T, PT]) AllEdgeInfo() []T { return w.edgeInfo }
func (w *PatchEdgeFaceWave[T, PT]) AllFaceInfo() []T { return w.faceInfo }

func (w *PatchEdgeFaceWave[T, PT]) Unreached(kind Entity) (int, error) {
	switch kind {
	case Face:
		return countInvalid[T, PT](w.faceInfo), nil
	case Edge:
		return countInvalid[T, PT](w.edgeInfo), nil
	}
	return 0, fmt.Errorf("%w: a patch edge-face wave holds no %s values", ErrBadIndex, kind)
}
