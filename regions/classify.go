/*
Package regions labels the cells of a mesh and the faces of a boundary surface.

Classify floods inside and outside markers through the cells, stopping at cut cells, the way a
surface intersecting the mesh splits it in two. PatchRegions splits a boundary surface into
regions separated by feature edges.
*/
package regions

import (
	"errors"
	"fmt"
	"log"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/parallel"
	"github.com/notargets/meshwave/payload"
	"github.com/notargets/meshwave/wave"
)

var (
	ErrBadCell  = errors.New("cell index out of range")
	ErrConflict = errors.New("cell given more than one class")
)

type Options struct {
	MaxIter int // zero selects the total number of cells plus one
	Comm    parallel.Comm
	Verbose bool
}

func (o Options) sum(n int) (int, error) {
	if o.Comm == nil || o.Comm.Size() < 2 {
		return n, nil
	}
	return o.Comm.AllReduceSum(n)
}

func (o Options) maxIter(n int) (int, error) {
	if o.MaxIter > 0 {
		return o.MaxIter, nil
	}
	total, err := o.sum(n)
	return total + 1, err
}

type Classification struct {
	Cells []int32 // per cell, one of the payload classes
	Faces []int32
	// Count of cells per class name, summed over all processors
	Counts     map[string]int
	Iterations int
	State      wave.State
}

// Classify labels every cell Inside, Outside, Mixed when both fronts reach it, Cut or NotSet. The
// inside and outside cells seed the fronts through their faces, cut cells block them.
func Classify(m *mesh.Mesh, inside, outside, cut []int, opts Options) (cl *Classification, err error) {
	var (
		cellInfo = make([]payload.CellInfo, m.NCells())
		faceInfo = make([]payload.CellInfo, m.NFaces())
		cellFace = m.CellFaces()
		seeds    []wave.Seed[payload.CellInfo]
	)
	for i := range cellInfo {
		cellInfo[i].Reset()
	}
	for i := range faceInfo {
		faceInfo[i].Reset()
	}
	mark := func(cells []int, class int32) error {
		for _, c := range cells {
			if c < 0 || c >= m.NCells() {
				return fmt.Errorf("%w: %d of %d", ErrBadCell, c, m.NCells())
			}
			if prev := cellInfo[c].Type; prev != payload.NotSet && prev != class {
				return fmt.Errorf("%w: cell %d is %s and %s", ErrConflict, c,
					payload.ClassName(prev), payload.ClassName(class))
			}
			cellInfo[c].Type = class
		}
		return nil
	}
	if err = mark(cut, payload.Cut); err != nil {
		return nil, err
	}
	for _, group := range []struct {
		cells []int
		class int32
	}{{inside, payload.Inside}, {outside, payload.Outside}} {
		if err = mark(group.cells, group.class); err != nil {
			return nil, err
		}
		for _, c := range group.cells {
			for _, f := range cellFace[c] {
				seeds = append(seeds, wave.Seed[payload.CellInfo]{Index: f, Info: payload.CellInfo{Type: group.class}})
			}
		}
	}
	maxIter, err := opts.maxIter(m.NCells())
	if err != nil {
		return nil, err
	}

	cfg := wave.Config{Comm: opts.Comm, Verbose: opts.Verbose}
	w, err := wave.NewFaceCellWaveFrom[payload.CellInfo](m, faceInfo, cellInfo, seeds, maxIter, cfg)
	switch {
	case errors.Is(err, wave.ErrNoSeeds):
		// nothing floods, the cut cells are all there is
		if w, err = wave.NewFaceCellWaveFrom[payload.CellInfo](m, faceInfo, cellInfo, nil, 0, cfg); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	cl = &Classification{
		Cells:  make([]int32, m.NCells()),
		Faces:  make([]int32, m.NFaces()),
		Counts: make(map[string]int),
	}
	if cl.State, err = w.Run(); err != nil {
		return nil, err
	}
	cl.Iterations = w.Iterations()
	for c, info := range w.AllCellInfo() {
		cl.Cells[c] = info.Type
	}
	for f, info := range w.AllFaceInfo() {
		cl.Faces[f] = info.Type
	}
	for _, class := range []int32{payload.NotSet, payload.Inside, payload.Outside, payload.Mixed, payload.Cut} {
		n := 0
		for _, t := range cl.Cells {
			if t == class {
				n++
			}
		}
		if n, err = opts.sum(n); err != nil {
			return nil, err
		}
		cl.Counts[payload.ClassName(class)] = n
	}
	if opts.Verbose && (opts.Comm == nil || opts.Comm.Rank() == 0) {
		log.Printf("Classified cells: %d inside, %d outside, %d mixed, %d cut, %d not set",
			cl.Counts["inside"], cl.Counts["outside"], cl.Counts["mixed"], cl.Counts["cut"], cl.Counts["notset"])
	}
	return
}
