// Package topodist counts the cells crossed between every cell and the nearest of a set of patches.
package topodist

import (
	"errors"
	"fmt"
	"log"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/parallel"
	"github.com/notargets/meshwave/payload"
	"github.com/notargets/meshwave/wave"
)

type Options struct {
	MaxIter int // zero selects the total number of cells plus one
	Comm    parallel.Comm
	Verbose bool
}

type Result struct {
	// Distance is the number of internal faces crossed from the nearest seed face, -1 where
	// unreached. Cells on a seed face are at distance 0.
	Distance []int
	// Nearest is the patch the distance was measured from, -1 where unreached. Equal distances
	// go to the lower patch index.
	Nearest      []int
	FaceDistance []int
	Unreached    int
	Iterations   int
	State        wave.State
}

func (o Options) sum(n int) (int, error) {
	if o.Comm == nil || o.Comm.Size() < 2 {
		return n, nil
	}
	return o.Comm.AllReduceSum(n)
}

// Compute runs a FaceCellWave of payload.TopoDistanceData from every face of the given patches
func Compute(m *mesh.Mesh, patchIDs []int, opts Options) (res *Result, err error) {
	var seeds []wave.Seed[payload.TopoDistanceData]
	for _, pi := range patchIDs {
		if pi < 0 || pi >= len(m.Patches) {
			return nil, fmt.Errorf("%w: patch %d of %d", mesh.ErrNoPatch, pi, len(m.Patches))
		}
		for _, f := range m.Patches[pi].Faces() {
			seeds = append(seeds, wave.Seed[payload.TopoDistanceData]{
				Index: f,
				Info:  payload.TopoDistanceData{Distance: 0, Data: int32(pi)},
			})
		}
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		if maxIter, err = opts.sum(m.NCells()); err != nil {
			return nil, err
		}
		maxIter++
	}

	res = &Result{
		Distance:     make([]int, m.NCells()),
		Nearest:      make([]int, m.NCells()),
		FaceDistance: make([]int, m.NFaces()),
	}
	cfg := wave.Config{Comm: opts.Comm, Verbose: opts.Verbose}
	w, err := wave.NewFaceCellWave[payload.TopoDistanceData](m, seeds, maxIter, cfg)
	switch {
	case errors.Is(err, wave.ErrNoSeeds):
		for c := range res.Distance {
			res.Distance[c], res.Nearest[c] = -1, -1
		}
		for f := range res.FaceDistance {
			res.FaceDistance[f] = -1
		}
		if res.Unreached, err = opts.sum(m.NCells()); err != nil {
			return nil, err
		}
		return res, nil
	case err != nil:
		return nil, err
	}
	if res.State, err = w.Run(); err != nil {
		return nil, err
	}
	res.Iterations = w.Iterations()
	for c, info := range w.AllCellInfo() {
		res.Distance[c], res.Nearest[c] = int(info.Distance), int(info.Data)
	}
	for f, info := range w.AllFaceInfo() {
		res.FaceDistance[f] = int(info.Distance)
	}
	if res.Unreached, err = w.GlobalUnreached(wave.Cell); err != nil {
		return nil, err
	}
	if res.Unreached > 0 && (opts.Comm == nil || opts.Comm.Rank() == 0) {
		log.Printf("%d cells were not visited", res.Unreached)
	}
	return
}

// Histogram counts the cells at each distance, unreached cells are left out
func (r *Result) Histogram() (counts []int) {
	for _, d := range r.Distance {
		if d < 0 {
			continue
		}
		for len(counts) <= d {
			counts = append(counts, 0)
		}
		counts[d]++
	}
	return
}
