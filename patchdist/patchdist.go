// Package patchdist measures distances across a boundary surface, following the surface rather than
// cutting through the volume.
package patchdist

import (
	"errors"
	"log"
	"math"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/payload"
	"github.com/notargets/meshwave/wave"
)

type Options struct {
	MaxIter   int // zero selects the number of surface faces plus one
	Tolerance float64
	Verbose   bool
}

type Result struct {
	Patch *mesh.PrimitivePatch
	// Distance per surface face, in the local face order of Patch, +Inf where unreached
	Distance     []float64
	EdgeDistance []float64
	Unreached    int // faces never visited
	Iterations   int
	State        wave.State
}

// FromPerimeter computes the distance of every face of the given patches to the open edges of the
// surface they form. A closed surface has no perimeter and every face is left unreached.
func FromPerimeter(m *mesh.Mesh, patchIDs []int, opts Options) (*Result, error) {
	pp, err := mesh.NewPrimitivePatch(m, patchIDs)
	if err != nil {
		return nil, err
	}
	var seeds []wave.Seed[payload.PatchEdgeFaceInfo]
	for _, e := range pp.BoundaryEdges() {
		seeds = append(seeds, wave.Seed[payload.PatchEdgeFaceInfo]{
			Index: e,
			Info:  payload.PatchEdgeFaceInfo{Origin: pp.EdgeCentre(e)},
		})
	}
	return FromEdges(pp, seeds, opts)
}

// FromEdges computes distances across a surface from seeded edges
func FromEdges(pp *mesh.PrimitivePatch, seeds []wave.Seed[payload.PatchEdgeFaceInfo], opts Options) (res *Result, err error) {
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = pp.NFaces() + 1
	}
	res = &Result{
		Patch:        pp,
		Distance:     make([]float64, pp.NFaces()),
		EdgeDistance: make([]float64, pp.NEdges()),
	}
	w, err := wave.NewPatchEdgeFaceWave[payload.PatchEdgeFaceInfo](pp, seeds, maxIter,
		wave.Config{Tolerance: opts.Tolerance, Verbose: opts.Verbose})
	switch {
	case errors.Is(err, wave.ErrNoSeeds):
		for f := range res.Distance {
			res.Distance[f] = math.Inf(1)
		}
		for e := range res.EdgeDistance {
			res.EdgeDistance[e] = math.Inf(1)
		}
		res.Unreached = pp.NFaces()
		log.Printf("Surface has no seed edges, %d faces were not visited", res.Unreached)
		return res, nil
	case err != nil:
		return nil, err
	}
	res.State = w.Run()
	res.Iterations = w.Iterations()
	for f, info := range w.AllFaceInfo() {
		res.Distance[f] = info.Distance()
	}
	for e, info := range w.AllEdgeInfo() {
		res.EdgeDistance[e] = info.Distance()
	}
	if res.Unreached, err = w.Unreached(wave.Face); err != nil {
		return nil, err
	}
	if res.Unreached > 0 {
		log.Printf("%d faces were not visited", res.Unreached)
	}
	return
}

// MeshFaceDistance maps the surface distances onto mesh faces, faces off the surface get +Inf
func (r *Result) MeshFaceDistance() []float64 {
	out := make([]float64, r.Patch.Mesh.NFaces())
	for f := range out {
		out[f] = math.Inf(1)
	}
	for i, f := range r.Patch.Addressing {
		out[f] = r.Distance[i]
	}
	return out
}
