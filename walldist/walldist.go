/*
Package walldist computes the distance of cells, faces and points to the nearest wall.

MeshWave seeds every face of the wall patches with its own centre and lets a FaceCellWave carry
the nearest origin through the mesh. The result is the distance to the nearest wall face centre
found along the way, which can be refined near the wall with Options.Correct.
*/
package walldist

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/parallel"
	"github.com/notargets/meshwave/payload"
	"github.com/notargets/meshwave/types"
	"github.com/notargets/meshwave/wave"
)

type Options struct {
	// Patches names the wall patches, empty selects every patch of type wall
	Patches []string
	// Correct replaces the wave distance of cells touching the wall by the exact distance to the
	// wall faces around them
	Correct   bool
	MaxIter   int // zero selects the total number of cells plus one
	Tolerance float64
	Comm      parallel.Comm
	Verbose   bool
}

type Result struct {
	Distance     []float64 // per cell, +Inf where no wall was reached
	Normal       []r3.Vec  // per cell, unit normal of the nearest wall face
	FaceDistance []float64 // per face
	Unreached    int       // cells never visited, summed over all processors
	Corrected    int       // cells changed by the near wall correction
	Iterations   int
	State        wave.State
}

func (o Options) config() wave.Config {
	return wave.Config{Tolerance: o.Tolerance, Comm: o.Comm, Verbose: o.Verbose}
}

func (o Options) master() bool { return o.Comm == nil || o.Comm.Rank() == 0 }

func (o Options) sum(n int) (int, error) {
	if o.Comm == nil || o.Comm.Size() < 2 {
		return n, nil
	}
	return o.Comm.AllReduceSum(n)
}

func (o Options) maxIter(m *mesh.Mesh) (int, error) {
	if o.MaxIter > 0 {
		return o.MaxIter, nil
	}
	n, err := o.sum(m.NCells())
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// wallPatches returns the ascending wall patch indices
func (o Options) wallPatches(m *mesh.Mesh) (walls []int, err error) {
	if len(o.Patches) == 0 {
		return m.PatchesOfType(types.Patch_Wall), nil
	}
	if walls, err = m.PatchIDs(o.Patches...); err != nil {
		return nil, err
	}
	sort.Ints(walls)
	return
}

func (o Options) reportUnreached(n int, what string) {
	if n > 0 && o.master() {
		log.Printf("%d %s were not visited", n, what)
	}
}

// MeshWave computes the distance from every cell and face to the nearest wall face centre
func MeshWave(m *mesh.Mesh, opts Options) (res *Result, err error) {
	walls, err := opts.wallPatches(m)
	if err != nil {
		return nil, err
	}
	maxIter, err := opts.maxIter(m)
	if err != nil {
		return nil, fmt.Errorf("global cell count: %w", err)
	}
	var (
		fc    = m.FaceCentres()
		seeds []wave.Seed[payload.WallPointData]
	)
	for _, pi := range walls {
		for _, f := range m.Patches[pi].Faces() {
			seeds = append(seeds, wave.Seed[payload.WallPointData]{Index: f, Info: payload.WallPointData{
				WallPoint: payload.WallPoint{Origin: fc[f]},
				Normal:    m.FaceNormal(f),
			}})
		}
	}
	res = &Result{
		Distance:     make([]float64, m.NCells()),
		Normal:       make([]r3.Vec, m.NCells()),
		FaceDistance: make([]float64, m.NFaces()),
	}

	w, err := wave.NewFaceCellWave[payload.WallPointData](m, seeds, maxIter, opts.config())
	switch {
	case errors.Is(err, wave.ErrNoSeeds):
		for c := range res.Distance {
			res.Distance[c] = math.Inf(1)
		}
		for f := range res.FaceDistance {
			res.FaceDistance[f] = math.Inf(1)
		}
		if res.Unreached, err = opts.sum(m.NCells()); err != nil {
			return nil, err
		}
		if opts.master() {
			log.Printf("No wall faces to measure distance from")
		}
		opts.reportUnreached(res.Unreached, "cells")
		return res, nil
	case err != nil:
		return nil, err
	}
	if res.State, err = w.Run(); err != nil {
		return nil, err
	}
	res.Iterations = w.Iterations()
	for c, info := range w.AllCellInfo() {
		res.Distance[c] = info.Distance()
		if info.Valid() {
			res.Normal[c] = info.Normal
		}
	}
	for f, info := range w.AllFaceInfo() {
		res.FaceDistance[f] = info.Distance()
	}
	if res.Unreached, err = w.GlobalUnreached(wave.Cell); err != nil {
		return nil, err
	}
	opts.reportUnreached(res.Unreached, "cells")
	if res.State == wave.IterationLimitReached && opts.master() {
		log.Printf("Wall distance stopped after %d iterations without converging", res.Iterations)
	}
	if opts.Correct {
		res.Corrected = correctNearWall(m, walls, res)
	}
	return
}
