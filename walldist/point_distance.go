package walldist

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/payload"
	"github.com/notargets/meshwave/wave"
)

type PointResult struct {
	Distance   []float64 // per point, +Inf where no wall was reached
	Normal     []r3.Vec  // averaged wall normal at the nearest wall point
	Patch      []int     // wall patch of the nearest wall point, -1 where unreached
	Unreached  int       // points never visited, summed over all processors
	Iterations int
	State      wave.State
}

// PointDistance computes the distance from every mesh point to the nearest wall point, walking the
// mesh edges with a PointEdgeWave. Each wall point carries the area weighted normal of the wall
// faces around it and the lowest wall patch it belongs to.
func PointDistance(m *mesh.Mesh, opts Options) (res *PointResult, err error) {
	walls, err := opts.wallPatches(m)
	if err != nil {
		return nil, err
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		if maxIter, err = opts.sum(m.NPoints()); err != nil {
			return nil, err
		}
		maxIter++
	}

	var (
		areas  = m.FaceAreas()
		normal = make(map[int]r3.Vec)
		patch  = make(map[int]int)
		order  []int
	)
	for _, pi := range walls {
		for _, f := range m.Patches[pi].Faces() {
			for _, v := range m.Faces[f] {
				if _, ok := patch[v]; !ok {
					patch[v] = pi
					order = append(order, v)
				}
				normal[v] = r3.Add(normal[v], areas[f])
			}
		}
	}
	seeds := make([]wave.Seed[payload.PointData], 0, len(order))
	for _, v := range order {
		n := normal[v]
		if l := r3.Norm(n); l > 0 {
			n = r3.Scale(1/l, n)
		}
		seeds = append(seeds, wave.Seed[payload.PointData]{Index: v, Info: payload.PointData{
			PointEdgePoint: payload.PointEdgePoint{Origin: m.Points[v]},
			S:              float64(patch[v]),
			V:              n,
		}})
	}

	res = &PointResult{
		Distance: make([]float64, m.NPoints()),
		Normal:   make([]r3.Vec, m.NPoints()),
		Patch:    make([]int, m.NPoints()),
	}
	w, err := wave.NewPointEdgeWave[payload.PointData](m, seeds, maxIter, opts.config())
	switch {
	case errors.Is(err, wave.ErrNoSeeds):
		for p := range res.Distance {
			res.Distance[p], res.Patch[p] = math.Inf(1), -1
		}
		if res.Unreached, err = opts.sum(m.NPoints()); err != nil {
			return nil, err
		}
		opts.reportUnreached(res.Unreached, "points")
		return res, nil
	case err != nil:
		return nil, err
	}
	if res.State, err = w.Run(); err != nil {
		return nil, err
	}
	res.Iterations = w.Iterations()
	for p, info := range w.AllPointInfo() {
		res.Distance[p], res.Patch[p] = info.Distance(), -1
		if info.Valid() {
			res.Normal[p], res.Patch[p] = info.V, int(info.S)
		}
	}
	if res.Unreached, err = w.GlobalUnreached(wave.Point); err != nil {
		return nil, err
	}
	opts.reportUnreached(res.Unreached, "points")
	return
}
