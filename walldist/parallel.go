package walldist

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/decompose"
	"github.com/notargets/meshwave/parallel"
)

// Parallel runs MeshWave on every processor of a decomposition, one goroutine per rank, and
// gathers the result into global cell and face order
func Parallel(d *decompose.Decomposition, world *parallel.World, opts Options) (*Result, error) {
	if world.Size() != d.NProcs {
		return nil, fmt.Errorf("world of %d ranks for %d processors", world.Size(), d.NProcs)
	}
	results := make([]*Result, d.NProcs)
	err := parallel.Run(world, func(comm parallel.Comm) (err error) {
		o := opts
		o.Comm = comm
		results[comm.Rank()], err = MeshWave(d.Meshes[comm.Rank()], o)
		return
	})
	if err != nil {
		return nil, err
	}

	var (
		distance  = make([][]float64, d.NProcs)
		normal    = make([][]r3.Vec, d.NProcs)
		faceDist  = make([][]float64, d.NProcs)
		corrected = 0
	)
	for p, r := range results {
		distance[p], normal[p], faceDist[p] = r.Distance, r.Normal, r.FaceDistance
		corrected += r.Corrected
	}
	res := &Result{
		Unreached:  results[0].Unreached,
		Corrected:  corrected,
		Iterations: results[0].Iterations,
		State:      results[0].State,
	}
	if res.Distance, err = decompose.ReconstructCellField(d, distance); err != nil {
		return nil, err
	}
	if res.Normal, err = decompose.ReconstructCellField(d, normal); err != nil {
		return nil, err
	}
	if res.FaceDistance, err = decompose.ReconstructFaceField(d, faceDist); err != nil {
		return nil, err
	}
	return res, nil
}
