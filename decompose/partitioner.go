package decompose

import (
	"fmt"
	"log"

	metis "github.com/notargets/go-metis"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/types"
)

// PartitionConfig holds configuration for graph partitioning
type PartitionConfig struct {
	NumPartitions    int32
	ImbalanceFactor  float32 // e.g., 1.05 for 5% imbalance
	UseEdgeWeights   bool
	UseVertexWeights bool
	Objective        string // "cut" or "vol"
}

// DefaultPartitionConfig returns default partitioning configuration
func DefaultPartitionConfig(nparts int32) *PartitionConfig {
	return &PartitionConfig{
		NumPartitions:    nparts,
		ImbalanceFactor:  1.05,
		UseEdgeWeights:   true,
		UseVertexWeights: true,
		Objective:        "vol", // minimize communication volume
	}
}

// partitioner assigns cells to processors with METIS
type partitioner struct {
	mesh   *mesh.Mesh
	config *PartitionConfig

	// Cost models. A wave sweep touches every face of a changed cell, and sends one record per
	// changed processor face.
	computeCost func(celli int) int32
	commCost    func(facei int) int32
}

func newPartitioner(m *mesh.Mesh, config *PartitionConfig) *partitioner {
	cellFaces := m.CellFaces()
	return &partitioner{
		mesh:        m,
		config:      config,
		computeCost: func(celli int) int32 { return int32(len(cellFaces[celli])) },
		commCost:    func(facei int) int32 { return 1 },
	}
}

func (p *partitioner) partition() (cellProc []int, err error) {
	log.Printf("Partitioning mesh with %d cells into %d parts", p.mesh.NCells(), p.config.NumPartitions)

	xadj, adjncy, vwgt, adjwgt := p.buildMetisGraph()

	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		return nil, fmt.Errorf("failed to set METIS options: %w", err)
	}
	if p.config.Objective == "vol" {
		opts[metis.OptionObjType] = metis.ObjTypeVol
	} else {
		opts[metis.OptionObjType] = metis.ObjTypeCut
	}
	ubvec := []float32{p.config.ImbalanceFactor}

	var vwgtPtr, adjwgtPtr []int32
	if p.config.UseVertexWeights {
		vwgtPtr = vwgt
	}
	if p.config.UseEdgeWeights {
		adjwgtPtr = adjwgt
	}
	part, objval, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, vwgtPtr, adjwgtPtr,
		p.config.NumPartitions, nil, ubvec, opts,
	)
	if err != nil {
		return nil, fmt.Errorf("METIS partitioning failed: %w", err)
	}
	log.Printf("  Objective value: %d", objval)

	cellProc = make([]int, p.mesh.NCells())
	for i := range cellProc {
		cellProc[i] = int(part[i])
	}
	return
}

/*
buildMetisGraph converts the cell adjacency to METIS CSR form. Cells are joined through internal
faces and through the face pairs of cyclic patches, so coupled cells tend to share a partition.
*/
func (p *partitioner) buildMetisGraph() (xadj, adjncy, vwgt, adjwgt []int32) {
	var (
		m     = p.mesh
		nc    = m.NCells()
		cells = make([][]int, nc)
		faces = make([][]int, nc)
	)
	join := func(a, b, f int) {
		cells[a] = append(cells[a], b)
		faces[a] = append(faces[a], f)
		cells[b] = append(cells[b], a)
		faces[b] = append(faces[b], f)
	}
	for f, nbr := range m.Neighbour {
		join(m.Owner[f], nbr, f)
	}
	for _, patch := range m.Patches {
		if patch.Type != types.Patch_Cyclic || patch.NeighbourPatch < patch.Index {
			continue
		}
		nb := m.Patches[patch.NeighbourPatch]
		for i := 0; i < patch.Size; i++ {
			if a, b := m.Owner[patch.Start+i], m.Owner[nb.Start+i]; a != b {
				join(a, b, patch.Start+i)
			}
		}
	}

	if p.config.UseVertexWeights {
		vwgt = make([]int32, nc)
		for c := range vwgt {
			vwgt[c] = p.computeCost(c)
		}
	}
	xadj = make([]int32, nc+1)
	for c := 0; c < nc; c++ {
		for i, nbr := range cells[c] {
			adjncy = append(adjncy, int32(nbr))
			if p.config.UseEdgeWeights {
				adjwgt = append(adjwgt, p.commCost(faces[c][i]))
			}
		}
		xadj[c+1] = int32(len(adjncy))
	}
	return
}
