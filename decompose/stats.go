package decompose

import (
	"fmt"
	"io"
	"log"

	"github.com/notargets/meshwave/types"
)

type ProcStats struct {
	Proc         int
	Cells        int
	Faces        int
	ProcFaces    int // faces on processor patches
	Neighbours   int
	SharedPoints int
}

func (d *Decomposition) Stats() (stats []ProcStats) {
	stats = make([]ProcStats, d.NProcs)
	for p, pm := range d.Meshes {
		s := ProcStats{Proc: p, Cells: pm.NCells(), Faces: pm.NFaces()}
		for _, pi := range pm.PatchesOfType(types.Patch_Processor) {
			s.ProcFaces += pm.Patches[pi].Size
			s.Neighbours++
		}
		for _, set := range pm.ProcPoints {
			s.SharedPoints += len(set.Points)
		}
		stats[p] = s
	}
	return
}

// Print writes one line per processor
func (d *Decomposition) Print(w io.Writer) {
	fmt.Fprintf(w, "%6s %10s %10s %12s %10s %12s\n", "proc", "cells", "faces", "proc faces", "nbrs", "shared pts")
	for _, s := range d.Stats() {
		fmt.Fprintf(w, "%6d %10d %10d %12d %10d %12d\n",
			s.Proc, s.Cells, s.Faces, s.ProcFaces, s.Neighbours, s.SharedPoints)
	}
}

// analyze logs the quality of the decomposition
func (d *Decomposition) analyze() {
	var (
		stats                      = d.Stats()
		minCells, maxCells         = stats[0].Cells, stats[0].Cells
		totalProcFaces, totalCells int
	)
	for _, s := range stats {
		minCells = min(minCells, s.Cells)
		maxCells = max(maxCells, s.Cells)
		totalProcFaces += s.ProcFaces
		totalCells += s.Cells
	}
	avg := float64(totalCells) / float64(d.NProcs)

	log.Printf("Partition Analysis:")
	log.Printf("  Processors: %d", d.NProcs)
	// every cut face sits on two processor patches
	log.Printf("  Cut faces: %d", totalProcFaces/2)
	log.Printf("  Cells per processor: min %d, max %d, mean %.1f", minCells, maxCells, avg)
	log.Printf("  Load imbalance: %.3f", float64(maxCells)/avg)
}
