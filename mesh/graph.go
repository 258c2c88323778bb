package mesh

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/spatial/r3"
)

// CellGraph returns the cell adjacency graph, cells joined through internal faces. Edge weights are
// the distances between cell centres. Coupled boundaries are not included.
func (m *Mesh) CellGraph() *simple.WeightedUndirectedGraph {
	var (
		g  = simple.NewWeightedUndirectedGraph(0, 0)
		cc = m.CellCentres()
	)
	for c := 0; c < m.NCells(); c++ {
		g.AddNode(simple.Node(c))
	}
	for f, nbr := range m.Neighbour {
		own := m.Owner[f]
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(own), simple.Node(nbr), r3.Norm(r3.Sub(cc[nbr], cc[own]))))
	}
	return g
}

// ConnectedRegions labels every cell with the index of its connected region, regions are numbered
// in order of their lowest cell
func (m *Mesh) ConnectedRegions() (cellRegion []int, nRegions int) {
	var (
		components = topo.ConnectedComponents(m.CellGraph())
		lowest     = make([]int, len(components))
	)
	cellRegion = make([]int, m.NCells())
	for i, nodes := range components {
		lowest[i] = minID(nodes)
	}
	order := make([]int, len(components))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return lowest[order[i]] < lowest[order[j]] })
	for region, ci := range order {
		for _, n := range components[ci] {
			cellRegion[n.ID()] = region
		}
	}
	return cellRegion, len(components)
}

func minID(nodes []graph.Node) int {
	low := -1
	for _, n := range nodes {
		if id := int(n.ID()); low < 0 || id < low {
			low = id
		}
	}
	return low
}
