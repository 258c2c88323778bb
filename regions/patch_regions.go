package regions

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/payload"
	"github.com/notargets/meshwave/wave"
)

type PatchRegions struct {
	Patch *mesh.PrimitivePatch
	// FaceRegion is the region of every patch face, numbered from 0 in order of the lowest face of
	// each region
	FaceRegion []int
	NRegions   int
	// FeatureEdges are the patch edges that separate regions
	FeatureEdges []int
	Iterations   int
}

// FeatureEdges returns the edges of pp whose two faces meet at more than featureAngle degrees.
// Edges used by more than two faces are always features, open edges never are.
func FeatureEdges(pp *mesh.PrimitivePatch, featureAngle float64) (edges []int) {
	minCos := math.Cos(featureAngle * math.Pi / 180)
	for e, faces := range pp.EdgeFaces {
		switch len(faces) {
		case 1:
			continue
		case 2:
			if r3.Dot(pp.FaceNormal(faces[0]), pp.FaceNormal(faces[1])) >= minCos {
				continue
			}
		}
		edges = append(edges, e)
	}
	return
}

// NewPatchRegions splits the faces of the given patches into regions bounded by feature edges, by
// running a PatchEdgeFaceWave of payload.PatchEdgeFaceRegion with the feature edges blocked
func NewPatchRegions(m *mesh.Mesh, patchIDs []int, featureAngle float64) (pr *PatchRegions, err error) {
	pp, err := mesh.NewPrimitivePatch(m, patchIDs)
	if err != nil {
		return nil, err
	}
	pr = &PatchRegions{
		Patch:        pp,
		FaceRegion:   make([]int, pp.NFaces()),
		FeatureEdges: FeatureEdges(pp, featureAngle),
	}
	var (
		edgeInfo = make([]payload.PatchEdgeFaceRegion, pp.NEdges())
		faceInfo = make([]payload.PatchEdgeFaceRegion, pp.NFaces())
		seeds    []wave.Seed[payload.PatchEdgeFaceRegion]
	)
	for i := range edgeInfo {
		edgeInfo[i].Reset()
	}
	for i := range faceInfo {
		faceInfo[i].Reset()
	}
	for _, e := range pr.FeatureEdges {
		edgeInfo[e].Region = payload.RegionBlocked
	}
	for e, faces := range pp.EdgeFaces {
		if edgeInfo[e].Blocked() {
			continue
		}
		lowest := faces[0]
		for _, f := range faces[1:] {
			lowest = min(lowest, f)
		}
		seeds = append(seeds, wave.Seed[payload.PatchEdgeFaceRegion]{
			Index: e,
			Info:  payload.PatchEdgeFaceRegion{Region: int32(lowest)},
		})
	}

	if len(seeds) > 0 {
		w, err := wave.NewPatchEdgeFaceWaveFrom[payload.PatchEdgeFaceRegion](pp, edgeInfo, faceInfo, seeds,
			pp.NFaces()+1, wave.Config{})
		if err != nil {
			return nil, err
		}
		if state := w.Run(); state != wave.Converged {
			return nil, fmt.Errorf("patch regions %s after %d iterations", state, w.Iterations())
		}
		pr.Iterations = w.Iterations()
		faceInfo = w.AllFaceInfo()
	}

	// Regions take the lowest face index they hold, so numbering in face order is ascending.
	// Faces cut off by feature edges on every side form regions of their own.
	compact := make(map[int32]int)
	for f, info := range faceInfo {
		label := info.Region
		if !info.Valid() {
			label = int32(f)
		}
		id, ok := compact[label]
		if !ok {
			id = len(compact)
			compact[label] = id
		}
		pr.FaceRegion[f] = id
	}
	pr.NRegions = len(compact)
	return
}

// RegionFaces returns the mesh faces of one region
func (pr *PatchRegions) RegionFaces(region int) (faces []int) {
	for f, r := range pr.FaceRegion {
		if r == region {
			faces = append(faces, pr.Patch.Addressing[f])
		}
	}
	return
}
