/*
Package payload holds the per entity information carried by the wave engines. Each type knows how
to fuse a candidate from a neighbouring entity into itself, how to move across a coupled boundary,
and how to tell when it has not been visited yet.

All payloads are plain fixed-size structs with exported fields so they can be copied between
processors with encoding/binary. Labels are int32 for the same reason.
*/
package payload

import (
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Small is the absolute floor on squared distance changes, smaller improvements are ignored
	Small = 1.0e-15
	// DefaultPropagationTol is the relative change below which a distance is not propagated. It is
	// the usual face-cell wave engine default, looser than the 1e-3 sometimes quoted for wall
	// distance; callers wanting the tighter figure set Config.Tolerance.
	DefaultPropagationTol = 0.01
)

// improves reports whether a candidate at squared distance dist2 should replace a valid value at
// distSqr. Worse candidates and improvements within tolerance are rejected.
func improves(distSqr, dist2, tol float64) bool {
	diff := distSqr - dist2
	if diff < 0 {
		return false
	}
	if diff < Small || (distSqr > Small && diff/distSqr < tol) {
		return false
	}
	return true
}

func rotate(rot *r3.Mat, v r3.Vec) r3.Vec {
	if rot == nil {
		return v
	}
	return rot.MulVec(v)
}
