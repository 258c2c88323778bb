package payload

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/mesh"
)

// Cell classifications
const (
	NotSet int32 = iota - 1
	Inside
	Outside
	Mixed
	Cut
)

var classNames = map[int32]string{NotSet: "notset", Inside: "inside", Outside: "outside", Mixed: "mixed", Cut: "cut"}

func ClassName(c int32) string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// CellInfo classifies cells and faces as inside or outside, a front of one kind meeting a front of
// the other marks the entities Mixed. Cut entities are walls the fronts do not cross.
type CellInfo struct {
	Type int32
}

func NewCellInfo() CellInfo { return CellInfo{Type: NotSet} }

func (c *CellInfo) Reset()      { *c = NewCellInfo() }
func (c *CellInfo) Valid() bool { return c.Type != NotSet }

func (c *CellInfo) Update(c2 *CellInfo) bool {
	switch {
	case c2.Type == NotSet || c2.Type == Cut:
		return false
	case c.Type == NotSet:
		c.Type = c2.Type
		return true
	case c.Type == Cut || c.Type == c2.Type || c.Type == Mixed:
		return false
	}
	c.Type = Mixed
	return true
}

func (c *CellInfo) UpdateCell(m *mesh.Mesh, celli, nbrFacei int, nbr *CellInfo, tol float64) bool {
	return c.Update(nbr)
}

func (c *CellInfo) UpdateFace(m *mesh.Mesh, facei, nbrCelli int, nbr *CellInfo, tol float64) bool {
	return c.Update(nbr)
}

func (c *CellInfo) UpdateFaceFromFace(m *mesh.Mesh, facei int, nbr *CellInfo, tol float64) bool {
	return c.Update(nbr)
}

func (c *CellInfo) Transform(*r3.Mat)                        {}
func (c *CellInfo) LeaveDomain(*mesh.Mesh, int, int, r3.Vec) {}
func (c *CellInfo) EnterDomain(*mesh.Mesh, int, int, r3.Vec) {}
func (c *CellInfo) Equal(o *CellInfo) bool                   { return *c == *o }
