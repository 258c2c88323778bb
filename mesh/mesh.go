package mesh

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/types"
)

// ElementType represents different element types
type ElementType int

const (
	Line ElementType = iota
	Triangle
	Quad
	Tet
	Hex
	Prism
	Pyramid
)

func (e ElementType) String() string {
	return [...]string{"Line", "Triangle", "Quad", "Tet", "Hex", "Prism", "Pyramid"}[e]
}

// DefaultPatchName collects boundary faces that no boundary marker claims
const DefaultPatchName = "defaultFaces"

var (
	ErrBadTopology = errors.New("invalid mesh topology")
	ErrNoPatch     = errors.New("no such patch")
)

// Patch is a contiguous range of boundary faces [Start, Start+Size)
type Patch struct {
	Name  string
	Type  types.PatchType
	Index int
	Start int
	Size  int

	// Cyclic: partner patch and the rotation taking partner data into this patch's frame.
	// A nil Rotation means the pair differs by a translation only.
	NeighbourPatch int
	Rotation       *r3.Mat

	// Processor: owning and neighbouring ranks
	MyProcNo     int
	NeighbProcNo int
}

func (p *Patch) Faces() (faces []int) {
	faces = make([]int, p.Size)
	for i := range faces {
		faces[i] = p.Start + i
	}
	return
}

func (p *Patch) IsCoupled() bool { return p.Type.IsCoupled() }

// IsParallel is true when coupled data needs no rotation
func (p *Patch) IsParallel() bool { return p.Rotation == nil }

// WhichFace converts a mesh face index into the patch-local index
func (p *Patch) WhichFace(meshFace int) int { return meshFace - p.Start }

// ProcPointSet lists the mesh points shared with one neighbouring processor, in an order both
// processors agree on
type ProcPointSet struct {
	NeighbProcNo int
	Points       []int
}

/*
Mesh is a face addressed polyhedral mesh. Faces are ordered internal first, followed by the
boundary faces grouped by patch. Face vertices are ordered so that the right hand normal points
out of the owner cell. Internal face i joins Owner[i] and Neighbour[i], boundary faces only have
an owner.
*/
type Mesh struct {
	Points     []r3.Vec
	Faces      [][]int
	Owner      []int
	Neighbour  []int
	Patches    []*Patch
	ProcPoints []ProcPointSet

	// Element data, kept when the mesh was built from elements
	Elements     [][]int
	ElementTypes []ElementType

	nCells int
	cache  addressing
}

// NewFromFaces builds a mesh directly from face addressing. Patches must tile the boundary
// faces in order.
func NewFromFaces(points []r3.Vec, faces [][]int, owner, neighbour []int, patches []*Patch) (m *Mesh, err error) {
	m = &Mesh{
		Points:    points,
		Faces:     faces,
		Owner:     owner,
		Neighbour: neighbour,
		Patches:   patches,
	}
	if err = m.check(); err != nil {
		return nil, err
	}
	return
}

func (m *Mesh) check() error {
	if len(m.Owner) != len(m.Faces) {
		return fmt.Errorf("%w: %d faces but %d owners", ErrBadTopology, len(m.Faces), len(m.Owner))
	}
	if len(m.Neighbour) > len(m.Faces) {
		return fmt.Errorf("%w: more neighbours than faces", ErrBadTopology)
	}
	m.nCells = 0
	for _, c := range m.Owner {
		if c < 0 {
			return fmt.Errorf("%w: negative owner", ErrBadTopology)
		}
		m.nCells = max(m.nCells, c+1)
	}
	for f, c := range m.Neighbour {
		if c < 0 || c == m.Owner[f] {
			return fmt.Errorf("%w: bad neighbour %d of internal face %d", ErrBadTopology, c, f)
		}
		m.nCells = max(m.nCells, c+1)
	}
	for f, verts := range m.Faces {
		if len(verts) < 3 {
			return fmt.Errorf("%w: face %d has %d vertices", ErrBadTopology, f, len(verts))
		}
		for _, v := range verts {
			if v < 0 || v >= len(m.Points) {
				return fmt.Errorf("%w: face %d uses point %d", ErrBadTopology, f, v)
			}
		}
	}
	next := len(m.Neighbour)
	for i, p := range m.Patches {
		if p.Start != next {
			return fmt.Errorf("%w: patch %s starts at %d, expected %d", ErrBadTopology, p.Name, p.Start, next)
		}
		p.Index = i
		next += p.Size
	}
	if next != len(m.Faces) {
		return fmt.Errorf("%w: patches cover %d of %d boundary faces", ErrBadTopology,
			next-len(m.Neighbour), len(m.Faces)-len(m.Neighbour))
	}
	for _, p := range m.Patches {
		if p.Type == types.Patch_Cyclic && p.NeighbourPatch >= 0 {
			if p.NeighbourPatch >= len(m.Patches) || m.Patches[p.NeighbourPatch].Size != p.Size {
				return fmt.Errorf("%w: cyclic patch %s has no matching partner", ErrBadTopology, p.Name)
			}
		}
	}
	return nil
}

// CheckCoupling verifies that every cyclic patch has been paired, see CouplePatches
func (m *Mesh) CheckCoupling() error {
	for _, p := range m.Patches {
		if p.Type == types.Patch_Cyclic && p.NeighbourPatch < 0 {
			return fmt.Errorf("%w: cyclic patch %s is not coupled to a partner", ErrBadTopology, p.Name)
		}
		if p.Type == types.Patch_Processor && p.NeighbProcNo < 0 {
			return fmt.Errorf("%w: processor patch %s has no neighbour rank", ErrBadTopology, p.Name)
		}
	}
	return nil
}

// BoundaryFace is a boundary face given by its vertices, tagged with the patch it belongs to
type BoundaryFace struct {
	Vertices []int
	Tag      string
}

type faceRecord struct {
	vertices  []int
	owner     int
	neighbour int
	tag       string
}

/*
NewFromElements builds the face addressing from volume elements. Each element contributes its
faces, a face seen twice is internal. Boundary faces are assigned to patches by matching the
boundary face list on sorted vertex keys, patches are created in the order their tags first appear.
Unmatched boundary faces are collected into the defaultFaces patch. The patch type is derived from
the tag unless patchTypes overrides it.
*/
func NewFromElements(points []r3.Vec, elements [][]int, elementTypes []ElementType,
	boundary []BoundaryFace, patchTypes map[string]types.PatchType) (m *Mesh, err error) {
	if len(elements) != len(elementTypes) {
		return nil, fmt.Errorf("%w: %d elements but %d element types", ErrBadTopology,
			len(elements), len(elementTypes))
	}
	var (
		faceMap = make(map[string]int)
		records []faceRecord
	)
	// Build face connectivity
	for elemID, vertices := range elements {
		faceVertices := GetElementFaces(elementTypes[elemID], vertices)
		if len(faceVertices) == 0 {
			return nil, fmt.Errorf("%w: element %d of type %s is not a volume element", ErrBadTopology,
				elemID, elementTypes[elemID])
		}
		for _, faceVerts := range faceVertices {
			key := faceKey(faceVerts)
			if faceID, exists := faceMap[key]; exists {
				// Face already exists - this is an interior face
				rec := &records[faceID]
				if rec.neighbour >= 0 {
					return nil, fmt.Errorf("%w: face %v shared by more than two elements", ErrBadTopology, faceVerts)
				}
				rec.neighbour = elemID
			} else {
				faceMap[key] = len(records)
				records = append(records, faceRecord{
					vertices:  append([]int(nil), faceVerts...),
					owner:     elemID,
					neighbour: -1,
				})
			}
		}
	}

	// Tag boundary faces
	var tagOrder []string
	seen := make(map[string]bool)
	for _, bf := range boundary {
		faceID, exists := faceMap[faceKey(bf.Vertices)]
		if !exists {
			return nil, fmt.Errorf("%w: boundary face %v of %s is not an element face", ErrBadTopology,
				bf.Vertices, bf.Tag)
		}
		if records[faceID].neighbour >= 0 {
			return nil, fmt.Errorf("%w: boundary face %v of %s is internal", ErrBadTopology, bf.Vertices, bf.Tag)
		}
		records[faceID].tag = bf.Tag
		if !seen[bf.Tag] {
			seen[bf.Tag] = true
			tagOrder = append(tagOrder, bf.Tag)
		}
	}

	// Order: internal faces, then patches in tag order, then the default patch
	var (
		faces            [][]int
		owner, neighbour []int
		patches          []*Patch
	)
	for _, rec := range records {
		if rec.neighbour >= 0 {
			faces = append(faces, rec.vertices)
			owner = append(owner, rec.owner)
			neighbour = append(neighbour, rec.neighbour)
		}
	}
	byTag := make(map[string][]int)
	for i, rec := range records {
		if rec.neighbour < 0 {
			tag := rec.tag
			if tag == "" {
				tag = DefaultPatchName
			}
			byTag[tag] = append(byTag[tag], i)
		}
	}
	if len(byTag[DefaultPatchName]) > 0 && !seen[DefaultPatchName] {
		tagOrder = append(tagOrder, DefaultPatchName)
	}
	for _, tag := range tagOrder {
		pt := types.NewPatchTag(tag).GetType()
		if override, ok := patchTypes[tag]; ok {
			pt = override
		}
		patch := &Patch{Name: tag, Type: pt, Start: len(faces), NeighbourPatch: -1, NeighbProcNo: -1}
		for _, i := range byTag[tag] {
			faces = append(faces, records[i].vertices)
			owner = append(owner, records[i].owner)
		}
		patch.Size = len(faces) - patch.Start
		patches = append(patches, patch)
	}
	if m, err = NewFromFaces(points, faces, owner, neighbour, patches); err != nil {
		return nil, err
	}
	m.Elements, m.ElementTypes = elements, elementTypes
	return
}

func faceKey(faceVerts []int) string {
	// Create sorted vertex key for face
	sorted := make([]int, len(faceVerts))
	copy(sorted, faceVerts)
	sort.Ints(sorted)
	return fmt.Sprintf("%v", sorted)
}

// GetElementFaces returns the face vertices for each element type, ordered outward
func GetElementFaces(elemType ElementType, vertices []int) [][]int {
	switch elemType {
	case Tet:
		return [][]int{
			{vertices[0], vertices[2], vertices[1]}, // Face 0
			{vertices[0], vertices[1], vertices[3]}, // Face 1
			{vertices[1], vertices[2], vertices[3]}, // Face 2
			{vertices[0], vertices[3], vertices[2]}, // Face 3
		}
	case Hex:
		return [][]int{
			{vertices[0], vertices[3], vertices[2], vertices[1]}, // Face 0 (bottom)
			{vertices[4], vertices[5], vertices[6], vertices[7]}, // Face 1 (top)
			{vertices[0], vertices[1], vertices[5], vertices[4]}, // Face 2
			{vertices[1], vertices[2], vertices[6], vertices[5]}, // Face 3
			{vertices[2], vertices[3], vertices[7], vertices[6]}, // Face 4
			{vertices[3], vertices[0], vertices[4], vertices[7]}, // Face 5
		}
	case Prism:
		return [][]int{
			{vertices[0], vertices[2], vertices[1]},              // Face 0 (bottom tri)
			{vertices[3], vertices[4], vertices[5]},              // Face 1 (top tri)
			{vertices[0], vertices[1], vertices[4], vertices[3]}, // Face 2 (quad)
			{vertices[1], vertices[2], vertices[5], vertices[4]}, // Face 3 (quad)
			{vertices[2], vertices[0], vertices[3], vertices[5]}, // Face 4 (quad)
		}
	case Pyramid:
		return [][]int{
			{vertices[0], vertices[3], vertices[2], vertices[1]}, // Face 0 (base quad)
			{vertices[0], vertices[1], vertices[4]},              // Face 1 (tri)
			{vertices[1], vertices[2], vertices[4]},              // Face 2 (tri)
			{vertices[2], vertices[3], vertices[4]},              // Face 3 (tri)
			{vertices[3], vertices[0], vertices[4]},              // Face 4 (tri)
		}
	default:
		return [][]int{}
	}
}

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*Mesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".su2":
		return ReadSU2(filename)
	case ".neu":
		return ReadGambit(filename)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", ext)
	}
}

func (m *Mesh) NCells() int         { return m.nCells }
func (m *Mesh) NFaces() int         { return len(m.Faces) }
func (m *Mesh) NPoints() int        { return len(m.Points) }
func (m *Mesh) NInternalFaces() int { return len(m.Neighbour) }
func (m *Mesh) NBoundaryFaces() int { return len(m.Faces) - len(m.Neighbour) }

func (m *Mesh) IsInternalFace(facei int) bool { return facei < len(m.Neighbour) }

// WhichPatch returns the patch holding a boundary face, -1 for internal faces
func (m *Mesh) WhichPatch(facei int) int {
	if m.IsInternalFace(facei) {
		return -1
	}
	return m.cache.facePatch.get(func() []int {
		fp := make([]int, m.NBoundaryFaces())
		for _, p := range m.Patches {
			for i := 0; i < p.Size; i++ {
				fp[p.Start+i-m.NInternalFaces()] = p.Index
			}
		}
		return fp
	})[facei-m.NInternalFaces()]
}

// FindPatch returns the index of the named patch, -1 when absent
func (m *Mesh) FindPatch(name string) int {
	for _, p := range m.Patches {
		if p.Name == name {
			return p.Index
		}
	}
	return -1
}

// PatchIDs resolves patch names to indices
func (m *Mesh) PatchIDs(names ...string) (ids []int, err error) {
	for _, name := range names {
		id := m.FindPatch(name)
		if id < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoPatch, name)
		}
		ids = append(ids, id)
	}
	return
}

// PatchesOfType returns the indices of all patches of the given type
func (m *Mesh) PatchesOfType(pt types.PatchType) (ids []int) {
	for _, p := range m.Patches {
		if p.Type == pt {
			ids = append(ids, p.Index)
		}
	}
	return
}

// AddPatch appends an empty patch, used to give every processor the same patch list
func (m *Mesh) AddPatch(p *Patch) {
	p.Index = len(m.Patches)
	p.Start = len(m.Faces)
	m.Patches = append(m.Patches, p)
	m.Invalidate()
}

// Invalidate drops every cached geometric and addressing quantity, call after topology changes
func (m *Mesh) Invalidate() {
	m.cache.clear()
}

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics(w io.Writer) {
	fmt.Fprintf(w, "Mesh Statistics:\n")
	fmt.Fprintf(w, "  Points: %d\n", m.NPoints())
	fmt.Fprintf(w, "  Cells: %d\n", m.NCells())
	fmt.Fprintf(w, "  Faces: %d (internal %d)\n", m.NFaces(), m.NInternalFaces())
	if len(m.ElementTypes) > 0 {
		typeCounts := make(map[ElementType]int)
		for _, t := range m.ElementTypes {
			typeCounts[t]++
		}
		fmt.Fprintf(w, "  Element types:\n")
		for t := Tet; t <= Pyramid; t++ {
			if typeCounts[t] > 0 {
				fmt.Fprintf(w, "    %s: %d\n", t, typeCounts[t])
			}
		}
	}
	fmt.Fprintf(w, "  Patches:\n")
	for _, p := range m.Patches {
		fmt.Fprintf(w, "    %-20s %-10s faces %d\n", p.Name, p.Type, p.Size)
	}
	bb := m.Bounds()
	fmt.Fprintf(w, "  Bounding box: (%g %g %g) (%g %g %g)\n",
		bb.Min.X, bb.Min.Y, bb.Min.Z, bb.Max.X, bb.Max.Y, bb.Max.Z)
}

// Bounds returns the axis aligned bounding box of the mesh points
func (m *Mesh) Bounds() (bb r3.Box) {
	bb.Min = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	bb.Max = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range m.Points {
		bb.Min = r3.Vec{X: min(bb.Min.X, p.X), Y: min(bb.Min.Y, p.Y), Z: min(bb.Min.Z, p.Z)}
		bb.Max = r3.Vec{X: max(bb.Max.X, p.X), Y: max(bb.Max.Y, p.Y), Z: max(bb.Max.Z, p.Z)}
	}
	return
}
