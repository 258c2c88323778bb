package InputParameters

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ghodss/yaml"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/meshwave/decompose"
	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/types"
)

// Parameters obtained from the YAML case file
type CaseParameters struct {
	Title         string           `yaml:"Title"`
	MeshFile      string           `yaml:"MeshFile"` // SU2 or Gambit mesh, used when no Block is given
	Block         *BlockParameters `yaml:"Block"`
	Walls         []string         `yaml:"Walls"` // Wall patch names, empty selects patches of type wall
	Cyclics       []CyclicPair     `yaml:"Cyclics"`
	Processors    int              `yaml:"Processors"`
	Method        string           `yaml:"Method"` // Decomposition method, simple or metis
	MaxIterations int              `yaml:"MaxIterations"`
	Tolerance     float64          `yaml:"Tolerance"`
	Correct       bool             `yaml:"Correct"`
	FeatureAngle  float64          `yaml:"FeatureAngle"`
}

type BlockParameters struct {
	N      [3]int            `yaml:"N"`
	Origin [3]float64        `yaml:"Origin"`
	Length [3]float64        `yaml:"Length"`
	Types  map[string]string `yaml:"Types"` // side name -> patch type
}

// CyclicPair couples two patches, rotated by Angle degrees about Axis when Angle is non zero
type CyclicPair struct {
	A     string     `yaml:"A"`
	B     string     `yaml:"B"`
	Axis  [3]float64 `yaml:"Axis"`
	Angle float64    `yaml:"Angle"`
}

var ErrNoMesh = errors.New("case needs a MeshFile or a Block")

func vec(v [3]float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func (ip *CaseParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *CaseParameters) Validate() error {
	if ip.Block == nil && ip.MeshFile == "" {
		return ErrNoMesh
	}
	if ip.Block != nil {
		for d, n := range ip.Block.N {
			if n < 1 {
				return fmt.Errorf("block needs at least one cell in direction %d, got %d", d, n)
			}
		}
	}
	if ip.Processors < 0 {
		return fmt.Errorf("negative processor count %d", ip.Processors)
	}
	switch decompose.Method(ip.Method) {
	case "", decompose.Simple, decompose.Metis:
	default:
		return fmt.Errorf("unknown decomposition method %q", ip.Method)
	}
	for _, c := range ip.Cyclics {
		if c.A == "" || c.B == "" || c.A == c.B {
			return fmt.Errorf("cyclic pair %q, %q needs two distinct patches", c.A, c.B)
		}
		if c.Angle != 0 && vec(c.Axis) == (r3.Vec{}) {
			return fmt.Errorf("rotational cyclic %s-%s has no axis", c.A, c.B)
		}
	}
	return nil
}

// DecompositionMethod defaults to simple
func (ip *CaseParameters) DecompositionMethod() decompose.Method {
	if ip.Method == "" {
		return decompose.Simple
	}
	return decompose.Method(ip.Method)
}

// BuildMesh reads or generates the mesh and couples the cyclic pairs
func (ip *CaseParameters) BuildMesh() (m *mesh.Mesh, err error) {
	if err = ip.Validate(); err != nil {
		return nil, err
	}
	if ip.Block != nil {
		bs := mesh.BlockSpec{
			N:      ip.Block.N,
			Origin: vec(ip.Block.Origin),
			Length: vec(ip.Block.Length),
			Types:  make(map[string]types.PatchType),
		}
		for name, pt := range ip.Block.Types {
			bs.Types[name] = types.ParsePatchType(pt)
		}
		m, err = mesh.NewBlockMesh(bs)
	} else {
		m, err = mesh.ReadMeshFile(ip.MeshFile)
	}
	if err != nil {
		return nil, err
	}
	for _, c := range ip.Cyclics {
		ids, err := m.PatchIDs(c.A, c.B)
		if err != nil {
			return nil, err
		}
		var rot *r3.Mat
		if c.Angle != 0 {
			rot = mesh.RotationTensor(vec(c.Axis), c.Angle)
		}
		if err = m.CouplePatches(ids[0], ids[1], rot); err != nil {
			return nil, fmt.Errorf("coupling %s and %s: %w", c.A, c.B, err)
		}
	}
	return
}

func (ip *CaseParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	if ip.Block != nil {
		fmt.Fprintf(w, "%v\t\t= Block cells\n", ip.Block.N)
		keys := make([]string, 0, len(ip.Block.Types))
		for k := range ip.Block.Types {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(w, "Types[%s] = %s\n", key, ip.Block.Types[key])
		}
	} else {
		fmt.Fprintf(w, "[%s]\t= Mesh File\n", ip.MeshFile)
	}
	fmt.Fprintf(w, "%v\t\t\t= Walls\n", ip.Walls)
	for _, c := range ip.Cyclics {
		fmt.Fprintf(w, "Cyclic[%s <-> %s] angle %g\n", c.A, c.B, c.Angle)
	}
	fmt.Fprintf(w, "[%d]\t\t\t\t= Processors (%s)\n", ip.Processors, ip.DecompositionMethod())
	fmt.Fprintf(w, "[%d]\t\t\t\t= Max Iterations\n", ip.MaxIterations)
	fmt.Fprintf(w, "%8.5g\t\t= Tolerance\n", ip.Tolerance)
	fmt.Fprintf(w, "%v\t\t\t= Near Wall Correction\n", ip.Correct)
}
