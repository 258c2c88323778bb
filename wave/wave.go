/*
Package wave propagates per entity information across a mesh until nothing changes.

The engines alternate between two kinds of entity, cells and faces for FaceCellWave, points and
edges for PointEdgeWave, faces and edges of a surface for PatchEdgeFaceWave. Only entities that
changed in the previous sweep push their information on. Coupled boundaries are handled after
every sweep into faces (or points): cyclic partners are merged in place, processor neighbours are
exchanged through a parallel.Comm.

The payload type supplies the merge rule, see package payload. Engines own their payload arrays
for their whole lifetime.
*/
package wave

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/notargets/meshwave/parallel"
	"github.com/notargets/meshwave/payload"
)

var (
	ErrNoSeeds             = errors.New("no seeds with a nonzero iteration budget")
	ErrSizeMismatch        = errors.New("payload array size does not match the mesh")
	ErrBadIndex            = errors.New("entity index out of range")
	ErrNotContiguous       = errors.New("payload has no fixed-size binary layout")
	ErrNoComm              = errors.New("mesh has processor boundaries but no communicator was given")
	ErrParallelUnsupported = errors.New("engine does not run in parallel")
	ErrBadMessage          = errors.New("malformed processor message")
)

type Entity uint8

const (
	Cell Entity = iota
	Face
	Point
	Edge
)

func (e Entity) String() string {
	switch e {
	case Cell:
		return "cell"
	case Face:
		return "face"
	case Point:
		return "point"
	case Edge:
		return "edge"
	}
	return fmt.Sprintf("Entity(%d)", e)
}

type State uint8

const (
	Unstarted State = iota
	Iterating
	Converged
	IterationLimitReached
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case IterationLimitReached:
		return "iteration limit reached"
	}
	return fmt.Sprintf("State(%d)", s)
}

// Seed is an entity given known information before the wave starts
type Seed[T any] struct {
	Index int
	Info  T
}

type Config struct {
	// Relative tolerance handed to the payload update, zero selects payload.DefaultPropagationTol
	Tolerance float64
	// Comm connects the processors of a decomposed mesh, nil runs serially
	Comm    parallel.Comm
	Verbose bool
}

func (c Config) tol() float64 {
	if c.Tolerance > 0 {
		return c.Tolerance
	}
	return payload.DefaultPropagationTol
}

func (c Config) parallel() bool { return c.Comm != nil && c.Comm.Size() > 1 }

// sum reduces a count over all processors
func (c Config) sum(n int) (int, error) {
	if !c.parallel() {
		return n, nil
	}
	total, err := c.Comm.AllReduceSum(n)
	if err != nil {
		return 0, fmt.Errorf("global reduction: %w", err)
	}
	return total, nil
}

func (c Config) logf(format string, args ...any) {
	if !c.Verbose || (c.Comm != nil && c.Comm.Rank() != 0) {
		return
	}
	log.Printf(format, args...)
}

// checkSeeds rejects an empty seed list when there is work to do. In parallel the check is global,
// a processor without seeds of its own is fine.
func (c Config) checkSeeds(nSeeds, maxIter int) error {
	total, err := c.sum(nSeeds)
	if err != nil {
		return err
	}
	if total == 0 && maxIter > 0 {
		return ErrNoSeeds
	}
	return nil
}

// visitOrder may permute a list of changed entities before it is swept
var visitOrder = func([]int) {}

/*
relax runs rounds until one of them changes nothing or maxIter rounds have been counted. A round
that changes nothing is not counted. When the budget runs out one more round confirms whether the
fixed point was reached. Its changes are kept, so the front may sit one round ahead of iter.
*/
func relax(maxIter int, round func() (int, error)) (iter int, state State, err error) {
	var n int
	for iter < maxIter {
		if n, err = round(); err != nil {
			return iter, Iterating, err
		}
		if n == 0 {
			return iter, Converged, nil
		}
		iter++
	}
	if n, err = round(); err != nil {
		return iter, Iterating, err
	}
	if n == 0 {
		return iter, Converged, nil
	}
	return iter, IterationLimitReached, nil
}

// pending is information received through a coupled boundary, waiting to be merged
type pending[T any] struct {
	index int
	info  T
}

// coupledInfo is the wire record for one coupled entity
type coupledInfo[T any] struct {
	Index int32
	Info  T
}

func checkContiguous[T any]() error {
	if binary.Size(coupledInfo[T]{}) <= 0 {
		var zero T
		return fmt.Errorf("%w: %T", ErrNotContiguous, zero)
	}
	return nil
}

func encodeInfo[T any](items []coupledInfo[T]) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeInfo[T any](data []byte) ([]coupledInfo[T], error) {
	size := binary.Size(coupledInfo[T]{})
	if size <= 0 || len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes for records of %d", ErrBadMessage, len(data), size)
	}
	items := make([]coupledInfo[T], len(data)/size)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMessage, err)
	}
	return items, nil
}

func sortedRanks(recv map[int][]byte) (ranks []int) {
	for r := range recv {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)
	return
}

func countInvalid[T any, PT interface {
	*T
	Valid() bool
}](info []T) (n int) {
	for i := range info {
		if !PT(&info[i]).Valid() {
			n++
		}
	}
	return
}
