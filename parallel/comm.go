/*
Package parallel provides the processor-to-processor transport used by the wave engines.

A Comm is one rank's view of a fixed set of processors. All calls are collective and blocking:
every rank must make the same sequence of calls. Buffers passed to Exchange are copied, the
caller may reuse them as soon as the call returns.
*/
package parallel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/notargets/meshwave/utils"
)

var (
	ErrAborted  = errors.New("parallel run aborted")
	ErrBadRank  = errors.New("rank out of range")
	ErrBadWorld = errors.New("world size must be at least one")
)

type Comm interface {
	Rank() int
	Size() int
	// Exchange sends send[p] to rank p and returns what every other rank sent to this one,
	// keyed by the sending rank. Ranks that sent nothing are absent from the result.
	Exchange(send map[int][]byte) (map[int][]byte, error)
	// AllReduceSum returns the sum of v over all ranks
	AllReduceSum(v int) (int, error)
}

type envelope struct {
	From int
	Data []byte
}

// World is an in-process set of ranks, each rank is meant to be driven by its own goroutine
type World struct {
	np      int
	mb      *utils.MailBox[envelope]
	barrier *barrier
	reduce  []int
}

func NewWorld(np int) (*World, error) {
	if np < 1 {
		return nil, ErrBadWorld
	}
	return &World{
		np:      np,
		mb:      utils.NewMailBox[envelope](np),
		barrier: newBarrier(np),
		reduce:  make([]int, np),
	}, nil
}

func (w *World) Size() int { return w.np }

// Comm returns the view of the world held by one rank
func (w *World) Comm(rank int) (Comm, error) {
	if rank < 0 || rank >= w.np {
		return nil, fmt.Errorf("%w: %d of %d", ErrBadRank, rank, w.np)
	}
	return &worldComm{w: w, rank: rank}, nil
}

// Abort fails every pending and future collective call with ErrAborted wrapping err
func (w *World) Abort(err error) {
	w.barrier.abort(err)
}

type worldComm struct {
	w    *World
	rank int
}

func (c *worldComm) Rank() int { return c.rank }
func (c *worldComm) Size() int { return c.w.np }

func (c *worldComm) Exchange(send map[int][]byte) (recv map[int][]byte, err error) {
	var (
		mb = c.w.mb
	)
	for target, data := range send {
		if target == c.rank {
			continue
		}
		if err = mb.Post(c.rank, target, envelope{From: c.rank, Data: append([]byte(nil), data...)}); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRank, err)
		}
	}
	mb.Deliver(c.rank)
	if err = c.w.barrier.wait(); err != nil {
		return nil, err
	}
	recv = make(map[int][]byte)
	for _, msg := range mb.Collect(c.rank) {
		recv[msg.From] = append(recv[msg.From], msg.Data...)
	}
	mb.Clear(c.rank)
	if err = c.w.barrier.wait(); err != nil {
		return nil, err
	}
	return recv, nil
}

func (c *worldComm) AllReduceSum(v int) (sum int, err error) {
	c.w.reduce[c.rank] = v
	if err = c.w.barrier.wait(); err != nil {
		return 0, err
	}
	for _, r := range c.w.reduce {
		sum += r
	}
	// Nobody may overwrite a slot before every rank has summed
	if err = c.w.barrier.wait(); err != nil {
		return 0, err
	}
	return sum, nil
}

// barrier is a reusable generation barrier that can be broken by abort
type barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	n, waiting int
	generation int
	err        error
}

func newBarrier(n int) *barrier {
	b := &barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier) wait() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	gen := b.generation
	b.waiting++
	if b.waiting == b.n {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return nil
	}
	for gen == b.generation && b.err == nil {
		b.cond.Wait()
	}
	if gen == b.generation {
		return b.err
	}
	return nil
}

func (b *barrier) abort(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = fmt.Errorf("%w: %w", ErrAborted, err)
	}
	b.cond.Broadcast()
}

// Run drives fn on every rank of the world, one goroutine per rank. The first error aborts the
// world so that ranks blocked in collective calls return, and is returned.
func Run(w *World, fn func(comm Comm) error) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	wg.Add(w.np)
	for rank := 0; rank < w.np; rank++ {
		go func(rank int) {
			defer wg.Done()
			comm, _ := w.Comm(rank)
			if err := fn(comm); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("rank %d: %w", rank, err)
				}
				mu.Unlock()
				w.Abort(err)
			}
		}(rank)
	}
	wg.Wait()
	return firstErr
}
