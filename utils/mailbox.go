package utils

import (
	"errors"
	"fmt"
)

var ErrBadTarget = errors.New("message target out of range")

// DynBuffer is an append-only buffer that is reused between message rounds
type DynBuffer[T any] struct {
	cells []T
}

func NewDynBuffer[T any](capacity int) *DynBuffer[T] {
	return &DynBuffer[T]{cells: make([]T, 0, capacity)}
}

func (db *DynBuffer[T]) Add(item T) { db.cells = append(db.cells, item) }

func (db *DynBuffer[T]) Cells() []T { return db.cells }

func (db *DynBuffer[T]) Len() int { return len(db.cells) }

// Reset empties the buffer, keeping its storage
func (db *DynBuffer[T]) Reset() {
	var zero T
	for i := range db.cells {
		db.cells[i] = zero
	}
	db.cells = db.cells[:0]
}

/*
MailBox moves messages between a fixed number of ranks, each driven by its own goroutine. A round
is: every rank Posts and then Delivers, all ranks synchronise, every rank Collects and Clears, all
ranks synchronise again. The synchronisation is up to the caller.
*/
type MailBox[T any] struct {
	np      int
	inbound []chan *DynBuffer[T]    // per receiving rank
	outbox  []map[int]*DynBuffer[T] // per sending rank, keyed by target
	inbox   []*DynBuffer[T]         // per receiving rank
	pending []bool                  // sending rank has undelivered mail
}

func NewMailBox[T any](np int) *MailBox[T] {
	mb := &MailBox[T]{
		np:      np,
		inbound: make([]chan *DynBuffer[T], np),
		outbox:  make([]map[int]*DynBuffer[T], np),
		inbox:   make([]*DynBuffer[T], np),
		pending: make([]bool, np),
	}
	for n := 0; n < np; n++ {
		// at most one buffer from every other rank per round
		mb.inbound[n] = make(chan *DynBuffer[T], np)
		mb.outbox[n] = make(map[int]*DynBuffer[T])
		mb.inbox[n] = NewDynBuffer[T](0)
	}
	return mb
}

func (mb *MailBox[T]) Size() int { return mb.np }

// Post queues msg from rank from to rank to
func (mb *MailBox[T]) Post(from, to int, msg T) error {
	if to < 0 || to >= mb.np {
		return fmt.Errorf("%w: %d of %d", ErrBadTarget, to, mb.np)
	}
	buf, ok := mb.outbox[from][to]
	if !ok {
		buf = NewDynBuffer[T](0)
		mb.outbox[from][to] = buf
	}
	buf.Add(msg)
	mb.pending[from] = true
	return nil
}

// Deliver hands every non-empty outbox of rank from to its target
func (mb *MailBox[T]) Deliver(from int) {
	if !mb.pending[from] {
		return
	}
	for to, buf := range mb.outbox[from] {
		if buf.Len() > 0 {
			mb.inbound[to] <- buf
		}
	}
	mb.pending[from] = false
}

// Collect moves everything delivered to rank into its inbox and returns the inbox. The
// originating buffers are reset so the senders can reuse them next round.
func (mb *MailBox[T]) Collect(rank int) []T {
	for {
		select {
		case buf := <-mb.inbound[rank]:
			for _, msg := range buf.Cells() {
				mb.inbox[rank].Add(msg)
			}
			buf.Reset()
		default:
			return mb.inbox[rank].Cells()
		}
	}
}

func (mb *MailBox[T]) Clear(rank int) { mb.inbox[rank].Reset() }
