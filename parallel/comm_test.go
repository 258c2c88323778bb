package parallel

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeRing(t *testing.T) {
	var (
		NP = 5
	)
	w, err := NewWorld(NP)
	require.NoError(t, err)
	got := make([]map[int][]byte, NP)
	err = Run(w, func(comm Comm) error {
		var (
			me    = comm.Rank()
			left  = (me + NP - 1) % NP
			right = (me + 1) % NP
		)
		// Several rounds to exercise buffer reuse
		for round := 0; round < 3; round++ {
			send := map[int][]byte{
				left:  []byte(fmt.Sprintf("%d->%d:%d", me, left, round)),
				right: []byte(fmt.Sprintf("%d->%d:%d", me, right, round)),
			}
			recv, err := comm.Exchange(send)
			if err != nil {
				return err
			}
			got[me] = recv
		}
		return nil
	})
	require.NoError(t, err)
	for me := 0; me < NP; me++ {
		left, right := (me+NP-1)%NP, (me+1)%NP
		assert.Equal(t, 2, len(got[me]))
		assert.Equal(t, fmt.Sprintf("%d->%d:2", left, me), string(got[me][left]))
		assert.Equal(t, fmt.Sprintf("%d->%d:2", right, me), string(got[me][right]))
	}
}

func TestExchangeCopiesBuffers(t *testing.T) {
	w, err := NewWorld(2)
	require.NoError(t, err)
	err = Run(w, func(comm Comm) error {
		buf := []byte{byte(comm.Rank())}
		recv, err := comm.Exchange(map[int][]byte{1 - comm.Rank(): buf})
		if err != nil {
			return err
		}
		buf[0] = 99
		if recv[1-comm.Rank()][0] != byte(1-comm.Rank()) {
			return errors.New("received buffer aliases the sender")
		}
		return nil
	})
	assert.NoError(t, err)
}

func TestAllReduceSum(t *testing.T) {
	w, err := NewWorld(4)
	require.NoError(t, err)
	var bad atomic.Int32
	err = Run(w, func(comm Comm) error {
		for round := 1; round <= 10; round++ {
			sum, err := comm.AllReduceSum(comm.Rank() * round)
			if err != nil {
				return err
			}
			if sum != 6*round {
				bad.Add(1)
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), bad.Load())
}

func TestAbortReleasesBlockedRanks(t *testing.T) {
	w, err := NewWorld(3)
	require.NoError(t, err)
	failure := errors.New("link down")
	err = Run(w, func(comm Comm) error {
		if comm.Rank() == 2 {
			return failure
		}
		// Ranks 0 and 1 would wait forever for rank 2 without the abort
		_, err := comm.AllReduceSum(1)
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.ErrorIs(t, w.barrier.wait(), ErrAborted)
}

func TestWorldErrors(t *testing.T) {
	_, err := NewWorld(0)
	assert.ErrorIs(t, err, ErrBadWorld)
	w, _ := NewWorld(2)
	_, err = w.Comm(2)
	assert.ErrorIs(t, err, ErrBadRank)
	c, err := w.Comm(0)
	require.NoError(t, err)
	_, err = c.Exchange(map[int][]byte{5: nil})
	assert.ErrorIs(t, err, ErrBadRank)
	assert.Equal(t, 2, c.Size())
}
