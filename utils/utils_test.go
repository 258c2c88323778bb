package utils

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionMap(t *testing.T) {
	sizes := func(pm *PartitionMap) (histo map[int]int) {
		histo = make(map[int]int)
		for n := 0; n < pm.ParallelDegree; n++ {
			histo[pm.GetBucketDimension(n)]++
		}
		return
	}
	assert.Equal(t, map[int]int{0: 30, 1: 2}, sizes(NewPartitionMap(32, 2)))
	assert.Equal(t, map[int]int{1: 32}, sizes(NewPartitionMap(32, 32)))
	assert.Equal(t, map[int]int{8: 1, 9: 31}, sizes(NewPartitionMap(32, 287)))

	for maxIndex := 10; maxIndex < 300; maxIndex++ {
		pm := NewPartitionMap(7, maxIndex)
		total := 0
		for n := 0; n < pm.ParallelDegree; n++ {
			total += pm.GetBucketDimension(n)
		}
		require.Equal(t, maxIndex, total)
		for k := 0; k < maxIndex; k++ {
			bn := pm.GetBucket(k)
			kMin, kMax := pm.GetBucketRange(bn)
			require.True(t, kMin <= k && k < kMax, "index %d in bucket %d [%d,%d)", k, bn, kMin, kMax)
		}
	}
	pm := NewPartitionMap(3, 10)
	assert.Equal(t, -1, pm.GetBucket(10))
	assert.Equal(t, -1, pm.GetBucket(-1))
	assert.Equal(t, [][2]int{{0, 4}, {4, 7}, {7, 10}}, pm.Partitions)
}

func TestMailBox(t *testing.T) {
	var (
		np = 4
		mb = NewMailBox[int](np)
		wg sync.WaitGroup
	)
	got := make([][]int, np)
	for round := 0; round < 2; round++ {
		// Everyone sends to every other rank
		wg.Add(np)
		for n := 0; n < np; n++ {
			go func(rank int) {
				defer wg.Done()
				for k := 0; k < np; k++ {
					if k != rank {
						assert.NoError(t, mb.Post(rank, k, 10*rank+k))
					}
				}
				mb.Deliver(rank)
			}(n)
		}
		wg.Wait()
		wg.Add(np)
		for n := 0; n < np; n++ {
			go func(rank int) {
				defer wg.Done()
				got[rank] = append([]int(nil), mb.Collect(rank)...)
				mb.Clear(rank)
			}(n)
		}
		wg.Wait()
		for n := 0; n < np; n++ {
			sort.Ints(got[n])
			var want []int
			for k := 0; k < np; k++ {
				if k != n {
					want = append(want, 10*k+n)
				}
			}
			assert.Equal(t, want, got[n], "round %d", round)
		}
	}
	assert.ErrorIs(t, mb.Post(0, np, 1), ErrBadTarget)
	assert.Empty(t, mb.Collect(1))
}
