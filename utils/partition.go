package utils

import "sort"

// PartitionMap splits the indices [0, MaxIndex) into ParallelDegree contiguous buckets whose
// sizes differ by at most one, the larger buckets first
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // begin and end index of each bucket
}

func NewPartitionMap(parallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: parallelDegree,
		Partitions:     make([][2]int, parallelDegree),
	}
	var (
		size      = maxIndex / parallelDegree
		remainder = maxIndex % parallelDegree
		start     int
	)
	for n := range pm.Partitions {
		end := start + size
		if n < remainder {
			end++
		}
		pm.Partitions[n] = [2]int{start, end}
		start = end
	}
	return
}

// GetBucket returns the bucket holding index k, -1 when k is out of range
func (pm *PartitionMap) GetBucket(k int) (bucketNum int) {
	if k < 0 || k >= pm.MaxIndex {
		return -1
	}
	return sort.Search(pm.ParallelDegree, func(n int) bool { return pm.Partitions[n][1] > k })
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	return pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
}

// GetBucketDimension is the number of indices in a bucket
func (pm *PartitionMap) GetBucketDimension(bucketNum int) int {
	kMin, kMax := pm.GetBucketRange(bucketNum)
	return kMax - kMin
}
