package utils

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// ParallelDegree returns NP when positive, otherwise the number of usable CPUs
func ParallelDegree(NP int) int {
	if NP > 0 {
		return NP
	}
	return runtime.GOMAXPROCS(0)
}

/*
ParallelFor splits [0,N) into NP contiguous buckets and runs body once per bucket,
each in its own goroutine with its own scratch Arena. The first error returned by
any bucket is returned after all buckets finish.
*/
func ParallelFor(N, NP int, body func(bucket, kMin, kMax int, heap *Arena) error) (err error) {
	var (
		np = ParallelDegree(NP)
		g  errgroup.Group
	)
	if N == 0 {
		return
	}
	if np > N {
		np = N
	}
	pm := NewPartitionMap(np, N)
	for bn := 0; bn < np; bn++ {
		bn := bn
		kMin, kMax := pm.GetBucketRange(bn)
		g.Go(func() error {
			return body(bn, kMin, kMax, NewArena(DefaultArenaSize))
		})
	}
	err = g.Wait()
	return
}
