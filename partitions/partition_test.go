package partitions

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPartitions(t *testing.T) {
	for _, strategy := range []PartitionStrategy{BlockPartition, RoundRobin} {
		for _, np := range []int{1, 3, 7, 50} {
			t.Run(fmt.Sprintf("strategy=%d/np=%d", strategy, np), func(t *testing.T) {
				pb := &PartitionBuilder{NumItems: 23, NumPartitions: np, Strategy: strategy}
				layout, err := pb.BuildPartitions()
				require.NoError(t, err)
				assert.LessOrEqual(t, layout.NumPartitions, 23)
				assert.NoError(t, layout.ValidateLayout())
				total := 0
				for _, p := range layout.Partitions {
					total += len(p.Items)
				}
				assert.Equal(t, 23, total)
			})
		}
	}
}

func TestBlockPartitionIsContiguous(t *testing.T) {
	pb := &PartitionBuilder{NumItems: 10, NumPartitions: 3}
	layout, err := pb.BuildPartitions()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, layout.Partitions[0].Items)
	assert.Equal(t, []int{8, 9}, layout.Partitions[2].Items)
	assert.Equal(t, 2, layout.GetPartition(9))
	assert.Equal(t, -1, layout.GetPartition(10))
}

func TestEmptyRange(t *testing.T) {
	calls := 0
	err := ForRange(0, 4, BlockPartition, func(int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestRunVisitsEveryItemOnce(t *testing.T) {
	hits := make([]int32, 1000)
	err := ForRange(len(hits), 8, RoundRobin, func(i int) error {
		atomic.AddInt32(&hits[i], 1)
		return nil
	})
	require.NoError(t, err)
	for i, h := range hits {
		assert.Equal(t, int32(1), h, "item %d", i)
	}
}

func TestRunPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := ForRange(100, 4, BlockPartition, func(i int) error {
		if i == 42 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestValidateLayoutDetectsDoubleOwnership(t *testing.T) {
	layout := &PartitionLayout{
		Partitions:    []Partition{{ID: 0, Items: []int{0, 1}}, {ID: 1, Items: []int{1}}},
		TotalItems:    2,
		NumPartitions: 2,
		IToP:          []int{0, 0},
	}
	assert.Error(t, layout.ValidateLayout())
}
