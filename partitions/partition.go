package partitions

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// PartitionStrategy defines how items are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive items
	RoundRobin                              // Distribute cyclically
)

// Partition is a set of item indices (faces or dual edges) processed by one worker
type Partition struct {
	ID    int
	Items []int
}

// PartitionLayout manages the complete decomposition of an index range
type PartitionLayout struct {
	Partitions    []Partition
	TotalItems    int
	NumPartitions int

	// Item to partition mapping
	IToP []int // Length TotalItems: item i belongs to partition IToP[i]
}

// PartitionBuilder constructs partitions for a range [0, NumItems)
type PartitionBuilder struct {
	NumItems      int
	NumPartitions int // <= 0 selects runtime.GOMAXPROCS(0)
	Strategy      PartitionStrategy
}

// BuildPartitions creates a partition layout
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.NumItems < 0 {
		return nil, fmt.Errorf("invalid item count %d", pb.NumItems)
	}
	numPartitions := pb.calculateNumPartitions()
	iToP := pb.partitionItems(numPartitions)

	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{ID: i, Items: make([]int, 0, pb.NumItems/numPartitions+1)}
	}
	for item, part := range iToP {
		partitions[part].Items = append(partitions[part].Items, item)
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		TotalItems:    pb.NumItems,
		NumPartitions: numPartitions,
		IToP:          iToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

// calculateNumPartitions never returns more partitions than items, and at least one
func (pb *PartitionBuilder) calculateNumPartitions() int {
	numPartitions := pb.NumPartitions
	if numPartitions <= 0 {
		numPartitions = runtime.GOMAXPROCS(0)
	}
	if numPartitions > pb.NumItems {
		numPartitions = pb.NumItems
	}
	if numPartitions < 1 {
		numPartitions = 1
	}
	return numPartitions
}

func (pb *PartitionBuilder) partitionItems(numPartitions int) []int {
	iToP := make([]int, pb.NumItems)
	switch pb.Strategy {
	case RoundRobin:
		for i := range iToP {
			iToP[i] = i % numPartitions
		}
	default:
		itemsPerPartition := int(math.Ceil(float64(pb.NumItems) / float64(numPartitions)))
		for i := range iToP {
			iToP[i] = i / itemsPerPartition
			if iToP[i] >= numPartitions {
				iToP[i] = numPartitions - 1
			}
		}
	}
	return iToP
}

// ValidateLayout checks that every item is owned by exactly one partition
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.IToP) != pl.TotalItems {
		return fmt.Errorf("IToP length %d != TotalItems %d", len(pl.IToP), pl.TotalItems)
	}
	seen := make([]bool, pl.TotalItems)
	count := 0
	for _, p := range pl.Partitions {
		for _, item := range p.Items {
			if item < 0 || item >= pl.TotalItems {
				return fmt.Errorf("partition %d: item %d out of range", p.ID, item)
			}
			if seen[item] {
				return fmt.Errorf("partition %d: item %d owned twice", p.ID, item)
			}
			if pl.IToP[item] != p.ID {
				return fmt.Errorf("partition %d: item %d mapped to partition %d",
					p.ID, item, pl.IToP[item])
			}
			seen[item] = true
			count++
		}
	}
	if count != pl.TotalItems {
		return fmt.Errorf("conservation error: %d items placed, %d expected", count, pl.TotalItems)
	}
	return nil
}

// GetPartition returns the partition containing item i
func (pl *PartitionLayout) GetPartition(item int) int {
	if item < 0 || item >= len(pl.IToP) {
		return -1
	}
	return pl.IToP[item]
}

// Run calls fn once per item, one goroutine per partition. fn must only write
// to storage owned by its item. A partition stops at its first error, which
// Run returns once every partition has finished.
func (pl *PartitionLayout) Run(fn func(item int) error) error {
	var g errgroup.Group
	for _, p := range pl.Partitions {
		items := p.Items
		g.Go(func() error {
			for _, item := range items {
				if err := fn(item); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// ForRange partitions [0, n) and runs fn over it
func ForRange(n, numPartitions int, strategy PartitionStrategy, fn func(item int) error) error {
	pb := &PartitionBuilder{NumItems: n, NumPartitions: numPartitions, Strategy: strategy}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return err
	}
	return layout.Run(fn)
}
