package memutils

import (
	"math"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics counts allocations held by a memory manager, heap pool, or container
type Statistics struct {
	AllocationCount int
	AllocationBytes uint64
}

func (s *Statistics) Clear() {
	s.AllocationCount = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddAllocation(size uint64) {
	s.AllocationCount++
	s.AllocationBytes += size
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.AllocationCount += other.AllocationCount
	s.AllocationBytes += other.AllocationBytes
}

func (s *Statistics) PrintJSON(o *jwriter.ObjectState) {
	o.Name("AllocationCount").Int(s.AllocationCount)
	o.Name("AllocationBytes").Float64(float64(s.AllocationBytes))
}

// DetailedStatistics extends Statistics with the size range of the allocations
type DetailedStatistics struct {
	Statistics
	AllocationSizeMin uint64
	AllocationSizeMax uint64
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.AllocationSizeMin = math.MaxUint64
	s.AllocationSizeMax = 0
}

func (s *DetailedStatistics) AddAllocation(size uint64) {
	s.Statistics.AddAllocation(size)

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}

func (s *DetailedStatistics) PrintJSON(o *jwriter.ObjectState) {
	s.Statistics.PrintJSON(o)
	if s.AllocationCount > 0 {
		o.Name("AllocationSizeMin").Float64(float64(s.AllocationSizeMin))
		o.Name("AllocationSizeMax").Float64(float64(s.AllocationSizeMax))
	}
}
