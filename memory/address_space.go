package memory

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/memutils"
)

type addressRange struct {
	offset uint64
	size   uint64
}

// addressSpace is a first-fit allocator for GPU virtual address ranges. Free ranges are kept sorted by
// offset and coalesced on release.
type addressSpace struct {
	base       uint64
	size       uint64
	freeRanges []addressRange
}

func newAddressSpace(base, size uint64) *addressSpace {
	return &addressSpace{
		base:       base,
		size:       size,
		freeRanges: []addressRange{{offset: base, size: size}},
	}
}

func (s *addressSpace) allocate(size, alignment uint64) (uint64, bool) {
	for index, free := range s.freeRanges {
		start := memutils.AlignUp(free.offset, alignment)
		padding := start - free.offset
		if padding+size > free.size {
			continue
		}

		end := start + size
		freeEnd := free.offset + free.size

		var replacement []addressRange
		if padding > 0 {
			replacement = append(replacement, addressRange{offset: free.offset, size: padding})
		}
		if end < freeEnd {
			replacement = append(replacement, addressRange{offset: end, size: freeEnd - end})
		}

		tail := append(replacement, s.freeRanges[index+1:]...)
		s.freeRanges = append(s.freeRanges[:index], tail...)
		return start, true
	}

	return 0, false
}

func (s *addressSpace) release(offset, size uint64) {
	index := sort.Search(len(s.freeRanges), func(i int) bool {
		return s.freeRanges[i].offset > offset
	})

	s.freeRanges = append(s.freeRanges, addressRange{})
	copy(s.freeRanges[index+1:], s.freeRanges[index:])
	s.freeRanges[index] = addressRange{offset: offset, size: size}

	if index+1 < len(s.freeRanges) && offset+size == s.freeRanges[index+1].offset {
		s.freeRanges[index].size += s.freeRanges[index+1].size
		s.freeRanges = append(s.freeRanges[:index+1], s.freeRanges[index+2:]...)
	}

	if index > 0 && s.freeRanges[index-1].offset+s.freeRanges[index-1].size == offset {
		s.freeRanges[index-1].size += s.freeRanges[index].size
		s.freeRanges = append(s.freeRanges[:index], s.freeRanges[index+1:]...)
	}
}

func (s *addressSpace) freeBytes() uint64 {
	var total uint64
	for _, free := range s.freeRanges {
		total += free.size
	}
	return total
}

func (s *addressSpace) Validate() error {
	end := s.base
	for _, free := range s.freeRanges {
		if free.size == 0 {
			return errors.Newf("empty free range at 0x%x", free.offset)
		}
		if free.offset < end {
			return errors.Newf("free range at 0x%x overlaps or is out of order", free.offset)
		}
		if free.offset == end && end != s.base {
			return errors.Newf("free range at 0x%x was not coalesced with its predecessor", free.offset)
		}
		end = free.offset + free.size
	}

	if end > s.base+s.size {
		return errors.Newf("free range ends at 0x%x, past the end of the address space at 0x%x", end, s.base+s.size)
	}

	return nil
}
