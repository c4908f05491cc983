package memutils

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

const (
	// PageSize is the granularity of heap allocations
	PageSize uint64 = 4096
	// PageSize64KB is the granularity of command buffer allocations
	PageSize64KB uint64 = 64 * 1024
	// CacheLineSize is the alignment of timestamp nodes and the size of the chaining command reserved at the
	// end of every command buffer
	CacheLineSize uint64 = 64
	// CSOverfetchSize is padding kept past the end of a command buffer so that prefetch never reads unmapped memory
	CSOverfetchSize uint64 = 4096
	// CommandBufferReservedSize is the tail of every command buffer that linear writes never consume
	CommandBufferReservedSize = CacheLineSize + CSOverfetchSize
)

func CheckPow2[T constraints.Integer](number T, name string) error {
	if number <= 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp[T constraints.Unsigned](value T, alignment T) T {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) & ^(alignment - 1)
}

func AlignDown[T constraints.Unsigned](value T, alignment T) T {
	if alignment == 0 {
		return value
	}
	return value & ^(alignment - 1)
}

func IsAligned[T constraints.Unsigned](value T, alignment T) bool {
	return alignment == 0 || value&(alignment-1) == 0
}

// CeilDiv returns the number of divisor-sized pieces needed to cover value
func CeilDiv[T constraints.Unsigned](value T, divisor T) T {
	return (value + divisor - 1) / divisor
}
