package stream

import (
	"fmt"

	"github.com/vkngwrapper/submission/memory"
)

// LinearStream is a write cursor over a command buffer allocation. The last reservedSize bytes of the
// allocation are kept back for the command that chains to the next buffer and are never handed out by
// GetSpace.
type LinearStream struct {
	allocation   *memory.Allocation
	reservedSize uint64
	used         uint64
}

func NewLinearStream(allocation *memory.Allocation, reservedSize uint64) *LinearStream {
	s := &LinearStream{}
	s.Replace(allocation, reservedSize)
	return s
}

// Replace points the stream at a new allocation and rewinds it
func (s *LinearStream) Replace(allocation *memory.Allocation, reservedSize uint64) {
	if allocation != nil && reservedSize > allocation.Size() {
		panic(fmt.Sprintf("reserved size %d exceeds command buffer size %d", reservedSize, allocation.Size()))
	}

	s.allocation = allocation
	s.reservedSize = reservedSize
	s.used = 0
}

func (s *LinearStream) Allocation() *memory.Allocation {
	return s.allocation
}

// MaxAvailableSpace is the number of bytes GetSpace can hand out from an empty stream
func (s *LinearStream) MaxAvailableSpace() uint64 {
	if s.allocation == nil {
		return 0
	}
	return s.allocation.Size() - s.reservedSize
}

func (s *LinearStream) Used() uint64 {
	return s.used
}

func (s *LinearStream) Available() uint64 {
	return s.MaxAvailableSpace() - s.used
}

func (s *LinearStream) GPUBase() uint64 {
	if s.allocation == nil {
		return 0
	}
	return s.allocation.GPUAddress()
}

// CurrentGPUAddress is the GPU address of the next byte GetSpace will return
func (s *LinearStream) CurrentGPUAddress() uint64 {
	return s.GPUBase() + s.used
}

// GetSpace hands out the next size bytes of the stream. Callers must check Available first, running out
// of space is a programmer error and panics.
func (s *LinearStream) GetSpace(size uint64) []byte {
	if size > s.Available() {
		panic(fmt.Sprintf("command stream overflow: requested %d bytes with %d available", size, s.Available()))
	}

	start := s.used
	s.used += size
	return s.allocation.CPUData()[start:s.used:s.used]
}

// ReservedSpace returns the tail kept back for chaining to the next buffer
func (s *LinearStream) ReservedSpace() []byte {
	data := s.allocation.CPUData()
	return data[s.MaxAvailableSpace():]
}

// Write appends p to the stream, it implements io.Writer
func (s *LinearStream) Write(p []byte) (int, error) {
	copy(s.GetSpace(uint64(len(p))), p)
	return len(p), nil
}

// Rewind moves the cursor back to the start of the buffer without clearing it
func (s *LinearStream) Rewind() {
	s.used = 0
}
