package heap

import (
	"fmt"

	"github.com/vkngwrapper/submission/memory"
	"github.com/vkngwrapper/submission/memutils"
	"github.com/vkngwrapper/submission/stream"
)

// Kind names one of the auxiliary heaps referenced by commands
type Kind int32

const (
	KindDynamicState Kind = iota
	KindIndirectObject
	KindSurfaceState

	// NumKinds is the number of heap kinds
	NumKinds
)

var kindMapping = map[Kind]string{
	KindDynamicState:   "KindDynamicState",
	KindIndirectObject: "KindIndirectObject",
	KindSurfaceState:   "KindSurfaceState",
}

func (k Kind) String() string {
	str, ok := kindMapping[k]
	if !ok {
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
	return str
}

// AllocationType is the type of allocation that backs a heap of this kind
func (k Kind) AllocationType() memory.AllocationType {
	if k == KindSurfaceState {
		return memory.AllocationTypeSurfaceStateHeap
	}
	return memory.AllocationTypeInternalHeap
}

// IndirectHeap is a linear view over a heap allocation. Commands refer to heap contents by offset from
// the heap's GPU base.
type IndirectHeap struct {
	stream.LinearStream
	kind Kind
}

func NewIndirectHeap(kind Kind, allocation *memory.Allocation) *IndirectHeap {
	heap := &IndirectHeap{kind: kind}
	heap.Replace(allocation, 0)
	return heap
}

func (h *IndirectHeap) Kind() Kind {
	return h.kind
}

// Size is the capacity of the heap
func (h *IndirectHeap) Size() uint64 {
	return h.MaxAvailableSpace()
}

// AlignmentPadding is the number of bytes Align would consume
func (h *IndirectHeap) AlignmentPadding(alignment uint64) uint64 {
	return memutils.AlignUp(h.Used(), alignment) - h.Used()
}

// Align advances the heap cursor to the next multiple of alignment
func (h *IndirectHeap) Align(alignment uint64) {
	padding := h.AlignmentPadding(alignment)
	if padding > 0 {
		h.GetSpace(padding)
	}
}

// ReplaceAllocation points the heap at a new allocation and rewinds it
func (h *IndirectHeap) ReplaceAllocation(allocation *memory.Allocation) {
	h.Replace(allocation, 0)
}
