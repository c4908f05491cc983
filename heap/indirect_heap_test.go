package heap_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/submission/heap"
	"github.com/vkngwrapper/submission/memory"
)

func TestIndirectHeapAlign(t *testing.T) {
	manager := memory.NewHostManager(slog.New(slog.NewJSONHandler(io.Discard, nil)), memory.HostManagerOptions{})
	alloc, err := manager.Allocate(memory.AllocationProperties{Type: heap.KindDynamicState.AllocationType(), Size: 4096})
	require.NoError(t, err)
	defer manager.Free(alloc)

	h := heap.NewIndirectHeap(heap.KindDynamicState, alloc)
	require.Equal(t, heap.KindDynamicState, h.Kind())
	require.Equal(t, uint64(4096), h.Size())

	h.GetSpace(10)
	require.Equal(t, uint64(54), h.AlignmentPadding(64))
	h.Align(64)
	require.Equal(t, uint64(64), h.Used())
	h.Align(64)
	require.Equal(t, uint64(64), h.Used())
}

func TestKindAllocationType(t *testing.T) {
	require.Equal(t, memory.AllocationTypeSurfaceStateHeap, heap.KindSurfaceState.AllocationType())
	require.Equal(t, memory.AllocationTypeInternalHeap, heap.KindIndirectObject.AllocationType())
	require.Equal(t, "KindSurfaceState", heap.KindSurfaceState.String())
}
