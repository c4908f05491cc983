package timestamp_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/memory"
	mock_memory "github.com/vkngwrapper/submission/memory/mocks"
	"github.com/vkngwrapper/submission/timestamp"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"
)

type fakeCompletion struct {
	completed common.Stamp
}

func (c *fakeCompletion) CompletedStamp() common.Stamp {
	return c.completed
}

func newArena(t *testing.T, options timestamp.ArenaOptions) (*timestamp.Arena, *memory.HostManager) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	manager := memory.NewHostManager(logger, memory.HostManagerOptions{})
	arena := timestamp.NewArena(logger, manager, options)
	t.Cleanup(func() {
		arena.Destroy()
		require.Equal(t, 0, manager.AllocationCount())
	})
	return arena, manager
}

func complete(node timestamp.Node) {
	for i := uint32(0); i < node.PacketsUsed(); i++ {
		node.SetPacket(i, timestamp.Packet{ContextStart: 10, GlobalStart: 10, ContextEnd: 20, GlobalEnd: 20})
	}
}

func TestNodeLayout(t *testing.T) {
	require.Equal(t, uint64(64), timestamp.NodeSize(1))
	require.Equal(t, uint64(128), timestamp.NodeSize(4))
	require.Equal(t, uint64(64), timestamp.ImplicitDependencyOffset(4))

	arena, _ := newArena(t, timestamp.ArenaOptions{PacketCount: 4, TagsPerChunk: 4, CompletionTracking: true})
	handle, res, err := arena.Acquire()
	require.NoError(t, err)
	require.Equal(t, common.Success, res)

	node, err := arena.Node(handle)
	require.NoError(t, err)
	require.Equal(t, uint32(4), node.PacketCount())
	require.Equal(t, uint32(1), node.PacketsUsed())
	require.Equal(t, node.GPUAddress()+8, node.ContextEndAddress(0))
	require.Equal(t, node.GPUAddress()+16+8, node.ContextEndAddress(1))
	require.Equal(t, node.GPUAddress()+64, node.ImplicitDependencyCountAddress())

	for i := uint32(0); i < 4; i++ {
		require.Equal(t, timestamp.Packet{
			ContextStart: timestamp.InitValue,
			GlobalStart:  timestamp.InitValue,
			ContextEnd:   timestamp.InitValue,
			GlobalEnd:    timestamp.InitValue,
		}, node.Packet(i))
	}
	require.Equal(t, uint32(0), node.ImplicitGPUDependencies())

	require.Panics(t, func() { node.SetPacketsUsed(5) })
	require.Panics(t, func() { node.ContextEndAddress(4) })
}

func TestNodeCompletion(t *testing.T) {
	arena, _ := newArena(t, timestamp.ArenaOptions{PacketCount: 4, TagsPerChunk: 4, CompletionTracking: true})
	handle, _, err := arena.Acquire()
	require.NoError(t, err)
	node, err := arena.Node(handle)
	require.NoError(t, err)

	node.SetPacketsUsed(2)
	require.False(t, node.IsCompleted())

	node.SetPacket(0, timestamp.Packet{ContextEnd: 500})
	require.False(t, node.IsCompleted())

	node.SetPacket(1, timestamp.Packet{ContextEnd: 600})
	require.True(t, node.IsCompleted())

	// Packets beyond the used count do not matter
	require.Equal(t, timestamp.InitValue, node.Packet(2).ContextEnd)
}

func TestNodeCompletionTrackingDisabled(t *testing.T) {
	arena, _ := newArena(t, timestamp.ArenaOptions{PacketCount: 1, TagsPerChunk: 4})
	handle, _, err := arena.Acquire()
	require.NoError(t, err)
	node, err := arena.Node(handle)
	require.NoError(t, err)

	complete(node)
	require.False(t, node.IsCompleted())

	require.NoError(t, arena.Release(handle))
	free, used, deferred := arena.Counts()
	require.Equal(t, 3, free)
	require.Equal(t, 0, used)
	require.Equal(t, 1, deferred)

	require.Equal(t, 0, arena.ReleaseDeferred())
	require.Equal(t, 1, arena.ReclaimAll())
	free, _, deferred = arena.Counts()
	require.Equal(t, 4, free)
	require.Equal(t, 0, deferred)
}

func TestArenaReleasesStampedNodesWithoutTracking(t *testing.T) {
	completion := &fakeCompletion{}
	arena, _ := newArena(t, timestamp.ArenaOptions{
		PacketCount:            1,
		TagsPerChunk:           2,
		Completion:             completion,
		ExternallySynchronized: true,
	})

	first, _, err := arena.Acquire()
	require.NoError(t, err)
	second, _, err := arena.Acquire()
	require.NoError(t, err)

	node, err := arena.Node(first)
	require.NoError(t, err)
	node.SetTaskCount(3)

	require.NoError(t, arena.Release(first))
	require.NoError(t, arena.Release(second))
	_, _, deferred := arena.Counts()
	require.Equal(t, 2, deferred)

	// The unstamped node stays deferred, the stamped one goes once its stamp retires
	completion.completed = 3
	require.Equal(t, 1, arena.ReleaseDeferred())
	free, _, deferred := arena.Counts()
	require.Equal(t, 1, free)
	require.Equal(t, 1, deferred)
	require.Equal(t, 1, arena.ReclaimAll())
}

func TestArenaReleaseCompletedNode(t *testing.T) {
	arena, _ := newArena(t, timestamp.ArenaOptions{PacketCount: 1, TagsPerChunk: 1, CompletionTracking: true})
	handle, _, err := arena.Acquire()
	require.NoError(t, err)
	node, err := arena.Node(handle)
	require.NoError(t, err)
	complete(node)

	require.NoError(t, arena.Release(handle))

	_, err = arena.Node(handle)
	require.ErrorIs(t, err, timestamp.ErrStaleHandle)
	require.ErrorIs(t, arena.Release(handle), timestamp.ErrStaleHandle)
	require.ErrorIs(t, arena.Retain(handle), timestamp.ErrStaleHandle)

	next, _, err := arena.Acquire()
	require.NoError(t, err)
	require.NotEqual(t, handle, next)
	require.Len(t, arena.Allocations(), 1)

	nextNode, err := arena.Node(next)
	require.NoError(t, err)
	require.Equal(t, node.GPUAddress(), nextNode.GPUAddress())
	require.False(t, nextNode.IsCompleted())
	require.NoError(t, arena.Release(next))
}

func TestArenaDefersIncompleteNode(t *testing.T) {
	arena, _ := newArena(t, timestamp.ArenaOptions{PacketCount: 1, TagsPerChunk: 1, CompletionTracking: true})
	handle, _, err := arena.Acquire()
	require.NoError(t, err)
	node, err := arena.Node(handle)
	require.NoError(t, err)

	require.NoError(t, arena.Release(handle))
	_, _, deferred := arena.Counts()
	require.Equal(t, 1, deferred)

	// The free list is empty and the deferred node is still pending, so a new chunk is allocated
	second, _, err := arena.Acquire()
	require.NoError(t, err)
	require.Len(t, arena.Allocations(), 2)

	complete(node)

	// Releasing the second node sweeps the deferred list
	secondNode, err := arena.Node(second)
	require.NoError(t, err)
	complete(secondNode)
	require.NoError(t, arena.Release(second))

	free, used, deferred := arena.Counts()
	require.Equal(t, 2, free)
	require.Equal(t, 0, used)
	require.Equal(t, 0, deferred)
}

func TestArenaAcquireSweepsDeferred(t *testing.T) {
	arena, _ := newArena(t, timestamp.ArenaOptions{PacketCount: 1, TagsPerChunk: 1, CompletionTracking: true})
	handle, _, err := arena.Acquire()
	require.NoError(t, err)
	node, err := arena.Node(handle)
	require.NoError(t, err)

	node.SetDoNotRelease(true)
	require.NoError(t, arena.Release(handle))
	complete(node)
	require.Equal(t, 0, arena.ReleaseDeferred())
	node.SetDoNotRelease(false)

	reused, _, err := arena.Acquire()
	require.NoError(t, err)
	require.Len(t, arena.Allocations(), 1)
	require.NotEqual(t, handle, reused)
	require.NoError(t, arena.Retain(reused))
	require.NoError(t, arena.Release(reused))
	require.NoError(t, arena.Release(reused))
}

func TestArenaRetain(t *testing.T) {
	arena, _ := newArena(t, timestamp.ArenaOptions{PacketCount: 1, TagsPerChunk: 2, CompletionTracking: true})
	handle, _, err := arena.Acquire()
	require.NoError(t, err)
	require.NoError(t, arena.Retain(handle))

	node, err := arena.Node(handle)
	require.NoError(t, err)
	complete(node)

	require.NoError(t, arena.Release(handle))
	_, err = arena.Node(handle)
	require.NoError(t, err)

	require.NoError(t, arena.Release(handle))
	_, err = arena.Node(handle)
	require.ErrorIs(t, err, timestamp.ErrStaleHandle)

	require.ErrorIs(t, arena.Retain(timestamp.Handle{}), timestamp.ErrStaleHandle)
}

func TestArenaStampCompletion(t *testing.T) {
	completion := &fakeCompletion{}
	arena, _ := newArena(t, timestamp.ArenaOptions{PacketCount: 1, TagsPerChunk: 2, Completion: completion})
	handle, _, err := arena.Acquire()
	require.NoError(t, err)
	node, err := arena.Node(handle)
	require.NoError(t, err)
	node.SetTaskCount(4)

	require.NoError(t, arena.Release(handle))
	_, _, deferred := arena.Counts()
	require.Equal(t, 1, deferred)

	completion.completed = 4
	require.Equal(t, 1, arena.ReleaseDeferred())
}

func TestArenaOutOfMemory(t *testing.T) {
	ctrl := gomock.NewController(t)
	manager := mock_memory.NewMockManager(ctrl)
	manager.EXPECT().Allocate(gomock.Any()).Return(nil, common.ErrorOutOfDeviceMemory.ToError())

	arena := timestamp.NewArena(slog.New(slog.NewJSONHandler(io.Discard, nil)), manager, timestamp.ArenaOptions{PacketCount: 1, TagsPerChunk: 1})
	_, res, err := arena.Acquire()
	require.Equal(t, common.ErrorOutOfDeviceMemory, res)
	require.ErrorIs(t, err, common.ErrorOutOfDeviceMemory.ToError())
}

func TestArenaConcurrentAcquireRelease(t *testing.T) {
	arena, _ := newArena(t, timestamp.ArenaOptions{PacketCount: 2, TagsPerChunk: 8, CompletionTracking: true})

	var group errgroup.Group
	for worker := 0; worker < 8; worker++ {
		group.Go(func() error {
			for i := 0; i < 64; i++ {
				handle, _, err := arena.Acquire()
				if err != nil {
					return err
				}
				node, err := arena.Node(handle)
				if err != nil {
					return err
				}
				if i%2 == 0 {
					complete(node)
				}
				if err := arena.Release(handle); err != nil {
					return err
				}
				if i%2 == 1 {
					complete(node)
				}
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())

	arena.ReleaseDeferred()
	_, used, deferred := arena.Counts()
	require.Equal(t, 0, used)
	require.Equal(t, 0, deferred)
}

func TestArenaWriteStats(t *testing.T) {
	arena, _ := newArena(t, timestamp.ArenaOptions{PacketCount: 4, TagsPerChunk: 4, CompletionTracking: true})
	_, _, err := arena.Acquire()
	require.NoError(t, err)

	writer := jwriter.NewWriter()
	arena.WriteStats(&writer)

	var stats struct {
		NodeSize int
		Chunks   int
		Free     int
		Used     int
	}
	require.NoError(t, json.Unmarshal(writer.Bytes(), &stats))
	require.Equal(t, 128, stats.NodeSize)
	require.Equal(t, 1, stats.Chunks)
	require.Equal(t, 3, stats.Free)
	require.Equal(t, 1, stats.Used)
}
