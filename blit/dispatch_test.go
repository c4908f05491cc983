package blit_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/submission/blit"
	mock_blit "github.com/vkngwrapper/submission/blit/mocks"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/config"
	"github.com/vkngwrapper/submission/container"
	"github.com/vkngwrapper/submission/engine"
	"github.com/vkngwrapper/submission/memory"
	"github.com/vkngwrapper/submission/queue"
	"github.com/vkngwrapper/submission/timestamp"
	mock_timestamp "github.com/vkngwrapper/submission/timestamp/mocks"
	"go.uber.org/mock/gomock"
)

const (
	copyCommandSize    = 40
	timestampWriteSize = 24
)

func containsAllocation(list []*memory.Allocation, allocation *memory.Allocation) bool {
	for _, entry := range list {
		if entry == allocation {
			return true
		}
	}
	return false
}

func TestDispatchCopyIntoContainer(t *testing.T) {
	ctrl := gomock.NewController(t)
	encoder := mock_blit.NewMockEncoder(ctrl)
	dev, manager := deviceWith(t, func(options *config.Options) {
		options.LimitBlitterMaxWidth = 1024
	})

	var c container.CommandContainer
	_, err := c.Initialize(dev)
	require.NoError(t, err)

	src := allocate(t, manager, memory.AllocationTypeBuffer, 8192)
	dst := allocate(t, manager, memory.AllocationTypeBuffer, 8192)
	props, _, err := blit.ForCopy(dst, src, blit.Vec3{}, blit.Vec3{}, blit.Vec3{X: 5000}, 0, 0, 0, 0)
	require.NoError(t, err)

	var encoded []blit.Chunk
	encoder.EXPECT().CopyCommandSize().Return(uint64(copyCommandSize)).AnyTimes()
	encoder.EXPECT().EncodeCopy(gomock.Any(), gomock.Any()).Do(func(dst []byte, chunk blit.Chunk) {
		require.Len(t, dst, copyCommandSize)
		encoded = append(encoded, chunk)
	}).Times(5)

	dispatcher := blit.NewDispatcher(blit.NewBuilder(dev, nil), encoder, nil, dev.TimestampArena())
	res, err := dispatcher.DispatchCopy(blit.ContainerTarget{Container: &c}, props)
	require.NoError(t, err)
	require.Equal(t, common.Success, res)

	requireExactTiling(t, encoded, src.GPUAddress(), dst.GPUAddress(), 5000, 1024, 1)
	require.Equal(t, uint64(5*copyCommandSize), c.CommandStream().Used())
	require.True(t, containsAllocation(c.ResidencyList(), src))
	require.True(t, containsAllocation(c.ResidencyList(), dst))
}

func TestDispatchRejectedFillEmitsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	encoder := mock_blit.NewMockEncoder(ctrl)
	dev, manager := deviceWith(t, nil)

	var c container.CommandContainer
	_, err := c.Initialize(dev)
	require.NoError(t, err)
	residency := len(c.ResidencyList())

	dispatcher := blit.NewDispatcher(blit.NewBuilder(dev, nil), encoder, nil, dev.TimestampArena())
	dst := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	host := allocate(t, manager, memory.AllocationTypeBufferHostMemory, 4096)

	res, err := dispatcher.DispatchFill(blit.ContainerTarget{Container: &c}, dst, 0, make([]byte, 16), 256)
	require.Equal(t, common.ErrorInvalidSize, res)
	require.Error(t, err)

	res, err = dispatcher.DispatchFill(blit.ContainerTarget{Container: &c}, host, 0, make([]byte, 4), 256)
	require.Equal(t, common.ErrorInvalidArgument, res)
	require.Error(t, err)

	require.Equal(t, uint64(0), c.CommandStream().Used())
	require.Len(t, c.ResidencyList(), residency)
}

func TestDispatchFill(t *testing.T) {
	ctrl := gomock.NewController(t)
	encoder := mock_blit.NewMockEncoder(ctrl)
	dev, manager := deviceWith(t, func(options *config.Options) {
		options.LimitBlitterMaxWidth = 64
		options.LimitBlitterMaxHeight = 2
	})

	var c container.CommandContainer
	_, err := c.Initialize(dev)
	require.NoError(t, err)

	dst := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	pattern := []byte{1, 2, 3, 4}

	var filled uint64
	encoder.EXPECT().FillCommandSize().Return(uint64(24))
	encoder.EXPECT().EncodeFill(gomock.Any(), gomock.Any(), pattern).Do(func(dst []byte, chunk blit.Chunk, pattern []byte) {
		filled += chunk.Bytes()
	}).Times(3)

	dispatcher := blit.NewDispatcher(blit.NewBuilder(dev, nil), encoder, nil, dev.TimestampArena())
	res, err := dispatcher.DispatchFill(blit.ContainerTarget{Container: &c}, dst, 64, pattern, 320)
	require.NoError(t, err)
	require.Equal(t, common.Success, res)
	require.Equal(t, uint64(320), filled)
	require.Equal(t, uint64(3*24), c.CommandStream().Used())
	require.True(t, containsAllocation(c.ResidencyList(), dst))
}

func TestDispatchEnsureSpaceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	encoder := mock_blit.NewMockEncoder(ctrl)
	target := mock_blit.NewMockTarget(ctrl)
	dev, manager := deviceWith(t, nil)

	src := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	dst := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	props, _, err := blit.ForCopy(dst, src, blit.Vec3{}, blit.Vec3{}, blit.Vec3{X: 4096}, 0, 0, 0, 0)
	require.NoError(t, err)

	encoder.EXPECT().CopyCommandSize().Return(uint64(copyCommandSize))
	target.EXPECT().EnsureSpace(uint64(copyCommandSize)).Return(common.ErrorOutOfDeviceMemory, errors.Wrap(common.ErrorOutOfDeviceMemory.ToError(), "no command buffer"))

	dispatcher := blit.NewDispatcher(blit.NewBuilder(dev, nil), encoder, nil, dev.TimestampArena())
	res, err := dispatcher.DispatchCopy(target, props)
	require.Equal(t, common.ErrorOutOfDeviceMemory, res)
	require.Error(t, err)
}

func TestDispatchWithDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	encoder := mock_blit.NewMockEncoder(ctrl)
	waits := mock_timestamp.NewMockWaitEncoder(ctrl)
	dev, manager := deviceWith(t, func(options *config.Options) {
		options.TimestampPacketCount = 2
	})

	var c container.CommandContainer
	_, err := c.Initialize(dev)
	require.NoError(t, err)

	arena := dev.TimestampArena()
	dependencies := timestamp.NewContainer(arena)
	node, _, err := dependencies.AcquireNode()
	require.NoError(t, err)
	node.SetPacketsUsed(2)

	output, _, err := arena.Acquire()
	require.NoError(t, err)

	src := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	dst := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	props, _, err := blit.ForCopy(dst, src, blit.Vec3{}, blit.Vec3{}, blit.Vec3{X: 128}, 0, 0, 0, 0)
	require.NoError(t, err)
	props.Dependencies = dependencies
	props.OutputTimestamp = output

	waits.EXPECT().SemaphoreWaitSize().Return(uint64(16)).AnyTimes()
	waits.EXPECT().AtomicIncrementSize().Return(uint64(12)).AnyTimes()
	encoder.EXPECT().CopyCommandSize().Return(uint64(copyCommandSize)).AnyTimes()
	encoder.EXPECT().TimestampWriteSize().Return(uint64(timestampWriteSize)).AnyTimes()

	outputNode, err := arena.Node(output)
	require.NoError(t, err)

	gomock.InOrder(
		waits.EXPECT().EncodeSemaphoreWait(gomock.Any(), node.ContextEndAddress(0), timestamp.InitValue, timestamp.CompareNotEqual),
		waits.EXPECT().EncodeSemaphoreWait(gomock.Any(), node.ContextEndAddress(1), timestamp.InitValue, timestamp.CompareNotEqual),
		waits.EXPECT().EncodeAtomicIncrement(gomock.Any(), node.ImplicitDependencyCountAddress()),
		encoder.EXPECT().EncodeCopy(gomock.Any(), gomock.Any()),
		encoder.EXPECT().EncodeTimestampWrite(gomock.Len(timestampWriteSize), outputNode.GPUAddress()),
	)

	dispatcher := blit.NewDispatcher(blit.NewBuilder(dev, nil), encoder, waits, dev.TimestampArena())
	res, err := dispatcher.DispatchCopy(blit.ContainerTarget{Container: &c}, props)
	require.NoError(t, err)
	require.Equal(t, common.Success, res)

	require.Equal(t, uint64(2*16+12+copyCommandSize+timestampWriteSize), c.CommandStream().Used())
	require.Equal(t, uint32(1), node.ImplicitCPUDependencies())

	outputAllocation, err := arena.Allocation(output)
	require.NoError(t, err)
	require.True(t, containsAllocation(c.ResidencyList(), outputAllocation))
}

func TestDispatchStaleOutputTimestampEmitsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	encoder := mock_blit.NewMockEncoder(ctrl)
	waits := mock_timestamp.NewMockWaitEncoder(ctrl)
	dev, manager := deviceWith(t, nil)

	var c container.CommandContainer
	_, err := c.Initialize(dev)
	require.NoError(t, err)
	residency := len(c.ResidencyList())

	arena := dev.TimestampArena()
	dependencies := timestamp.NewContainer(arena)
	node, _, err := dependencies.AcquireNode()
	require.NoError(t, err)

	output, _, err := arena.Acquire()
	require.NoError(t, err)
	require.NoError(t, arena.Release(output))

	src := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	dst := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	props, _, err := blit.ForCopy(dst, src, blit.Vec3{}, blit.Vec3{}, blit.Vec3{X: 128}, 0, 0, 0, 0)
	require.NoError(t, err)
	props.Dependencies = dependencies
	props.OutputTimestamp = output

	waits.EXPECT().SemaphoreWaitSize().Return(uint64(16)).AnyTimes()
	waits.EXPECT().AtomicIncrementSize().Return(uint64(12)).AnyTimes()

	dispatcher := blit.NewDispatcher(blit.NewBuilder(dev, nil), encoder, waits, arena)
	res, err := dispatcher.DispatchCopy(blit.ContainerTarget{Container: &c}, props)
	require.Equal(t, common.ErrorInvalidArgument, res)
	require.True(t, errors.Is(err, timestamp.ErrStaleHandle))

	require.Equal(t, uint64(0), c.CommandStream().Used())
	require.Equal(t, uint32(0), node.ImplicitCPUDependencies())
	require.Len(t, c.ResidencyList(), residency)
}

func TestDispatchOutputTimestampWithoutDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	encoder := mock_blit.NewMockEncoder(ctrl)
	dev, manager := deviceWith(t, nil)

	var c container.CommandContainer
	_, err := c.Initialize(dev)
	require.NoError(t, err)

	arena := dev.TimestampArena()
	output, _, err := arena.Acquire()
	require.NoError(t, err)
	outputNode, err := arena.Node(output)
	require.NoError(t, err)
	outputAllocation, err := arena.Allocation(output)
	require.NoError(t, err)

	src := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	dst := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	props, _, err := blit.ForCopy(dst, src, blit.Vec3{}, blit.Vec3{}, blit.Vec3{X: 128}, 0, 0, 0, 0)
	require.NoError(t, err)
	props.OutputTimestamp = output

	encoder.EXPECT().CopyCommandSize().Return(uint64(copyCommandSize))
	encoder.EXPECT().TimestampWriteSize().Return(uint64(timestampWriteSize)).AnyTimes()
	gomock.InOrder(
		encoder.EXPECT().EncodeCopy(gomock.Any(), gomock.Any()),
		encoder.EXPECT().EncodeTimestampWrite(gomock.Len(timestampWriteSize), outputNode.GPUAddress()),
	)

	dispatcher := blit.NewDispatcher(blit.NewBuilder(dev, nil), encoder, nil, arena)
	res, err := dispatcher.DispatchCopy(blit.ContainerTarget{Container: &c}, props)
	require.NoError(t, err)
	require.Equal(t, common.Success, res)
	require.Equal(t, uint64(copyCommandSize+timestampWriteSize), c.CommandStream().Used())
	require.True(t, containsAllocation(c.ResidencyList(), outputAllocation))
}

func TestDispatchOutputTimestampWithoutArena(t *testing.T) {
	ctrl := gomock.NewController(t)
	encoder := mock_blit.NewMockEncoder(ctrl)
	dev, manager := deviceWith(t, nil)

	output, _, err := dev.TimestampArena().Acquire()
	require.NoError(t, err)

	src := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	dst := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	props, _, err := blit.ForCopy(dst, src, blit.Vec3{}, blit.Vec3{}, blit.Vec3{X: 128}, 0, 0, 0, 0)
	require.NoError(t, err)
	props.OutputTimestamp = output

	dispatcher := blit.NewDispatcher(blit.NewBuilder(dev, nil), encoder, nil, nil)
	res, err := dispatcher.DispatchCopy(&blit.QueueTarget{}, props)
	require.Equal(t, common.ErrorInvalidArgument, res)
	require.Error(t, err)
}

func TestDispatchDependenciesWithoutWaitEncoder(t *testing.T) {
	ctrl := gomock.NewController(t)
	encoder := mock_blit.NewMockEncoder(ctrl)
	dev, manager := deviceWith(t, nil)

	var c container.CommandContainer
	_, err := c.Initialize(dev)
	require.NoError(t, err)

	dependencies := timestamp.NewContainer(dev.TimestampArena())
	_, _, err = dependencies.AcquireNode()
	require.NoError(t, err)

	src := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	dst := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	props, _, err := blit.ForCopy(dst, src, blit.Vec3{}, blit.Vec3{}, blit.Vec3{X: 128}, 0, 0, 0, 0)
	require.NoError(t, err)
	props.Dependencies = dependencies

	dispatcher := blit.NewDispatcher(blit.NewBuilder(dev, nil), encoder, nil, dev.TimestampArena())
	res, err := dispatcher.DispatchCopy(blit.ContainerTarget{Container: &c}, props)
	require.Equal(t, common.ErrorInvalidArgument, res)
	require.Error(t, err)
	require.Equal(t, uint64(0), c.CommandStream().Used())
}

func TestDispatchIntoQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	encoder := mock_blit.NewMockEncoder(ctrl)
	dev, manager := deviceWith(t, nil)

	sim, ok := dev.Completion().(*engine.Simulated)
	require.True(t, ok)

	q := queue.New(dev, sim, queue.Options{})
	_, err := q.Initialize(true)
	require.NoError(t, err)

	src := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	dst := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	props, _, err := blit.ForCopy(dst, src, blit.Vec3{}, blit.Vec3{}, blit.Vec3{X: 4096}, 0, 0, 0, 0)
	require.NoError(t, err)

	encoder.EXPECT().CopyCommandSize().Return(uint64(copyCommandSize))
	encoder.EXPECT().EncodeCopy(gomock.Any(), gomock.Any())

	target := &blit.QueueTarget{Queue: q}
	dispatcher := blit.NewDispatcher(blit.NewBuilder(dev, nil), encoder, nil, dev.TimestampArena())
	_, err = dispatcher.DispatchCopy(target, props)
	require.NoError(t, err)
	require.Equal(t, []*memory.Allocation{src, dst}, target.Residency)

	res, err := q.SubmitBatchBuffer(0, target.Residency, copyCommandSize)
	require.NoError(t, err)
	require.Equal(t, common.Success, res)
	require.Equal(t, q.TaskCount(), src.TaskCount())
}
