package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/device"
	"github.com/vkngwrapper/submission/engine"
	"github.com/vkngwrapper/submission/memory"
	"github.com/vkngwrapper/submission/memutils"
	"github.com/vkngwrapper/submission/stream"
	"github.com/vkngwrapper/submission/timestamp"
)

// Options are the scheduling hints attached to every batch a queue submits
type Options struct {
	Throttle    engine.Throttle
	LowPriority bool
}

// CommandQueue owns two alternating command buffers. A buffer is only written again once the
// submission that last used it has retired. CommandQueue is not safe for concurrent use.
type CommandQueue struct {
	logger    *slog.Logger
	device    *device.Device
	submitter engine.Submitter
	options   Options

	copyOnly   bool
	bufferSize uint64
	buffers    [2]*memory.Allocation
	// stamps holds the stamp of the last submission of each buffer, 0 if it was never submitted
	stamps        [2]common.Stamp
	active        int
	commandStream *stream.LinearStream

	taskCount common.Stamp
	sinks     []DiagnosticSink
}

func New(dev *device.Device, submitter engine.Submitter, options Options) *CommandQueue {
	if dev == nil {
		panic("command queue created without a device")
	}
	if submitter == nil {
		panic("command queue created without an execution layer")
	}

	return &CommandQueue{
		logger:    dev.Logger(),
		device:    dev,
		submitter: submitter,
		options:   options,
	}
}

// Initialize allocates and zero-fills both command buffers and positions the command stream at the
// start of the first one
func (q *CommandQueue) Initialize(copyOnly bool) (common.Result, error) {
	if q.commandStream != nil {
		panic("attempting to initialize a command queue that is already initialized")
	}

	q.copyOnly = copyOnly
	q.bufferSize = memutils.AlignUp(q.device.Options().QueueCommandBufferSize+memutils.CommandBufferReservedSize, memutils.PageSize64KB)

	q.logger.Debug("CommandQueue::Initialize", slog.Uint64("BufferSize", q.bufferSize), slog.Bool("CopyOnly", copyOnly))

	pool := q.device.HeapPool()
	for index := range q.buffers {
		allocation, _, err := pool.Obtain(memory.AllocationProperties{
			Type:      memory.AllocationTypeLinearStream,
			Size:      q.bufferSize,
			Alignment: memutils.PageSize64KB,
			Name:      "queue command buffer",
		})
		if err != nil {
			for _, allocated := range q.buffers[:index] {
				pool.StoreForRelease(allocated)
			}
			q.buffers = [2]*memory.Allocation{}

			err = errors.Mark(errors.Wrap(err, "allocating queue command buffer"), common.ErrorOutOfDeviceMemory.ToError())
			q.logger.LogAttrs(context.Background(), slog.LevelError, "CommandQueue::Initialize failed", slog.Any("error", err))
			return common.ErrorOutOfDeviceMemory, err
		}

		clear(allocation.CPUData())
		q.buffers[index] = allocation
	}

	q.active = 0
	q.stamps = [2]common.Stamp{}
	q.commandStream = stream.NewLinearStream(q.buffers[0], memutils.CommandBufferReservedSize)
	return common.Success, nil
}

// ReserveLinearStreamSize makes sure the command stream has at least size bytes left, switching to the
// other buffer if it does not. Switching blocks until the other buffer's last submission has retired.
func (q *CommandQueue) ReserveLinearStreamSize(size uint64) (common.Result, error) {
	if q.commandStream.Available() >= size {
		return common.Success, nil
	}

	if size > q.commandStream.MaxAvailableSpace() {
		return common.ErrorInvalidSize, errors.Wrapf(common.ErrorInvalidSize.ToError(),
			"%d bytes of commands cannot fit in a queue buffer of %d bytes", size, q.commandStream.MaxAvailableSpace())
	}

	next := 1 - q.active
	if stamp := q.stamps[next]; stamp != 0 {
		q.logger.Debug("CommandQueue::ReserveLinearStreamSize waiting", slog.Int("Buffer", next), slog.Uint64("Stamp", uint64(stamp)))

		status := q.submitter.WaitForStamp(stamp, engine.WaitParams{Indefinite: true})
		switch status {
		case engine.WaitReady:
		case engine.WaitGPUHang:
			err := errors.Wrapf(common.ErrorDeviceLost.ToError(), "waiting for stamp %d to switch queue buffers", stamp)
			q.logger.LogAttrs(context.Background(), slog.LevelError, "CommandQueue::ReserveLinearStreamSize failed", slog.Any("error", err))
			return common.ErrorDeviceLost, err
		default:
			return common.ErrorUnknown, errors.Wrapf(common.ErrorUnknown.ToError(), "unbounded wait for stamp %d returned %s", stamp, status)
		}
		q.stamps[next] = 0
	}

	q.active = next
	q.commandStream.Replace(q.buffers[next], memutils.CommandBufferReservedSize)
	return common.Success, nil
}

func (q *CommandQueue) stamp(stamp common.Stamp, buffer *memory.Allocation, residency []*memory.Allocation, timestamps []*timestamp.Container) error {
	buffer.UpdateTaskCount(stamp)
	for _, allocation := range residency {
		allocation.UpdateTaskCount(stamp)
	}

	var errs error
	for _, container := range timestamps {
		errs = errors.CombineErrors(errs, container.SetTaskCount(stamp))
	}
	return errs
}

// SubmitBatchBuffer submits the active buffer starting at offset. The buffer, every residency
// allocation and every node of timestamps are stamped with the submission's task count before it is
// handed to the execution layer, so that nodes written by the batch can be released once it retires.
func (q *CommandQueue) SubmitBatchBuffer(offset uint64, residency []*memory.Allocation, endingCommandOffset uint64, timestamps ...*timestamp.Container) (common.Result, error) {
	buffer := q.buffers[q.active]

	if offset > q.commandStream.Used() {
		return common.ErrorInvalidArgument, errors.Wrapf(common.ErrorInvalidArgument.ToError(),
			"batch start offset %d is past the %d bytes written", offset, q.commandStream.Used())
	}

	pending := q.submitter.PeekTaskCount()
	err := q.stamp(pending, buffer, residency, timestamps)
	if err != nil {
		return common.ErrorInvalidArgument, errors.Mark(errors.Wrap(err, "stamping timestamp nodes"), common.ErrorInvalidArgument.ToError())
	}

	submitResidency := make([]*memory.Allocation, 0, len(residency)+1)
	submitResidency = append(submitResidency, residency...)
	submitResidency = append(submitResidency, buffer)

	batch := &engine.BatchBuffer{
		CommandBuffer:       buffer,
		StartOffset:         offset,
		UsedSize:            q.commandStream.Used(),
		EndingCommandOffset: endingCommandOffset,
		Throttle:            q.options.Throttle,
		LowPriority:         q.options.LowPriority,
		CopyOnly:            q.copyOnly,
	}

	stamp, err := q.submitter.Submit(batch, submitResidency)
	if err != nil {
		q.logger.LogAttrs(context.Background(), slog.LevelError, "CommandQueue::SubmitBatchBuffer failed", slog.Any("error", err))
		return common.ResultFromError(err), err
	}

	if stamp != pending {
		err = q.stamp(stamp, buffer, residency, timestamps)
		if err != nil {
			q.logger.LogAttrs(context.Background(), slog.LevelError, "CommandQueue::SubmitBatchBuffer restamp failed", slog.Any("error", err))
		}
	}

	q.stamps[q.active] = stamp
	q.taskCount = stamp

	q.logger.Debug("CommandQueue::SubmitBatchBuffer", slog.Int("Buffer", q.active), slog.Uint64("Stamp", uint64(stamp)))
	return common.Success, nil
}

// Synchronize waits until the queue's last submission retires. common.InfiniteTimeout waits without a
// bound. NotReady is returned when the timeout expires first. Once the submission has retired the heap
// pool's release list is swept and every registered diagnostic sink is drained.
func (q *CommandQueue) Synchronize(timeoutMicroseconds uint64) (common.Result, error) {
	target := q.taskCount

	if target != 0 {
		start := time.Now()
		status := q.submitter.WaitForStamp(target, engine.WaitParamsFromMicroseconds(timeoutMicroseconds))

		q.logger.Debug("CommandQueue::Synchronize",
			slog.Uint64("Stamp", uint64(target)),
			slog.String("Status", status.String()),
			slog.Duration("Waited", time.Since(start)),
		)

		switch status {
		case engine.WaitNotReady:
			return common.NotReady, nil
		case engine.WaitGPUHang:
			err := errors.Wrapf(common.ErrorDeviceLost.ToError(), "synchronizing on stamp %d", target)
			q.logger.LogAttrs(context.Background(), slog.LevelError, "CommandQueue::Synchronize failed", slog.Any("error", err))
			return common.ErrorDeviceLost, err
		}
	}

	q.device.HeapPool().Sweep()

	var drainErr error
	for _, sink := range q.sinks {
		drainErr = errors.CombineErrors(drainErr, sink.Drain())
	}
	if drainErr != nil {
		return common.ErrorUnknown, errors.Mark(errors.Wrap(drainErr, "draining diagnostic output"), common.ErrorUnknown.ToError())
	}

	return common.Success, nil
}

// RegisterDiagnosticSink adds a sink drained by every successful Synchronize
func (q *CommandQueue) RegisterDiagnosticSink(sink DiagnosticSink) {
	q.sinks = append(q.sinks, sink)
}

func (q *CommandQueue) CommandStream() *stream.LinearStream {
	return q.commandStream
}

// TaskCount is the stamp of the queue's last submission
func (q *CommandQueue) TaskCount() common.Stamp {
	return q.taskCount
}

// ActiveBuffer is the index, 0 or 1, of the buffer the command stream writes to
func (q *CommandQueue) ActiveBuffer() int {
	return q.active
}

// BufferStamp is the stamp of the last submission of a buffer that has not been waited on yet
func (q *CommandQueue) BufferStamp(index int) common.Stamp {
	return q.stamps[index]
}

func (q *CommandQueue) Buffers() [2]*memory.Allocation {
	return q.buffers
}

// Destroy hands both buffers to the device's heap pool, they are freed once their last submission retires
func (q *CommandQueue) Destroy() {
	if q.commandStream == nil {
		return
	}

	pool := q.device.HeapPool()
	for index, buffer := range q.buffers {
		if buffer != nil {
			pool.StoreForRelease(buffer)
			q.buffers[index] = nil
		}
	}
	q.commandStream = nil
	q.sinks = nil
}
