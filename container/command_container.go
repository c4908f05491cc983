package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/device"
	"github.com/vkngwrapper/submission/heap"
	"github.com/vkngwrapper/submission/memory"
	"github.com/vkngwrapper/submission/memutils"
	"github.com/vkngwrapper/submission/stream"
	"github.com/vkngwrapper/submission/timestamp"
)

// ChainingEncoder writes the command that jumps from the end of a full command buffer to the start of
// the next one. dst is the reserved tail of the full buffer.
type ChainingEncoder func(dst []byte, nextBufferAddress uint64)

// ProgrammedState caches the last hardware state programmed through a container so that consumers can
// skip redundant state commands. Valid is false after Initialize and Reset.
type ProgrammedState struct {
	Valid                      bool
	SLMSize                    uint32
	PipelineSelectModeRequired bool
	GlobalAtomics              bool
}

// CommandContainer owns a chain of command buffers and one heap of each kind. It is not safe for
// concurrent use.
type CommandContainer struct {
	logger *slog.Logger
	device *device.Device

	commandBufferSize uint64
	commandBuffers    []*memory.Allocation
	commandStream     *stream.LinearStream

	heaps      [heap.NumKinds]*heap.IndirectHeap
	dirtyHeaps uint32

	residency    []*memory.Allocation
	residencySet *swiss.Map[uint64, struct{}]
	deallocation []*memory.Allocation
	timestamps   []*timestamp.Container

	lastState ProgrammedState
}

// Initialize allocates the first command buffer and the container's heaps. Bindless devices only get
// an indirect-object heap. Every allocation is registered for residency.
func (c *CommandContainer) Initialize(dev *device.Device) (res common.Result, err error) {
	if dev == nil {
		panic("command container initialized without a device")
	}
	if c.device != nil {
		panic("attempting to initialize a command container that is already initialized")
	}

	c.device = dev
	c.logger = dev.Logger()
	c.residencySet = swiss.NewMap[uint64, struct{}](42)

	options := dev.Options()
	c.commandBufferSize = memutils.AlignUp(options.ContainerCommandBufferSize+memutils.CommandBufferReservedSize, memutils.PageSize64KB)

	c.logger.Debug("CommandContainer::Initialize", slog.Uint64("CommandBufferSize", c.commandBufferSize), slog.Bool("Bindless", options.Bindless))

	defer func() {
		if err != nil {
			c.logger.LogAttrs(context.Background(), slog.LevelError, "CommandContainer::Initialize failed", slog.Any("error", err))
			c.releaseAll(dev.MemoryManager().Free)
			c.device = nil
		}
	}()

	commandBuffer, err := c.allocateCommandBuffer()
	if err != nil {
		return common.ErrorOutOfDeviceMemory, err
	}
	c.commandBuffers = append(c.commandBuffers, commandBuffer)
	c.commandStream = stream.NewLinearStream(commandBuffer, memutils.CommandBufferReservedSize)
	c.AddToResidency(commandBuffer)

	for kind := heap.Kind(0); kind < heap.NumKinds; kind++ {
		if options.Bindless && kind != heap.KindIndirectObject {
			continue
		}

		allocation, _, err := c.obtainHeapAllocation(kind, options.HeapSize())
		if err != nil {
			return common.ErrorOutOfDeviceMemory, err
		}

		c.heaps[kind] = heap.NewIndirectHeap(kind, allocation)
		c.applyPrologue(kind)
		c.AddToResidency(allocation)
	}

	c.SetDirtyStateForAllHeaps(true)
	c.lastState = ProgrammedState{}
	return common.Success, nil
}

func (c *CommandContainer) allocateCommandBuffer() (*memory.Allocation, error) {
	allocation, _, err := c.device.HeapPool().Obtain(memory.AllocationProperties{
		Type:      memory.AllocationTypeCommandBuffer,
		Size:      c.commandBufferSize,
		Alignment: memutils.PageSize64KB,
		Name:      "command buffer",
	})
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "allocating command buffer"), common.ErrorOutOfDeviceMemory.ToError())
	}
	return allocation, nil
}

func (c *CommandContainer) obtainHeapAllocation(kind heap.Kind, size uint64) (*memory.Allocation, bool, error) {
	allocation, reused, err := c.device.HeapPool().Obtain(memory.AllocationProperties{
		Type:      kind.AllocationType(),
		Size:      memutils.AlignUp(size, memutils.PageSize),
		Alignment: c.device.Capabilities().HeapAlignment,
		Name:      kind.String(),
	})
	if err != nil {
		return nil, false, errors.Mark(errors.Wrapf(err, "allocating %s of %d bytes", kind, size), common.ErrorOutOfDeviceMemory.ToError())
	}
	return allocation, reused, nil
}

// reservedSize is the number of bytes every heap of kind holds back from its start
func (c *CommandContainer) reservedSize(kind heap.Kind) uint64 {
	if kind == heap.KindSurfaceState {
		return c.device.SurfaceStatePrologueSize()
	}
	return 0
}

func (c *CommandContainer) applyPrologue(kind heap.Kind) {
	reserved := c.reservedSize(kind)
	if reserved > 0 {
		c.heaps[kind].GetSpace(reserved)
	}
}

func (c *CommandContainer) activeHeap(kind heap.Kind) *heap.IndirectHeap {
	if kind < 0 || kind >= heap.NumKinds {
		panic(fmt.Sprintf("invalid heap kind %d", kind))
	}
	h := c.heaps[kind]
	if h == nil {
		panic(fmt.Sprintf("command container has no %s", kind))
	}
	return h
}

// growHeap swaps the heap's allocation for a larger one able to serve required bytes once the prologue
// has been reapplied. The surrendered allocation is passed to surrender.
func (c *CommandContainer) growHeap(kind heap.Kind, required uint64, surrender func(*memory.Allocation)) (common.Result, error) {
	h := c.heaps[kind]

	newSize := 2 * (h.Used() + h.Available())
	if grown := h.Available() + required; grown > newSize {
		newSize = grown
	}
	if minimum := c.reservedSize(kind) + required; minimum > newSize {
		newSize = minimum
	}
	newSize = memutils.AlignUp(newSize, memutils.PageSize)
	memutils.DebugCheckPow2(c.device.Capabilities().HeapAlignment, "heap alignment")

	c.logger.Debug("CommandContainer::growHeap",
		slog.String("Kind", kind.String()),
		slog.Uint64("OldSize", h.Size()),
		slog.Uint64("NewSize", newSize),
	)

	newAllocation, _, err := c.obtainHeapAllocation(kind, newSize)
	if err != nil {
		c.logger.LogAttrs(context.Background(), slog.LevelError, "CommandContainer::growHeap failed", slog.Any("error", err))
		return common.ErrorOutOfDeviceMemory, err
	}

	oldAllocation := h.Allocation()
	oldBase := h.GPUBase()

	h.ReplaceAllocation(newAllocation)
	c.applyPrologue(kind)

	c.AddToResidency(newAllocation)
	surrender(oldAllocation)

	if oldBase != h.GPUBase() {
		c.SetHeapDirty(kind)
	}

	return common.Success, nil
}

// HeapSpaceAllowGrow returns size writable bytes of a heap and their offset from the heap base. When the
// heap is too small it is replaced by one at least twice as large and the old allocation moves to the
// deallocation list.
func (c *CommandContainer) HeapSpaceAllowGrow(kind heap.Kind, size uint64) ([]byte, uint64, common.Result, error) {
	h := c.activeHeap(kind)

	if h.Available() < size {
		res, err := c.growHeap(kind, size, func(old *memory.Allocation) {
			c.deallocation = append(c.deallocation, old)
		})
		if err != nil {
			return nil, 0, res, err
		}
	}

	offset := h.Used()
	return h.GetSpace(size), offset, common.Success, nil
}

// HeapWithRequiredSizeAndAlignment returns the heap of kind with its cursor aligned to alignment and at
// least size bytes available, growing it if needed. Surrendered allocations go to the device's heap pool
// for reuse.
func (c *CommandContainer) HeapWithRequiredSizeAndAlignment(kind heap.Kind, size, alignment uint64) (*heap.IndirectHeap, common.Result, error) {
	h := c.activeHeap(kind)

	if alignment == 0 {
		alignment = 1
	}
	err := memutils.CheckPow2(alignment, "heap alignment")
	if err != nil {
		return nil, common.ErrorInvalidArgument, errors.Mark(err, common.ErrorInvalidArgument.ToError())
	}

	if h.Available() < size+h.AlignmentPadding(alignment) {
		pool := c.device.HeapPool()
		res, err := c.growHeap(kind, size+alignment, pool.StoreForReuse)
		if err != nil {
			return nil, res, err
		}
	}

	h.Align(alignment)
	return h, common.Success, nil
}

// Heap returns the active heap of kind, or nil if the container has none (bindless)
func (c *CommandContainer) Heap(kind heap.Kind) *heap.IndirectHeap {
	return c.heaps[kind]
}

func (c *CommandContainer) CommandStream() *stream.LinearStream {
	return c.commandStream
}

// CommandBuffers returns every command buffer in chain order
func (c *CommandContainer) CommandBuffers() []*memory.Allocation {
	return c.commandBuffers
}

// AllocateNextCommandBuffer switches the command stream to a fresh buffer. Bytes written to the previous
// buffer are not copied: the caller must already have closed it.
func (c *CommandContainer) AllocateNextCommandBuffer() (common.Result, error) {
	allocation, err := c.allocateCommandBuffer()
	if err != nil {
		c.logger.LogAttrs(context.Background(), slog.LevelError, "CommandContainer::AllocateNextCommandBuffer failed", slog.Any("error", err))
		return common.ErrorOutOfDeviceMemory, err
	}

	c.commandBuffers = append(c.commandBuffers, allocation)
	c.commandStream.Replace(allocation, memutils.CommandBufferReservedSize)
	c.AddToResidency(allocation)
	return common.Success, nil
}

// CloseAndAllocateNextCommandBuffer allocates the next buffer, lets chain write the jump to it into the
// reserved tail of the current buffer, and switches to it
func (c *CommandContainer) CloseAndAllocateNextCommandBuffer(chain ChainingEncoder) (common.Result, error) {
	current := c.commandStream

	allocation, err := c.allocateCommandBuffer()
	if err != nil {
		c.logger.LogAttrs(context.Background(), slog.LevelError, "CommandContainer::CloseAndAllocateNextCommandBuffer failed", slog.Any("error", err))
		return common.ErrorOutOfDeviceMemory, err
	}

	if chain != nil {
		chain(current.ReservedSpace(), allocation.GPUAddress())
	}

	c.commandBuffers = append(c.commandBuffers, allocation)
	current.Replace(allocation, memutils.CommandBufferReservedSize)
	c.AddToResidency(allocation)
	return common.Success, nil
}

// EnsureCommandBufferSpace chains to a new buffer when the current one has fewer than size bytes left
func (c *CommandContainer) EnsureCommandBufferSpace(size uint64, chain ChainingEncoder) (common.Result, error) {
	if c.commandStream.Available() >= size {
		return common.Success, nil
	}

	if size > c.commandStream.MaxAvailableSpace() {
		return common.ErrorInvalidSize, errors.Wrapf(common.ErrorInvalidSize.ToError(),
			"%d bytes of commands cannot fit in a command buffer of %d bytes", size, c.commandStream.MaxAvailableSpace())
	}

	return c.CloseAndAllocateNextCommandBuffer(chain)
}

// AddToResidency registers an allocation that must be resident when the container's buffers run. An
// allocation is registered at most once.
func (c *CommandContainer) AddToResidency(allocation *memory.Allocation) {
	if allocation == nil {
		return
	}
	if c.residencySet.Has(allocation.ID()) {
		return
	}
	c.residencySet.Put(allocation.ID(), struct{}{})
	c.residency = append(c.residency, allocation)
}

func (c *CommandContainer) ResidencyList() []*memory.Allocation {
	return c.residency
}

// DeallocationList holds heap allocations surrendered by growth, they are released once the
// container's submissions retire
func (c *CommandContainer) DeallocationList() []*memory.Allocation {
	return c.deallocation
}

func (c *CommandContainer) IsHeapDirty(kind heap.Kind) bool {
	return c.dirtyHeaps&(1<<uint32(kind)) != 0
}

func (c *CommandContainer) SetHeapDirty(kind heap.Kind) {
	c.dirtyHeaps |= 1 << uint32(kind)
}

func (c *CommandContainer) ClearHeapDirty(kind heap.Kind) {
	c.dirtyHeaps &^= 1 << uint32(kind)
}

func (c *CommandContainer) DirtyHeaps() uint32 {
	return c.dirtyHeaps
}

func (c *CommandContainer) SetDirtyStateForAllHeaps(dirty bool) {
	if dirty {
		c.dirtyHeaps = (1 << uint32(heap.NumKinds)) - 1
	} else {
		c.dirtyHeaps = 0
	}
}

func (c *CommandContainer) LastProgrammedState() ProgrammedState {
	return c.lastState
}

func (c *CommandContainer) SetLastProgrammedState(state ProgrammedState) {
	state.Valid = true
	c.lastState = state
}

// TrackTimestamps registers timestamp containers whose nodes are written by the commands recorded in
// this container. Registrations last until Reset.
func (c *CommandContainer) TrackTimestamps(containers ...*timestamp.Container) {
	c.timestamps = append(c.timestamps, containers...)
}

func (c *CommandContainer) TrackedTimestamps() []*timestamp.Container {
	return c.timestamps
}

// UpdateTaskCount stamps every allocation the container references, and every node of its tracked
// timestamp containers, with the stamp of the submission that executes it
func (c *CommandContainer) UpdateTaskCount(stamp common.Stamp) error {
	for _, allocation := range c.residency {
		allocation.UpdateTaskCount(stamp)
	}
	for _, allocation := range c.deallocation {
		allocation.UpdateTaskCount(stamp)
	}

	var errs error
	for _, container := range c.timestamps {
		errs = errors.CombineErrors(errs, container.SetTaskCount(stamp))
	}
	return errs
}

// Reset returns the container to its initialized shape: one command buffer, every heap rewound to its
// prologue and marked dirty, empty residency and deallocation lists, and no cached state. Extra command
// buffers and surrendered heaps are released once the GPU is done with them.
func (c *CommandContainer) Reset() {
	c.logger.Debug("CommandContainer::Reset", slog.Int("CommandBuffers", len(c.commandBuffers)), slog.Int("Deallocations", len(c.deallocation)))

	pool := c.device.HeapPool()

	for _, allocation := range c.commandBuffers[1:] {
		pool.StoreForRelease(allocation)
	}
	for i := 1; i < len(c.commandBuffers); i++ {
		c.commandBuffers[i] = nil
	}
	c.commandBuffers = c.commandBuffers[:1]

	for _, allocation := range c.deallocation {
		pool.StoreForRelease(allocation)
	}
	c.deallocation = nil

	c.residency = nil
	c.residencySet.Clear()
	c.timestamps = nil

	c.commandStream.Replace(c.commandBuffers[0], memutils.CommandBufferReservedSize)
	c.AddToResidency(c.commandBuffers[0])

	for kind, h := range c.heaps {
		if h == nil {
			continue
		}
		h.Rewind()
		c.applyPrologue(heap.Kind(kind))
		c.AddToResidency(h.Allocation())
	}

	c.SetDirtyStateForAllHeaps(true)
	c.lastState = ProgrammedState{}
}

func (c *CommandContainer) releaseAll(release func(*memory.Allocation)) {
	for _, allocation := range c.commandBuffers {
		release(allocation)
	}
	for kind, h := range c.heaps {
		if h != nil {
			release(h.Allocation())
			c.heaps[kind] = nil
		}
	}
	for _, allocation := range c.deallocation {
		release(allocation)
	}

	c.commandBuffers = nil
	c.commandStream = nil
	c.deallocation = nil
	c.residency = nil
	c.timestamps = nil
	if c.residencySet != nil {
		c.residencySet.Clear()
	}
}

// Destroy hands every allocation back to the device's heap pool for release
func (c *CommandContainer) Destroy() {
	if c.device == nil {
		return
	}

	c.releaseAll(c.device.HeapPool().StoreForRelease)
	c.device = nil
}

func (c *CommandContainer) WriteStats(writer *jwriter.Writer) {
	o := writer.Object()
	defer o.End()

	o.Name("CommandBuffers").Int(len(c.commandBuffers))
	o.Name("CommandBufferSize").Float64(float64(c.commandBufferSize))
	if c.commandStream != nil {
		o.Name("CommandStreamUsed").Float64(float64(c.commandStream.Used()))
	}
	o.Name("Residency").Int(len(c.residency))
	o.Name("Deallocations").Int(len(c.deallocation))

	heaps := o.Name("Heaps").Array()
	for _, h := range c.heaps {
		if h == nil {
			continue
		}
		heapObj := heaps.Object()
		heapObj.Name("Kind").String(h.Kind().String())
		heapObj.Name("Size").Float64(float64(h.Size()))
		heapObj.Name("Used").Float64(float64(h.Used()))
		heapObj.Name("Dirty").Bool(c.IsHeapDirty(h.Kind()))
		heapObj.End()
	}
	heaps.End()
}
