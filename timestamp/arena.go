package timestamp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/internal/utils"
	"github.com/vkngwrapper/submission/memory"
)

// ErrStaleHandle is returned when a handle refers to a node that has been released and possibly reused
var ErrStaleHandle = errors.New("stale timestamp node handle")

// Handle addresses a node in an Arena. The generation is bumped every time the node returns to the free
// list, so handles to a released node are detected rather than aliasing the node's next owner.
type Handle struct {
	index      uint32
	generation uint32
}

// IsValid returns false for the zero Handle
func (h Handle) IsValid() bool {
	return h.generation != 0
}

func (h Handle) String() string {
	return fmt.Sprintf("TimestampNode(%d@%d)", h.index, h.generation)
}

// CompletionSource reports the highest retired completion stamp
type CompletionSource interface {
	CompletedStamp() common.Stamp
}

// ArenaOptions configures an Arena
type ArenaOptions struct {
	PacketCount  uint32
	TagsPerChunk uint32
	// CompletionTracking enables reading packet contents to decide that a node completed
	CompletionTracking bool
	// Completion, when set, also lets deferred nodes go once the stamp recorded with SetTaskCount retires
	Completion CompletionSource
	// ExternallySynchronized skips locking, the caller guarantees that the arena is never used from two
	// goroutines at once
	ExternallySynchronized bool
}

// Arena is a chunked pool of timestamp nodes shared by every container and queue of a device. Nodes are
// reference counted; a node whose count reaches zero returns to the free list if it completed and is
// otherwise parked on a deferred list that is swept on later acquires and releases. Arena is safe for
// concurrent use unless it was created ExternallySynchronized.
type Arena struct {
	logger  *slog.Logger
	manager memory.Manager
	options ArenaOptions

	nodeSize uint64

	mutex    utils.OptionalMutex
	chunks   []*memory.Allocation
	slots    []*slot
	free     []uint32
	deferred []uint32

	sweepMutex utils.OptionalMutex
}

func NewArena(logger *slog.Logger, manager memory.Manager, options ArenaOptions) *Arena {
	if options.PacketCount == 0 {
		panic("timestamp arena created with a packet count of 0")
	}
	if options.TagsPerChunk == 0 {
		panic("timestamp arena created with 0 tags per chunk")
	}

	return &Arena{
		logger:     logger,
		manager:    manager,
		options:    options,
		nodeSize:   NodeSize(options.PacketCount),
		mutex:      utils.OptionalMutex{UseMutex: !options.ExternallySynchronized},
		sweepMutex: utils.OptionalMutex{UseMutex: !options.ExternallySynchronized},
	}
}

func (a *Arena) PacketCount() uint32 {
	return a.options.PacketCount
}

func (a *Arena) NodeSize() uint64 {
	return a.nodeSize
}

func (a *Arena) CompletionTracking() bool {
	return a.options.CompletionTracking
}

func (a *Arena) populateLocked() (common.Result, error) {
	chunkSize := a.nodeSize * uint64(a.options.TagsPerChunk)
	allocation, err := a.manager.Allocate(memory.AllocationProperties{
		Type: memory.AllocationTypeTimestampPacketTagBuffer,
		Size: chunkSize,
		Name: fmt.Sprintf("timestamp chunk %d", len(a.chunks)),
	})
	if err != nil {
		a.logger.LogAttrs(context.Background(), slog.LevelError, "Arena::populate failed", slog.Any("error", err))
		return common.ErrorOutOfDeviceMemory, errors.Mark(errors.Wrap(err, "allocating timestamp chunk"), common.ErrorOutOfDeviceMemory.ToError())
	}

	chunk := len(a.chunks)
	a.chunks = append(a.chunks, allocation)

	data := allocation.CPUData()
	firstIndex := uint32(len(a.slots))
	for i := uint32(0); i < a.options.TagsPerChunk; i++ {
		offset := uint64(i) * a.nodeSize
		a.slots = append(a.slots, &slot{
			generation: 1,
			chunk:      chunk,
			data:       data[offset : offset+a.nodeSize : offset+a.nodeSize],
			gpuAddress: allocation.GPUAddress() + offset,
		})
	}

	// Pushed in reverse so that nodes come out of the free list in address order
	for i := a.options.TagsPerChunk; i > 0; i-- {
		a.free = append(a.free, firstIndex+i-1)
	}

	a.logger.Debug("Arena::populate", slog.Int("Chunk", chunk), slog.Uint64("Size", chunkSize))
	return common.Success, nil
}

func (a *Arena) nodeFor(index uint32) Node {
	s := a.slots[index]
	return Node{
		handle:      Handle{index: index, generation: s.generation},
		slot:        s,
		packetCount: a.options.PacketCount,
		tracking:    a.options.CompletionTracking,
	}
}

// Acquire takes a node off the free list, sweeping deferred nodes and then growing the arena by one
// chunk when the free list is empty. The node starts with a reference count of 1 and every packet field
// set to InitValue.
func (a *Arena) Acquire() (Handle, common.Result, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if len(a.free) == 0 {
		a.releaseDeferredLocked()
	}

	if len(a.free) == 0 {
		res, err := a.populateLocked()
		if err != nil {
			return Handle{}, res, err
		}
	}

	index := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]

	s := a.slots[index]
	s.state = slotUsed
	s.refCount.Store(1)
	s.initialize(a.options.PacketCount)

	return Handle{index: index, generation: s.generation}, common.Success, nil
}

func (a *Arena) lookupLocked(handle Handle) (*slot, error) {
	if !handle.IsValid() || int(handle.index) >= len(a.slots) {
		return nil, errors.Wrapf(ErrStaleHandle, "%s does not belong to this arena", handle)
	}

	s := a.slots[handle.index]
	if s.generation != handle.generation || s.state != slotUsed {
		return nil, errors.Wrapf(ErrStaleHandle, "%s was released", handle)
	}

	return s, nil
}

// Node returns the view of a live node
func (a *Arena) Node(handle Handle) (Node, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	_, err := a.lookupLocked(handle)
	if err != nil {
		return Node{}, err
	}
	return a.nodeFor(handle.index), nil
}

// Retain adds a reference to a live node
func (a *Arena) Retain(handle Handle) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	s, err := a.lookupLocked(handle)
	if err != nil {
		return err
	}
	s.refCount.Add(1)
	return nil
}

func (a *Arena) canBeReleased(node Node) bool {
	if node.slot.doNotRelease.Load() {
		return false
	}
	if node.IsCompleted() {
		return true
	}
	if a.options.Completion != nil {
		taskCount := node.TaskCount()
		return taskCount != 0 && a.options.Completion.CompletedStamp() >= taskCount
	}
	return false
}

func (a *Arena) freeLocked(index uint32) {
	s := a.slots[index]
	s.state = slotFree
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	a.free = append(a.free, index)
}

// Release drops a reference. When the last reference goes the node returns to the free list if it
// completed and is deferred otherwise. A non-blocking sweep of the deferred list follows.
func (a *Arena) Release(handle Handle) error {
	a.mutex.Lock()
	s, err := a.lookupLocked(handle)
	if err != nil {
		a.mutex.Unlock()
		return err
	}

	if s.refCount.Add(-1) > 0 {
		a.mutex.Unlock()
		return nil
	}

	if a.canBeReleased(a.nodeFor(handle.index)) {
		a.freeLocked(handle.index)
	} else {
		s.state = slotDeferred
		a.deferred = append(a.deferred, handle.index)
	}
	a.mutex.Unlock()

	if a.sweepMutex.TryLock() {
		a.ReleaseDeferred()
		a.sweepMutex.Unlock()
	}

	return nil
}

func (a *Arena) releaseDeferredLocked() int {
	released := 0
	pending := a.deferred[:0]
	for _, index := range a.deferred {
		if a.canBeReleased(a.nodeFor(index)) {
			a.freeLocked(index)
			released++
			continue
		}
		pending = append(pending, index)
	}
	a.deferred = pending
	return released
}

// ReleaseDeferred moves every deferred node that has since completed to the free list and returns how
// many were moved
func (a *Arena) ReleaseDeferred() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.releaseDeferredLocked()
}

// ReclaimAll frees every deferred node regardless of completion. The caller must know the GPU is idle.
func (a *Arena) ReclaimAll() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, index := range a.deferred {
		a.freeLocked(index)
	}
	count := len(a.deferred)
	a.deferred = a.deferred[:0]
	return count
}

// Allocations returns the chunk allocations that back the arena, for residency
func (a *Arena) Allocations() []*memory.Allocation {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return append([]*memory.Allocation(nil), a.chunks...)
}

func (a *Arena) allocationForSlot(index uint32) *memory.Allocation {
	return a.chunks[a.slots[index].chunk]
}

// Allocation returns the chunk allocation holding a live node
func (a *Arena) Allocation(handle Handle) (*memory.Allocation, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	_, err := a.lookupLocked(handle)
	if err != nil {
		return nil, err
	}
	return a.allocationForSlot(handle.index), nil
}

// Counts returns the number of free, used, and deferred nodes
func (a *Arena) Counts() (free, used, deferred int) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	free = len(a.free)
	deferred = len(a.deferred)
	used = len(a.slots) - free - deferred
	return free, used, deferred
}

func (a *Arena) WriteStats(writer *jwriter.Writer) {
	free, used, deferred := a.Counts()

	o := writer.Object()
	defer o.End()

	o.Name("PacketCount").Int(int(a.options.PacketCount))
	o.Name("NodeSize").Int(int(a.nodeSize))
	o.Name("Chunks").Int(len(a.Allocations()))
	o.Name("Free").Int(free)
	o.Name("Used").Int(used)
	o.Name("Deferred").Int(deferred)
}

// Destroy frees every chunk. Handles must not be used afterwards.
func (a *Arena) Destroy() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, chunk := range a.chunks {
		a.manager.Free(chunk)
	}
	a.chunks = nil
	a.slots = nil
	a.free = nil
	a.deferred = nil
}
