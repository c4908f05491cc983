package memory

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/internal/utils"
	"github.com/vkngwrapper/submission/memutils"
)

const (
	defaultAddressSpaceBase uint64 = 0x0000_8000_0000_0000
	defaultAddressSpaceSize uint64 = 1 << 40
)

// HostManagerOptions configures a HostManager
type HostManagerOptions struct {
	// AddressSpaceBase is the lowest GPU virtual address handed out. Defaults to 0x800000000000.
	AddressSpaceBase uint64
	// AddressSpaceSize is the size of the simulated GPU virtual address space. Defaults to 1TB.
	AddressSpaceSize uint64
	// Budget is the maximum number of bytes that may be allocated at once. 0 means unlimited.
	Budget uint64
	// MemoryCallbacks are invoked after every allocation and free
	MemoryCallbacks *MemoryCallbackOptions
	// ExternallySynchronized skips locking, the caller guarantees that the manager is never used from
	// two goroutines at once
	ExternallySynchronized bool
}

// HostManager is a Manager backed by host memory with a simulated GPU virtual address space. It is safe
// for concurrent use unless it was created ExternallySynchronized.
type HostManager struct {
	logger *slog.Logger

	budget          uint64
	allocatedBytes  atomic.Uint64
	nextID          atomic.Uint64
	memoryCallbacks *MemoryCallbackOptions

	mutex        utils.OptionalRWMutex
	addressSpace *addressSpace
	live         *swiss.Map[uint64, *Allocation]
}

var _ Manager = &HostManager{}

func NewHostManager(logger *slog.Logger, options HostManagerOptions) *HostManager {
	if options.AddressSpaceBase == 0 {
		options.AddressSpaceBase = defaultAddressSpaceBase
	}
	if options.AddressSpaceSize == 0 {
		options.AddressSpaceSize = defaultAddressSpaceSize
	}

	return &HostManager{
		logger:          logger,
		budget:          options.Budget,
		memoryCallbacks: options.MemoryCallbacks,
		mutex:           utils.OptionalRWMutex{UseMutex: !options.ExternallySynchronized},
		addressSpace:    newAddressSpace(options.AddressSpaceBase, options.AddressSpaceSize),
		live:            swiss.NewMap[uint64, *Allocation](42),
	}
}

func (m *HostManager) reserveBudget(size uint64) (common.Result, error) {
	if m.budget == 0 {
		m.allocatedBytes.Add(size)
		return common.Success, nil
	}

	for {
		currentVal := m.allocatedBytes.Load()
		targetVal := currentVal + size

		if targetVal > m.budget {
			return common.ErrorOutOfDeviceMemory, errors.Wrapf(common.ErrorOutOfDeviceMemory.ToError(),
				"allocating %d bytes would exceed the memory budget of %d bytes (%d in use)", size, m.budget, currentVal)
		}

		if m.allocatedBytes.CompareAndSwap(currentVal, targetVal) {
			return common.Success, nil
		}
	}
}

func (m *HostManager) Allocate(properties AllocationProperties) (*Allocation, error) {
	m.logger.Debug("HostManager::Allocate", slog.String("Type", properties.Type.String()), slog.Uint64("Size", properties.Size))

	if properties.Size == 0 {
		return nil, errors.Wrap(common.ErrorInvalidArgument.ToError(), "allocation size must be greater than 0")
	}

	if properties.Alignment == 0 {
		properties.Alignment = memutils.PageSize
	}
	err := memutils.CheckPow2(properties.Alignment, "allocation alignment")
	if err != nil {
		return nil, errors.Mark(err, common.ErrorInvalidArgument.ToError())
	}

	var data []byte
	if properties.Type == AllocationTypeExternalHostPtr {
		if uint64(len(properties.HostMemory)) < properties.Size {
			return nil, errors.Wrapf(common.ErrorInvalidArgument.ToError(),
				"external host memory is %d bytes but the allocation requires %d", len(properties.HostMemory), properties.Size)
		}
		data = properties.HostMemory
	}

	_, err = m.reserveBudget(properties.Size)
	if err != nil {
		m.logger.LogAttrs(context.Background(), slog.LevelError, "HostManager::Allocate budget exceeded", slog.Any("error", err))
		return nil, err
	}

	m.mutex.Lock()
	gpuAddress, ok := m.addressSpace.allocate(properties.Size, properties.Alignment)
	m.mutex.Unlock()

	if !ok {
		m.allocatedBytes.Add(^(properties.Size - 1))
		return nil, errors.Wrapf(common.ErrorOutOfDeviceMemory.ToError(), "no GPU address range of %d bytes is available", properties.Size)
	}

	if data == nil {
		data = make([]byte, properties.Size)
	}

	allocation := NewAllocation(m.nextID.Add(1), properties, gpuAddress, data)

	m.mutex.Lock()
	m.live.Put(allocation.ID(), allocation)
	m.mutex.Unlock()

	if m.memoryCallbacks != nil && m.memoryCallbacks.Allocate != nil {
		m.memoryCallbacks.Allocate(m, allocation, m.memoryCallbacks.UserData)
	}

	return allocation, nil
}

func (m *HostManager) Free(allocation *Allocation) {
	if allocation == nil {
		return
	}

	m.logger.Debug("HostManager::Free", slog.Uint64("ID", allocation.ID()))

	m.mutex.Lock()
	_, ok := m.live.Get(allocation.ID())
	if !ok {
		m.mutex.Unlock()
		panic("attempting to free an allocation that is not owned by this manager or was already freed")
	}
	m.live.Delete(allocation.ID())
	m.addressSpace.release(allocation.GPUAddress(), allocation.Size())
	memutils.DebugValidate(m.addressSpace)
	m.mutex.Unlock()

	m.allocatedBytes.Add(^(allocation.Size() - 1))

	if m.memoryCallbacks != nil && m.memoryCallbacks.Free != nil {
		m.memoryCallbacks.Free(m, allocation, m.memoryCallbacks.UserData)
	}
}

// Lookup finds the live allocation that contains gpuAddress
func (m *HostManager) Lookup(gpuAddress uint64) (*Allocation, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var found *Allocation
	m.live.Iter(func(id uint64, allocation *Allocation) bool {
		if gpuAddress >= allocation.GPUAddress() && gpuAddress < allocation.GPUAddress()+allocation.Size() {
			found = allocation
			return true
		}
		return false
	})

	return found, found != nil
}

// AllocatedBytes is the number of bytes currently allocated
func (m *HostManager) AllocatedBytes() uint64 {
	return m.allocatedBytes.Load()
}

func (m *HostManager) AllocationCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.live.Count()
}

func (m *HostManager) CalculateStatistics(stats *memutils.DetailedStatistics) {
	stats.Clear()

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	m.live.Iter(func(id uint64, allocation *Allocation) bool {
		stats.AddAllocation(allocation.Size())
		return false
	})
}

func (m *HostManager) Validate() error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	err := m.addressSpace.Validate()
	if err != nil {
		return err
	}

	var liveBytes uint64
	m.live.Iter(func(id uint64, allocation *Allocation) bool {
		liveBytes += allocation.Size()
		return false
	})

	if liveBytes != m.allocatedBytes.Load() {
		return errors.Newf("the manager reports %d allocated bytes but its live allocations total %d bytes", m.allocatedBytes.Load(), liveBytes)
	}

	reserved := m.addressSpace.size - m.addressSpace.freeBytes()
	if reserved < liveBytes {
		return errors.Newf("live allocations total %d bytes but only %d bytes of address space are reserved", liveBytes, reserved)
	}

	return nil
}

func (m *HostManager) BuildStatsString(detailedMap bool) string {
	writer := jwriter.NewWriter()
	obj := writer.Object()

	var stats memutils.DetailedStatistics
	m.CalculateStatistics(&stats)

	totalObj := obj.Name("Total").Object()
	stats.PrintJSON(&totalObj)
	totalObj.Name("Budget").Float64(float64(m.budget))
	totalObj.End()

	if detailedMap {
		m.mutex.RLock()
		allocations := obj.Name("Allocations").Array()
		m.live.Iter(func(id uint64, allocation *Allocation) bool {
			allocObj := allocations.Object()
			allocation.PrintParameters(&allocObj)
			allocObj.End()
			return false
		})
		allocations.End()
		m.mutex.RUnlock()
	}

	obj.End()
	return string(writer.Bytes())
}
