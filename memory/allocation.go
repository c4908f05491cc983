package memory

import (
	"fmt"
	"sync/atomic"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/submission/common"
)

// AllocationType describes what an allocation will be used for. The type decides the default alignment and
// whether the allocation lives in device-resident memory.
type AllocationType int32

const (
	AllocationTypeUnknown AllocationType = iota
	// AllocationTypeCommandBuffer is a command buffer owned by a command container
	AllocationTypeCommandBuffer
	// AllocationTypeLinearStream is one of the two ring buffers owned by a command queue
	AllocationTypeLinearStream
	// AllocationTypeInternalHeap backs the dynamic-state and indirect-object heaps
	AllocationTypeInternalHeap
	// AllocationTypeSurfaceStateHeap backs the surface-state heap
	AllocationTypeSurfaceStateHeap
	AllocationTypeTimestampPacketTagBuffer
	AllocationTypeBuffer
	AllocationTypeImage
	// AllocationTypeBufferHostMemory is host memory made visible to the GPU, it is never device-resident
	AllocationTypeBufferHostMemory
	// AllocationTypeExternalHostPtr wraps caller-owned host memory, it is never device-resident
	AllocationTypeExternalHostPtr
	AllocationTypePrintfSurface
)

var allocationTypeMapping = make(map[AllocationType]string)

func (t AllocationType) String() string {
	str, ok := allocationTypeMapping[t]
	if !ok {
		return fmt.Sprintf("AllocationType(%d)", int32(t))
	}
	return str
}

func (t AllocationType) Register(str string) {
	allocationTypeMapping[t] = str
}

func init() {
	AllocationTypeUnknown.Register("AllocationTypeUnknown")
	AllocationTypeCommandBuffer.Register("AllocationTypeCommandBuffer")
	AllocationTypeLinearStream.Register("AllocationTypeLinearStream")
	AllocationTypeInternalHeap.Register("AllocationTypeInternalHeap")
	AllocationTypeSurfaceStateHeap.Register("AllocationTypeSurfaceStateHeap")
	AllocationTypeTimestampPacketTagBuffer.Register("AllocationTypeTimestampPacketTagBuffer")
	AllocationTypeBuffer.Register("AllocationTypeBuffer")
	AllocationTypeImage.Register("AllocationTypeImage")
	AllocationTypeBufferHostMemory.Register("AllocationTypeBufferHostMemory")
	AllocationTypeExternalHostPtr.Register("AllocationTypeExternalHostPtr")
	AllocationTypePrintfSurface.Register("AllocationTypePrintfSurface")
}

// IsDeviceResident returns false for allocation types that are backed by host memory
func (t AllocationType) IsDeviceResident() bool {
	return t != AllocationTypeBufferHostMemory && t != AllocationTypeExternalHostPtr
}

// AllocationProperties is the request passed to Manager.Allocate
type AllocationProperties struct {
	Type AllocationType
	Size uint64
	// Alignment of the GPU virtual address, 0 selects the page size
	Alignment uint64
	Name      string
	// HostMemory is the caller-owned memory wrapped by an AllocationTypeExternalHostPtr allocation
	HostMemory []byte
}

// Allocation is a single memory allocation with a CPU-visible mapping and a GPU virtual address.
// The task count records the last completion stamp that may still reference the allocation.
type Allocation struct {
	id         uint64
	allocType  AllocationType
	size       uint64
	alignment  uint64
	gpuAddress uint64
	data       []byte
	name       string

	taskCount atomic.Uint64
}

// NewAllocation builds an Allocation for a Manager implementation. data must be at least size bytes.
func NewAllocation(id uint64, properties AllocationProperties, gpuAddress uint64, data []byte) *Allocation {
	if uint64(len(data)) < properties.Size {
		panic(fmt.Sprintf("allocation %d was given %d bytes of backing memory but is %d bytes large", id, len(data), properties.Size))
	}

	return &Allocation{
		id:         id,
		allocType:  properties.Type,
		size:       properties.Size,
		alignment:  properties.Alignment,
		gpuAddress: gpuAddress,
		data:       data[:properties.Size:properties.Size],
		name:       properties.Name,
	}
}

func (a *Allocation) ID() uint64 {
	return a.id
}

func (a *Allocation) Type() AllocationType {
	return a.allocType
}

func (a *Allocation) Size() uint64 {
	return a.size
}

func (a *Allocation) Alignment() uint64 {
	return a.alignment
}

func (a *Allocation) GPUAddress() uint64 {
	return a.gpuAddress
}

// CPUData is the CPU-visible mapping of the allocation
func (a *Allocation) CPUData() []byte {
	return a.data
}

func (a *Allocation) Name() string {
	return a.name
}

func (a *Allocation) IsDeviceResident() bool {
	return a.allocType.IsDeviceResident()
}

func (a *Allocation) TaskCount() common.Stamp {
	return common.Stamp(a.taskCount.Load())
}

// UpdateTaskCount raises the allocation's task count to stamp. The task count never moves backwards.
func (a *Allocation) UpdateTaskCount(stamp common.Stamp) {
	for {
		current := a.taskCount.Load()
		if uint64(stamp) <= current {
			return
		}
		if a.taskCount.CompareAndSwap(current, uint64(stamp)) {
			return
		}
	}
}

// IsUsedByGPU returns true if the allocation may still be referenced by work that has not retired
func (a *Allocation) IsUsedByGPU(completed common.Stamp) bool {
	return a.TaskCount() > completed
}

func (a *Allocation) PrintParameters(json *jwriter.ObjectState) {
	json.Name("Type").String(a.allocType.String())
	json.Name("Size").Float64(float64(a.size))
	json.Name("GPUAddress").String(fmt.Sprintf("0x%x", a.gpuAddress))
	json.Name("TaskCount").Float64(float64(a.TaskCount()))

	if a.name != "" {
		json.Name("Name").String(a.name)
	}
}
