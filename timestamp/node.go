package timestamp

import (
	"fmt"
	"sync/atomic"

	"github.com/vkngwrapper/submission/common"
)

type slotState int32

const (
	slotFree slotState = iota
	slotUsed
	slotDeferred
)

type slot struct {
	generation  uint32
	state       slotState
	refCount    atomic.Int32
	packetsUsed atomic.Uint32
	// implicitCPUDependencies counts the dependency waits installed against this node from the host
	implicitCPUDependencies atomic.Uint32
	taskCount               atomic.Uint64
	doNotRelease            atomic.Bool

	chunk      int
	data       []byte
	gpuAddress uint64
}

// Node is a view of a live timestamp node in an Arena
type Node struct {
	handle      Handle
	slot        *slot
	packetCount uint32
	tracking    bool
}

func (n Node) Handle() Handle {
	return n.handle
}

// PacketCount is the capacity of the node
func (n Node) PacketCount() uint32 {
	return n.packetCount
}

func (n Node) PacketsUsed() uint32 {
	return n.slot.packetsUsed.Load()
}

func (n Node) SetPacketsUsed(count uint32) {
	if count == 0 || count > n.packetCount {
		panic(fmt.Sprintf("timestamp node holds %d packets, cannot use %d", n.packetCount, count))
	}
	n.slot.packetsUsed.Store(count)
}

func (n Node) packetOffset(index uint32) uint64 {
	if index >= n.packetCount {
		panic(fmt.Sprintf("packet %d is out of range for a node of %d packets", index, n.packetCount))
	}
	return uint64(index) * PacketSize
}

func (n Node) Packet(index uint32) Packet {
	offset := n.packetOffset(index)
	return Packet{
		ContextStart: loadField(n.slot.data, offset+contextStartOffset),
		GlobalStart:  loadField(n.slot.data, offset+globalStartOffset),
		ContextEnd:   loadField(n.slot.data, offset+contextEndOffset),
		GlobalEnd:    loadField(n.slot.data, offset+globalEndOffset),
	}
}

// SetPacket writes a packet from the host, the way the GPU would on completion
func (n Node) SetPacket(index uint32, packet Packet) {
	offset := n.packetOffset(index)
	storeField(n.slot.data, offset+contextStartOffset, packet.ContextStart)
	storeField(n.slot.data, offset+globalStartOffset, packet.GlobalStart)
	storeField(n.slot.data, offset+globalEndOffset, packet.GlobalEnd)
	storeField(n.slot.data, offset+contextEndOffset, packet.ContextEnd)
}

func (n Node) GPUAddress() uint64 {
	return n.slot.gpuAddress
}

func (n Node) ContextEndAddress(index uint32) uint64 {
	return n.slot.gpuAddress + n.packetOffset(index) + contextEndOffset
}

func (n Node) GlobalEndAddress(index uint32) uint64 {
	return n.slot.gpuAddress + n.packetOffset(index) + globalEndOffset
}

func (n Node) ImplicitDependencyCountAddress() uint64 {
	return n.slot.gpuAddress + ImplicitDependencyOffset(n.packetCount)
}

// ImplicitGPUDependencies reads the counter incremented by the GPU each time an installed wait executes
func (n Node) ImplicitGPUDependencies() uint32 {
	return loadField(n.slot.data, ImplicitDependencyOffset(n.packetCount))
}

// ImplicitCPUDependencies is the number of dependency waits installed against this node
func (n Node) ImplicitCPUDependencies() uint32 {
	return n.slot.implicitCPUDependencies.Load()
}

func (n Node) incrementImplicitCPUDependencies() {
	n.slot.implicitCPUDependencies.Add(1)
}

// IsCompleted is true once every used packet's contextEnd has been overwritten. It always returns false
// when completion tracking is disabled.
func (n Node) IsCompleted() bool {
	if !n.tracking {
		return false
	}

	used := n.PacketsUsed()
	for i := uint32(0); i < used; i++ {
		if loadField(n.slot.data, n.packetOffset(i)+contextEndOffset) == InitValue {
			return false
		}
	}

	return true
}

// SetTaskCount records the completion stamp of the submission that writes this node
func (n Node) SetTaskCount(stamp common.Stamp) {
	n.slot.taskCount.Store(uint64(stamp))
}

func (n Node) TaskCount() common.Stamp {
	return common.Stamp(n.slot.taskCount.Load())
}

// SetDoNotRelease pins the node so that it is never returned to the free list while it is deferred
func (n Node) SetDoNotRelease(doNotRelease bool) {
	n.slot.doNotRelease.Store(doNotRelease)
}

func (s *slot) initialize(packetCount uint32) {
	for offset := uint64(0); offset < uint64(packetCount)*PacketSize; offset += fieldSize {
		storeField(s.data, offset, InitValue)
	}
	storeField(s.data, ImplicitDependencyOffset(packetCount), 0)

	s.packetsUsed.Store(1)
	s.implicitCPUDependencies.Store(0)
	s.taskCount.Store(0)
	s.doNotRelease.Store(false)
}
