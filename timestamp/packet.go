package timestamp

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/vkngwrapper/submission/memutils"
)

const (
	// InitValue is written to every packet field before use. The GPU overwrites contextEnd when the
	// operation that owns the packet completes.
	InitValue uint32 = 1

	fieldSize = 4
	// PacketSize is the size of one {contextStart, globalStart, contextEnd, globalEnd} record
	PacketSize uint64 = 4 * fieldSize

	contextStartOffset uint64 = 0
	globalStartOffset  uint64 = 4
	contextEndOffset   uint64 = 8
	globalEndOffset    uint64 = 12
)

// Packet is a host copy of one timestamp record
type Packet struct {
	ContextStart uint32
	GlobalStart  uint32
	ContextEnd   uint32
	GlobalEnd    uint32
}

// NodeSize is the size of a node holding packetCount packets and the implicit dependency counter
func NodeSize(packetCount uint32) uint64 {
	return memutils.AlignUp(uint64(packetCount)*PacketSize+fieldSize, memutils.CacheLineSize)
}

// ImplicitDependencyOffset is the offset of the implicit dependency counter within a node
func ImplicitDependencyOffset(packetCount uint32) uint64 {
	return uint64(packetCount) * PacketSize
}

func field(data []byte, offset uint64) *uint32 {
	if offset+fieldSize > uint64(len(data)) {
		panic(fmt.Sprintf("timestamp field at offset %d is outside of a %d byte node", offset, len(data)))
	}
	return (*uint32)(unsafe.Pointer(&data[offset]))
}

func loadField(data []byte, offset uint64) uint32 {
	return atomic.LoadUint32(field(data, offset))
}

func storeField(data []byte, offset uint64, value uint32) {
	atomic.StoreUint32(field(data, offset), value)
}
