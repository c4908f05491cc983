package timestamp

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/common"
)

//go:generate mockgen -source dependencies.go -destination ./mocks/dependencies.go

// CompareOperation selects how a semaphore wait compares memory against its operand
type CompareOperation int32

const (
	CompareNotEqual CompareOperation = iota
	CompareEqual
	CompareGreaterOrEqual
)

// WaitEncoder encodes the two commands used to install a dependency wait
type WaitEncoder interface {
	SemaphoreWaitSize() uint64
	AtomicIncrementSize() uint64
	// EncodeSemaphoreWait makes the engine stall until the 32-bit value at address compares true against value
	EncodeSemaphoreWait(dst []byte, address uint64, value uint32, operation CompareOperation)
	// EncodeAtomicIncrement makes the engine atomically increment the 32-bit value at address
	EncodeAtomicIncrement(dst []byte, address uint64)
}

// CommandStream is the destination of encoded commands
type CommandStream interface {
	Available() uint64
	GetSpace(size uint64) []byte
}

// WaitCommandsSize is the number of stream bytes ProgramDependencyWaits will consume for containers
func WaitCommandsSize(encoder WaitEncoder, containers ...*Container) (uint64, error) {
	var size uint64
	for _, container := range containers {
		nodes, err := container.Nodes()
		if err != nil {
			return 0, err
		}
		for _, node := range nodes {
			size += uint64(node.PacketsUsed())*encoder.SemaphoreWaitSize() + encoder.AtomicIncrementSize()
		}
	}
	return size, nil
}

// ProgramDependencyWaits installs, for every node of every container, one wait per used packet that
// stalls until the packet's contextEnd no longer holds InitValue, followed by one atomic increment of the
// node's implicit dependency counter. The stream must have room for every command: nothing is emitted
// when it does not.
func ProgramDependencyWaits(stream CommandStream, encoder WaitEncoder, containers ...*Container) (common.Result, error) {
	required, err := WaitCommandsSize(encoder, containers...)
	if err != nil {
		return common.ErrorInvalidArgument, errors.Mark(err, common.ErrorInvalidArgument.ToError())
	}

	if required > stream.Available() {
		return common.ErrorInvalidSize, errors.Wrapf(common.ErrorInvalidSize.ToError(),
			"dependency waits need %d bytes of command stream but %d are available", required, stream.Available())
	}

	for _, container := range containers {
		nodes, err := container.Nodes()
		if err != nil {
			return common.ErrorInvalidArgument, errors.Mark(err, common.ErrorInvalidArgument.ToError())
		}

		for _, node := range nodes {
			used := node.PacketsUsed()
			for packet := uint32(0); packet < used; packet++ {
				encoder.EncodeSemaphoreWait(stream.GetSpace(encoder.SemaphoreWaitSize()), node.ContextEndAddress(packet), InitValue, CompareNotEqual)
			}

			encoder.EncodeAtomicIncrement(stream.GetSpace(encoder.AtomicIncrementSize()), node.ImplicitDependencyCountAddress())
			node.incrementImplicitCPUDependencies()
		}
	}

	return common.Success, nil
}
