package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/memory"
)

//go:generate mockgen -source submitter.go -destination ./mocks/submitter.go

// Throttle is the scheduling hint attached to a batch buffer
type Throttle int32

const (
	ThrottleMedium Throttle = iota
	ThrottleLow
	ThrottleHigh
)

var throttleMapping = map[Throttle]string{
	ThrottleMedium: "ThrottleMedium",
	ThrottleLow:    "ThrottleLow",
	ThrottleHigh:   "ThrottleHigh",
}

func (t Throttle) String() string {
	str, ok := throttleMapping[t]
	if !ok {
		return fmt.Sprintf("Throttle(%d)", int32(t))
	}
	return str
}

// BatchBuffer describes one submission handed to the execution layer
type BatchBuffer struct {
	CommandBuffer *memory.Allocation
	// StartOffset is the offset of the first command to execute
	StartOffset uint64
	// UsedSize is the number of bytes of the command buffer written so far
	UsedSize uint64
	// EndingCommandOffset is the offset of the command that ends the batch
	EndingCommandOffset uint64
	Throttle            Throttle
	LowPriority         bool
	CopyOnly            bool
}

// WaitStatus is the three-valued outcome of a wait
type WaitStatus int32

const (
	WaitReady WaitStatus = iota
	WaitNotReady
	WaitGPUHang
)

var waitStatusMapping = map[WaitStatus]string{
	WaitReady:    "WaitReady",
	WaitNotReady: "WaitNotReady",
	WaitGPUHang:  "WaitGPUHang",
}

func (s WaitStatus) String() string {
	str, ok := waitStatusMapping[s]
	if !ok {
		return fmt.Sprintf("WaitStatus(%d)", int32(s))
	}
	return str
}

// WaitParams bounds a wait. An Indefinite wait ignores Timeout.
type WaitParams struct {
	Indefinite bool
	Timeout    time.Duration
}

// WaitParamsFromMicroseconds converts a caller timeout, common.InfiniteTimeout requests an unbounded wait
func WaitParamsFromMicroseconds(timeoutMicroseconds uint64) WaitParams {
	if timeoutMicroseconds == common.InfiniteTimeout || timeoutMicroseconds > math.MaxInt64/uint64(time.Microsecond) {
		return WaitParams{Indefinite: true}
	}
	return WaitParams{Timeout: time.Duration(timeoutMicroseconds) * time.Microsecond}
}

// Submitter is the execution layer. Stamps returned from Submit increase monotonically, and
// CompletedStamp never decreases.
type Submitter interface {
	Submit(batch *BatchBuffer, residency []*memory.Allocation) (common.Stamp, error)
	WaitForStamp(stamp common.Stamp, params WaitParams) WaitStatus
	// CompletedStamp is the highest stamp known to have retired
	CompletedStamp() common.Stamp
	// PeekTaskCount is the stamp the next call to Submit will return
	PeekTaskCount() common.Stamp
}
