package queue

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/memory"
)

//go:generate mockgen -source diagnostics.go -destination ./mocks/diagnostics.go

// DiagnosticSink is device-side diagnostic output, such as a printf buffer, that is drained once the
// work writing it has retired
type DiagnosticSink interface {
	Drain() error
}

// PrintfHeaderSize is the size of the little-endian uint32 at the start of a printf buffer that holds
// the number of bytes written after it
const PrintfHeaderSize = 4

// PrintfBuffer drains kernel printf output from an allocation into a writer
type PrintfBuffer struct {
	allocation *memory.Allocation
	output     io.Writer
}

var _ DiagnosticSink = &PrintfBuffer{}

func NewPrintfBuffer(allocation *memory.Allocation, output io.Writer) *PrintfBuffer {
	if allocation.Size() < PrintfHeaderSize {
		panic("printf buffer allocation is smaller than its header")
	}
	return &PrintfBuffer{allocation: allocation, output: output}
}

func (b *PrintfBuffer) Allocation() *memory.Allocation {
	return b.allocation
}

// Drain copies everything written since the last drain to the output and empties the buffer
func (b *PrintfBuffer) Drain() error {
	data := b.allocation.CPUData()
	written := uint64(binary.LittleEndian.Uint32(data))
	if written == 0 {
		return nil
	}

	capacity := uint64(len(data)) - PrintfHeaderSize
	if written > capacity {
		written = capacity
	}

	_, err := b.output.Write(data[PrintfHeaderSize : PrintfHeaderSize+written])
	binary.LittleEndian.PutUint32(data, 0)
	if err != nil {
		return errors.Wrapf(err, "writing %d bytes of printf output", written)
	}
	return nil
}
