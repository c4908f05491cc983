package blit

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/container"
	"github.com/vkngwrapper/submission/memory"
	"github.com/vkngwrapper/submission/queue"
	"github.com/vkngwrapper/submission/timestamp"
)

//go:generate mockgen -source dispatch.go -destination ./mocks/dispatch.go

// Encoder encodes copy-engine commands
type Encoder interface {
	CopyCommandSize() uint64
	EncodeCopy(dst []byte, chunk Chunk)
	FillCommandSize() uint64
	EncodeFill(dst []byte, chunk Chunk, pattern []byte)
	TimestampWriteSize() uint64
	// EncodeTimestampWrite makes the engine write the start and end timestamps of the packet at
	// packetAddress once every preceding command has finished
	EncodeTimestampWrite(dst []byte, packetAddress uint64)
}

// Target is a command stream that can be asked for room before encoding and that tracks the allocations
// its commands reference
type Target interface {
	timestamp.CommandStream
	EnsureSpace(size uint64) (common.Result, error)
	AddToResidency(allocation *memory.Allocation)
}

// ContainerTarget encodes into a command container, chaining to a new command buffer when needed
type ContainerTarget struct {
	Container *container.CommandContainer
	Chain     container.ChainingEncoder
}

var _ Target = ContainerTarget{}

func (t ContainerTarget) Available() uint64 {
	return t.Container.CommandStream().Available()
}

func (t ContainerTarget) GetSpace(size uint64) []byte {
	return t.Container.CommandStream().GetSpace(size)
}

func (t ContainerTarget) EnsureSpace(size uint64) (common.Result, error) {
	return t.Container.EnsureCommandBufferSpace(size, t.Chain)
}

func (t ContainerTarget) AddToResidency(allocation *memory.Allocation) {
	t.Container.AddToResidency(allocation)
}

// QueueTarget encodes directly into a command queue's active buffer. Referenced allocations are
// collected in Residency for the following SubmitBatchBuffer.
type QueueTarget struct {
	Queue     *queue.CommandQueue
	Residency []*memory.Allocation
}

var _ Target = &QueueTarget{}

func (t *QueueTarget) Available() uint64 {
	return t.Queue.CommandStream().Available()
}

func (t *QueueTarget) GetSpace(size uint64) []byte {
	return t.Queue.CommandStream().GetSpace(size)
}

func (t *QueueTarget) EnsureSpace(size uint64) (common.Result, error) {
	return t.Queue.ReserveLinearStreamSize(size)
}

func (t *QueueTarget) AddToResidency(allocation *memory.Allocation) {
	for _, existing := range t.Residency {
		if existing == allocation {
			return
		}
	}
	t.Residency = append(t.Residency, allocation)
}

// Dispatcher turns Properties into encoded commands. Every handle is resolved, every chunk is computed
// and the target is given room for every command before the first one is encoded, so a rejected request
// emits nothing.
type Dispatcher struct {
	builder    *Builder
	encoder    Encoder
	waits      timestamp.WaitEncoder
	timestamps *timestamp.Arena
}

// NewDispatcher creates a Dispatcher. waits may be nil if no dispatched copy carries dependencies, and
// timestamps may be nil if no dispatched copy carries an output timestamp.
func NewDispatcher(builder *Builder, encoder Encoder, waits timestamp.WaitEncoder, timestamps *timestamp.Arena) *Dispatcher {
	if builder == nil || encoder == nil {
		panic("blit dispatcher created without a builder or encoder")
	}
	return &Dispatcher{builder: builder, encoder: encoder, waits: waits, timestamps: timestamps}
}

func (d *Dispatcher) Builder() *Builder {
	return d.builder
}

// copyPlan is everything a copy needs, resolved before anything is written to the target
type copyPlan struct {
	chunks    []Chunk
	waitSize  uint64
	residency []*memory.Allocation
	output    timestamp.Node
	hasOutput bool
}

func (p *copyPlan) size(encoder Encoder, commandSize uint64) uint64 {
	size := p.waitSize + uint64(len(p.chunks))*commandSize
	if p.hasOutput {
		size += encoder.TimestampWriteSize()
	}
	return size
}

func (d *Dispatcher) resolveDependencies(plan *copyPlan, props *Properties) (common.Result, error) {
	if props.Dependencies == nil || props.Dependencies.Len() == 0 {
		return common.Success, nil
	}
	if d.waits == nil {
		return common.ErrorInvalidArgument, errors.Wrap(common.ErrorInvalidArgument.ToError(), "copy has dependencies but the dispatcher has no wait encoder")
	}

	size, err := timestamp.WaitCommandsSize(d.waits, props.Dependencies)
	if err != nil {
		return common.ErrorInvalidArgument, errors.Mark(err, common.ErrorInvalidArgument.ToError())
	}

	allocations, err := props.Dependencies.Allocations()
	if err != nil {
		return common.ErrorInvalidArgument, errors.Mark(err, common.ErrorInvalidArgument.ToError())
	}

	plan.waitSize = size
	plan.residency = append(plan.residency, allocations...)
	return common.Success, nil
}

func (d *Dispatcher) resolveOutput(plan *copyPlan, props *Properties) (common.Result, error) {
	if !props.OutputTimestamp.IsValid() {
		return common.Success, nil
	}
	if d.timestamps == nil {
		return common.ErrorInvalidArgument, errors.Wrap(common.ErrorInvalidArgument.ToError(), "copy has an output timestamp but the dispatcher has no timestamp arena")
	}

	node, err := d.timestamps.Node(props.OutputTimestamp)
	if err != nil {
		return common.ErrorInvalidArgument, errors.Mark(err, common.ErrorInvalidArgument.ToError())
	}
	allocation, err := d.timestamps.Allocation(props.OutputTimestamp)
	if err != nil {
		return common.ErrorInvalidArgument, errors.Mark(err, common.ErrorInvalidArgument.ToError())
	}

	plan.output = node
	plan.hasOutput = true
	plan.residency = append(plan.residency, allocation)
	return common.Success, nil
}

func (d *Dispatcher) planCopy(props *Properties) (*copyPlan, common.Result, error) {
	chunks, res, err := d.builder.CopyChunks(*props)
	if err != nil {
		return nil, res, err
	}

	plan := &copyPlan{chunks: chunks}
	res, err = d.resolveDependencies(plan, props)
	if err != nil {
		return nil, res, err
	}
	res, err = d.resolveOutput(plan, props)
	if err != nil {
		return nil, res, err
	}
	return plan, common.Success, nil
}

// DispatchCopy encodes the dependency waits, every chunk of a buffer or image copy, and the write of the
// output timestamp into target
func (d *Dispatcher) DispatchCopy(target Target, props Properties) (common.Result, error) {
	plan, res, err := d.planCopy(&props)
	if err != nil {
		return res, err
	}

	commandSize := d.encoder.CopyCommandSize()
	res, err = target.EnsureSpace(plan.size(d.encoder, commandSize))
	if err != nil {
		return res, err
	}

	if plan.waitSize > 0 {
		res, err = timestamp.ProgramDependencyWaits(target, d.waits, props.Dependencies)
		if err != nil {
			return res, err
		}
	}

	for _, allocation := range plan.residency {
		target.AddToResidency(allocation)
	}
	target.AddToResidency(props.SrcAllocation)
	target.AddToResidency(props.DstAllocation)

	for _, chunk := range plan.chunks {
		d.encoder.EncodeCopy(target.GetSpace(commandSize), chunk)
	}

	if plan.hasOutput {
		d.encoder.EncodeTimestampWrite(target.GetSpace(d.encoder.TimestampWriteSize()), plan.output.GPUAddress())
	}
	return common.Success, nil
}

// DispatchFill encodes a fill of size bytes at offset into dst with pattern
func (d *Dispatcher) DispatchFill(target Target, dst *memory.Allocation, offset uint64, pattern []byte, size uint64) (common.Result, error) {
	chunks, res, err := d.builder.FillChunks(dst, offset, uint64(len(pattern)), size)
	if err != nil {
		return res, err
	}

	commandSize := d.encoder.FillCommandSize()
	res, err = target.EnsureSpace(uint64(len(chunks)) * commandSize)
	if err != nil {
		return res, err
	}

	target.AddToResidency(dst)
	for _, chunk := range chunks {
		d.encoder.EncodeFill(target.GetSpace(commandSize), chunk, pattern)
	}
	return common.Success, nil
}
