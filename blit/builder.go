package blit

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/device"
	"github.com/vkngwrapper/submission/hwinfo"
	"github.com/vkngwrapper/submission/memory"
	"github.com/vkngwrapper/submission/memutils"
)

// Chunk is one copy-engine command: a Width x Height rectangle of bytes read at SrcAddress with row
// pitch SrcPitch and written at DstAddress with row pitch DstPitch
type Chunk struct {
	SrcAddress    uint64
	DstAddress    uint64
	Width         uint64
	Height        uint64
	SrcPitch      uint64
	DstPitch      uint64
	BytesPerPixel uint64
}

// Bytes is the number of bytes the chunk copies
func (c Chunk) Bytes() uint64 {
	return c.Width * c.Height
}

// ResidencyResolver decides whether an allocation lives in device-resident memory
type ResidencyResolver interface {
	IsDeviceResident(allocation *memory.Allocation) bool
}

type allocationResidency struct{}

func (allocationResidency) IsDeviceResident(allocation *memory.Allocation) bool {
	return allocation.IsDeviceResident()
}

// Builder splits copies and fills into chunks that respect the copy engine's extent limits
type Builder struct {
	capabilities hwinfo.Capabilities
	maxWidth     uint64
	maxHeight    uint64
	enable2D     bool
	residency    ResidencyResolver
}

// NewBuilder reads the blit limits of dev. A nil residency resolver asks each allocation whether it is
// device-resident.
func NewBuilder(dev *device.Device, residency ResidencyResolver) *Builder {
	width, height := dev.BlitLimits()
	caps := dev.Capabilities()
	return newBuilder(caps, width, height, dev.Options().Enable2DBlit && caps.Supports2DBlit, residency)
}

func newBuilder(caps hwinfo.Capabilities, maxWidth, maxHeight uint64, enable2D bool, residency ResidencyResolver) *Builder {
	if maxWidth == 0 || maxHeight == 0 {
		panic("blit builder created with a zero extent limit")
	}
	if residency == nil {
		residency = allocationResidency{}
	}
	return &Builder{
		capabilities: caps,
		maxWidth:     maxWidth,
		maxHeight:    maxHeight,
		enable2D:     enable2D,
		residency:    residency,
	}
}

func (b *Builder) MaxWidth() uint64 {
	return b.maxWidth
}

func (b *Builder) MaxHeight() uint64 {
	return b.maxHeight
}

func (b *Builder) Uses2D() bool {
	return b.enable2D
}

func (b *Builder) bytesPerPixel(size, srcAddress, dstAddress uint64) uint64 {
	if !b.enable2D || b.capabilities.BytesPerPixel == nil {
		return 1
	}
	bpp := b.capabilities.BytesPerPixel(size, srcAddress, dstAddress)
	if bpp == 0 {
		return 1
	}
	return bpp
}

// splitRow tiles a contiguous span of bytes. Without 2D packing every chunk is at most maxWidth bytes
// wide. With it, whole rows of maxWidth pixels are stacked into rectangles up to maxHeight tall and the
// remainder goes into a final single-row chunk.
func (b *Builder) splitRow(chunks []Chunk, srcAddress, dstAddress, size uint64) []Chunk {
	bpp := b.bytesPerPixel(size, srcAddress, dstAddress)
	rowWidth := b.maxWidth * bpp

	var offset uint64
	for offset < size {
		remaining := size - offset
		chunk := Chunk{
			SrcAddress:    srcAddress + offset,
			DstAddress:    dstAddress + offset,
			Width:         min(remaining, rowWidth),
			Height:        1,
			BytesPerPixel: bpp,
		}

		if b.enable2D && remaining >= 2*rowWidth {
			chunk.Height = min(remaining/rowWidth, b.maxHeight)
		}
		chunk.SrcPitch = chunk.Width
		chunk.DstPitch = chunk.Width

		chunks = append(chunks, chunk)
		offset += chunk.Bytes()
	}
	return chunks
}

// CopyChunks splits a buffer copy row by row. Each row's addresses are derived from the copy's base
// addresses, offsets and pitches, then the row is tiled by splitRow. Zero extents, pitches and bytes per
// pixel take the same defaults as the constructors give them.
func (b *Builder) CopyChunks(props Properties) ([]Chunk, common.Result, error) {
	props.normalizePitches()
	res, err := props.validate()
	if err != nil {
		return nil, res, err
	}
	if props.Direction.IsImage() {
		return b.ImageChunks(props)
	}

	srcBase := props.SrcGPUAddress + props.SrcOffset.X + props.SrcOffset.Y*props.SrcRowPitch + props.SrcOffset.Z*props.SrcSlicePitch
	dstBase := props.DstGPUAddress + props.DstOffset.X + props.DstOffset.Y*props.DstRowPitch + props.DstOffset.Z*props.DstSlicePitch

	var chunks []Chunk
	for slice := uint64(0); slice < props.CopySize.Z; slice++ {
		for row := uint64(0); row < props.CopySize.Y; row++ {
			src := srcBase + row*props.SrcRowPitch + slice*props.SrcSlicePitch
			dst := dstBase + row*props.DstRowPitch + slice*props.DstSlicePitch
			chunks = b.splitRow(chunks, src, dst, props.CopySize.X)
		}
	}
	return chunks, common.Success, nil
}

// ImageChunks tiles each slice of an image copy by rectangles of at most maxWidth pixels and maxHeight rows
func (b *Builder) ImageChunks(props Properties) ([]Chunk, common.Result, error) {
	props.normalizePitches()
	res, err := props.validate()
	if err != nil {
		return nil, res, err
	}

	bpp := props.BytesPerPixel
	var chunks []Chunk
	for slice := uint64(0); slice < props.CopySize.Z; slice++ {
		for y := uint64(0); y < props.CopySize.Y; y += b.maxHeight {
			for x := uint64(0); x < props.CopySize.X; x += b.maxWidth {
				src := props.SrcGPUAddress + (props.SrcOffset.X+x)*bpp + (props.SrcOffset.Y+y)*props.SrcRowPitch + (props.SrcOffset.Z+slice)*props.SrcSlicePitch
				dst := props.DstGPUAddress + (props.DstOffset.X+x)*bpp + (props.DstOffset.Y+y)*props.DstRowPitch + (props.DstOffset.Z+slice)*props.DstSlicePitch

				chunks = append(chunks, Chunk{
					SrcAddress:    src,
					DstAddress:    dst,
					Width:         min(b.maxWidth, props.CopySize.X-x) * bpp,
					Height:        min(b.maxHeight, props.CopySize.Y-y),
					SrcPitch:      props.SrcRowPitch,
					DstPitch:      props.DstRowPitch,
					BytesPerPixel: bpp,
				})
			}
		}
	}
	return chunks, common.Success, nil
}

// ValidateFill rejects fills the copy engine cannot run: unsupported pattern sizes, sizes that are not a
// multiple of the pattern, and destinations that are not device-resident
func (b *Builder) ValidateFill(dst *memory.Allocation, offset, patternSize, size uint64) (common.Result, error) {
	if dst == nil {
		return common.ErrorInvalidArgument, errors.Wrap(common.ErrorInvalidArgument.ToError(), "fill has no destination allocation")
	}
	if b.capabilities.IsFillPatternSupported == nil || !b.capabilities.IsFillPatternSupported(patternSize) {
		return common.ErrorInvalidSize, errors.Wrapf(common.ErrorInvalidSize.ToError(),
			"fill pattern of %d bytes is not supported on %s", patternSize, b.capabilities.Generation)
	}
	if size == 0 || size%patternSize != 0 {
		return common.ErrorInvalidSize, errors.Wrapf(common.ErrorInvalidSize.ToError(),
			"fill size %d is not a non-zero multiple of the %d byte pattern", size, patternSize)
	}
	if offset+size > dst.Size() {
		return common.ErrorInvalidSize, errors.Wrapf(common.ErrorInvalidSize.ToError(),
			"fill of %d bytes at offset %d overruns an allocation of %d bytes", size, offset, dst.Size())
	}
	if !b.residency.IsDeviceResident(dst) {
		return common.ErrorInvalidArgument, errors.Wrapf(common.ErrorInvalidArgument.ToError(),
			"fill destination %s is not device-resident", dst.Type())
	}
	return common.Success, nil
}

// FillChunks splits a fill into chunks whose widths are multiples of the pattern size. Fills always
// use rectangles, on every generation.
func (b *Builder) FillChunks(dst *memory.Allocation, offset, patternSize, size uint64) ([]Chunk, common.Result, error) {
	res, err := b.ValidateFill(dst, offset, patternSize, size)
	if err != nil {
		return nil, res, err
	}

	rowWidth := memutils.AlignDown(b.maxWidth, patternSize)
	if rowWidth == 0 {
		rowWidth = patternSize
	}
	base := dst.GPUAddress() + offset

	var chunks []Chunk
	var filled uint64
	for filled < size {
		remaining := size - filled
		chunk := Chunk{
			DstAddress:    base + filled,
			Width:         min(remaining, rowWidth),
			Height:        1,
			BytesPerPixel: patternSize,
		}
		if remaining >= 2*rowWidth {
			chunk.Height = min(remaining/rowWidth, b.maxHeight)
		}
		chunk.DstPitch = chunk.Width

		chunks = append(chunks, chunk)
		filled += chunk.Bytes()
	}
	return chunks, common.Success, nil
}

// BlitCount is the number of commands CopyChunks produces for props, computed without building them
func (b *Builder) BlitCount(props Properties) uint64 {
	props.normalizePitches()
	if props.CopySize.X == 0 {
		return 0
	}

	if props.Direction.IsImage() {
		return props.CopySize.Z * memutils.CeilDiv(props.CopySize.Y, b.maxHeight) * memutils.CeilDiv(props.CopySize.X, b.maxWidth)
	}

	if !b.enable2D {
		return props.CopySize.Z * props.CopySize.Y * memutils.CeilDiv(props.CopySize.X, b.maxWidth)
	}

	chunks, _, err := b.CopyChunks(props)
	if err != nil {
		return 0
	}
	return uint64(len(chunks))
}
