package blit

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/memory"
	"github.com/vkngwrapper/submission/timestamp"
)

//go:generate mockgen -source properties.go -destination ./mocks/properties.go

// Direction is the kind of memory on each side of a copy
type Direction int32

const (
	BufferToHostPtr Direction = iota
	HostPtrToBuffer
	BufferToBuffer
	HostPtrToImage
	ImageToHostPtr
	ImageToImage
)

var directionMapping = map[Direction]string{
	BufferToHostPtr: "BufferToHostPtr",
	HostPtrToBuffer: "HostPtrToBuffer",
	BufferToBuffer:  "BufferToBuffer",
	HostPtrToImage:  "HostPtrToImage",
	ImageToHostPtr:  "ImageToHostPtr",
	ImageToImage:    "ImageToImage",
}

func (d Direction) String() string {
	str, ok := directionMapping[d]
	if !ok {
		return fmt.Sprintf("Direction(%d)", int32(d))
	}
	return str
}

// ReadsHost is true when the source of the copy is host memory
func (d Direction) ReadsHost() bool {
	return d == HostPtrToBuffer || d == HostPtrToImage
}

// WritesHost is true when the destination of the copy is host memory
func (d Direction) WritesHost() bool {
	return d == BufferToHostPtr || d == ImageToHostPtr
}

// IsImage is true when either side of the copy is an image
func (d Direction) IsImage() bool {
	return d == HostPtrToImage || d == ImageToHostPtr || d == ImageToImage
}

// Vec3 is an x, y, z triple. X counts bytes for buffer copies and pixels for image copies.
type Vec3 struct {
	X, Y, Z uint64
}

// normalizeExtent turns missing y and z extents into 1
func normalizeExtent(v Vec3) Vec3 {
	if v.Y == 0 {
		v.Y = 1
	}
	if v.Z == 0 {
		v.Z = 1
	}
	return v
}

// Properties is the canonical description of one copy, independent of how the caller described it
type Properties struct {
	Direction      Direction
	AuxTranslation bool

	SrcAllocation *memory.Allocation
	DstAllocation *memory.Allocation
	SrcGPUAddress uint64
	DstGPUAddress uint64

	SrcOffset Vec3
	DstOffset Vec3
	CopySize  Vec3

	SrcRowPitch   uint64
	SrcSlicePitch uint64
	DstRowPitch   uint64
	DstSlicePitch uint64

	// BytesPerPixel is the pixel size of image copies, 1 for buffer copies
	BytesPerPixel uint64

	// Staging is the ephemeral host allocation created for a host pointer, it is released with
	// ReleaseStaging once the copy has retired
	Staging         *memory.Allocation
	OutputTimestamp timestamp.Handle
	Dependencies    *timestamp.Container
}

// rowBytes is the number of bytes copied per row
func (p *Properties) rowBytes() uint64 {
	return p.CopySize.X * p.BytesPerPixel
}

func (p *Properties) normalizePitches() {
	p.CopySize = normalizeExtent(p.CopySize)
	if p.BytesPerPixel == 0 {
		p.BytesPerPixel = 1
	}

	if p.SrcRowPitch == 0 {
		p.SrcRowPitch = p.rowBytes()
	}
	if p.SrcSlicePitch == 0 {
		p.SrcSlicePitch = p.SrcRowPitch * p.CopySize.Y
	}
	if p.DstRowPitch == 0 {
		p.DstRowPitch = p.rowBytes()
	}
	if p.DstSlicePitch == 0 {
		p.DstSlicePitch = p.DstRowPitch * p.CopySize.Y
	}
}

// span is the number of bytes from the start of a region to one past its last byte
func span(offset, size Vec3, bytesPerPixel, rowPitch, slicePitch uint64) uint64 {
	return offset.X*bytesPerPixel + (offset.Y+size.Y-1)*rowPitch + (offset.Z+size.Z-1)*slicePitch + size.X*bytesPerPixel
}

func (p *Properties) validate() (common.Result, error) {
	if p.SrcAllocation == nil || p.DstAllocation == nil {
		return common.ErrorInvalidArgument, errors.Wrap(common.ErrorInvalidArgument.ToError(), "copy has no source or destination allocation")
	}
	if p.CopySize.X == 0 {
		return common.ErrorInvalidArgument, errors.Wrap(common.ErrorInvalidArgument.ToError(), "copy size is 0")
	}

	if end := span(p.SrcOffset, p.CopySize, p.BytesPerPixel, p.SrcRowPitch, p.SrcSlicePitch); p.SrcGPUAddress+end > p.SrcAllocation.GPUAddress()+p.SrcAllocation.Size() {
		return common.ErrorInvalidSize, errors.Wrapf(common.ErrorInvalidSize.ToError(),
			"copy reads %d bytes past a source allocation of %d bytes", end, p.SrcAllocation.Size())
	}
	if end := span(p.DstOffset, p.CopySize, p.BytesPerPixel, p.DstRowPitch, p.DstSlicePitch); p.DstGPUAddress+end > p.DstAllocation.GPUAddress()+p.DstAllocation.Size() {
		return common.ErrorInvalidSize, errors.Wrapf(common.ErrorInvalidSize.ToError(),
			"copy writes %d bytes past a destination allocation of %d bytes", end, p.DstAllocation.Size())
	}

	return common.Success, nil
}

// HostSurfaceProvider wraps caller host memory in an allocation the copy engine can address
type HostSurfaceProvider interface {
	CreateStaging(hostMemory []byte) (*memory.Allocation, error)
	ReleaseStaging(allocation *memory.Allocation)
}

// ManagerSurfaceProvider creates staging allocations as external host pointers through a memory manager
type ManagerSurfaceProvider struct {
	Manager memory.Manager
}

var _ HostSurfaceProvider = ManagerSurfaceProvider{}

func (p ManagerSurfaceProvider) CreateStaging(hostMemory []byte) (*memory.Allocation, error) {
	return p.Manager.Allocate(memory.AllocationProperties{
		Type:       memory.AllocationTypeExternalHostPtr,
		Size:       uint64(len(hostMemory)),
		Name:       "blit staging",
		HostMemory: hostMemory,
	})
}

func (p ManagerSurfaceProvider) ReleaseStaging(allocation *memory.Allocation) {
	p.Manager.Free(allocation)
}

// ReadWriteRequest describes a copy between a device allocation and host memory. The host side is either
// HostAllocation or, when that is nil, HostMemory wrapped in a staging allocation.
type ReadWriteRequest struct {
	Direction Direction

	Memory           *memory.Allocation
	MemoryOffset     Vec3
	MemoryRowPitch   uint64
	MemorySlicePitch uint64

	HostMemory      []byte
	HostAllocation  *memory.Allocation
	HostOffset      Vec3
	HostRowPitch    uint64
	HostSlicePitch  uint64
	BytesPerPixel   uint64
	CopySize        Vec3
	OutputTimestamp timestamp.Handle
	Dependencies    *timestamp.Container
}

// ForReadWrite builds Properties for a copy between device memory and the host. The direction decides
// which side is the destination. A staging allocation obtained from provider is recorded in
// Properties.Staging.
func ForReadWrite(request ReadWriteRequest, provider HostSurfaceProvider) (Properties, common.Result, error) {
	if !request.Direction.ReadsHost() && !request.Direction.WritesHost() {
		return Properties{}, common.ErrorInvalidArgument, errors.Wrapf(common.ErrorInvalidArgument.ToError(),
			"%s does not involve host memory", request.Direction)
	}
	if request.Memory == nil {
		return Properties{}, common.ErrorInvalidArgument, errors.Wrap(common.ErrorInvalidArgument.ToError(), "copy has no device allocation")
	}

	host := request.HostAllocation
	var staging *memory.Allocation
	if host == nil {
		if len(request.HostMemory) == 0 {
			return Properties{}, common.ErrorInvalidArgument, errors.Wrap(common.ErrorInvalidArgument.ToError(), "copy has no host memory")
		}
		if provider == nil {
			return Properties{}, common.ErrorInvalidArgument, errors.Wrap(common.ErrorInvalidArgument.ToError(), "host memory needs a staging provider")
		}

		var err error
		staging, err = provider.CreateStaging(request.HostMemory)
		if err != nil {
			res := common.ResultFromError(err)
			return Properties{}, res, errors.Wrap(err, "creating staging allocation")
		}
		host = staging
	}

	props := Properties{
		Direction:       request.Direction,
		CopySize:        request.CopySize,
		BytesPerPixel:   request.BytesPerPixel,
		Staging:         staging,
		OutputTimestamp: request.OutputTimestamp,
		Dependencies:    request.Dependencies,
	}

	if request.Direction.ReadsHost() {
		props.SrcAllocation, props.SrcOffset, props.SrcRowPitch, props.SrcSlicePitch = host, request.HostOffset, request.HostRowPitch, request.HostSlicePitch
		props.DstAllocation, props.DstOffset, props.DstRowPitch, props.DstSlicePitch = request.Memory, request.MemoryOffset, request.MemoryRowPitch, request.MemorySlicePitch
	} else {
		props.SrcAllocation, props.SrcOffset, props.SrcRowPitch, props.SrcSlicePitch = request.Memory, request.MemoryOffset, request.MemoryRowPitch, request.MemorySlicePitch
		props.DstAllocation, props.DstOffset, props.DstRowPitch, props.DstSlicePitch = host, request.HostOffset, request.HostRowPitch, request.HostSlicePitch
	}
	props.SrcGPUAddress = props.SrcAllocation.GPUAddress()
	props.DstGPUAddress = props.DstAllocation.GPUAddress()
	props.normalizePitches()

	res, err := props.validate()
	if err != nil {
		if staging != nil {
			provider.ReleaseStaging(staging)
		}
		return Properties{}, res, err
	}

	return props, common.Success, nil
}

// ReleaseStaging returns the staging allocation, if any, to provider
func (p *Properties) ReleaseStaging(provider HostSurfaceProvider) {
	if p.Staging != nil {
		provider.ReleaseStaging(p.Staging)
		p.Staging = nil
	}
}

// ForCopy builds Properties for a buffer or buffer-region copy between two device allocations
func ForCopy(dst, src *memory.Allocation, dstOffset, srcOffset, copySize Vec3, srcRowPitch, srcSlicePitch, dstRowPitch, dstSlicePitch uint64) (Properties, common.Result, error) {
	if src == nil || dst == nil {
		return Properties{}, common.ErrorInvalidArgument, errors.Wrap(common.ErrorInvalidArgument.ToError(), "copy has no source or destination allocation")
	}

	props := Properties{
		Direction:     BufferToBuffer,
		SrcAllocation: src,
		DstAllocation: dst,
		SrcGPUAddress: src.GPUAddress(),
		DstGPUAddress: dst.GPUAddress(),
		SrcOffset:     srcOffset,
		DstOffset:     dstOffset,
		CopySize:      copySize,
		SrcRowPitch:   srcRowPitch,
		SrcSlicePitch: srcSlicePitch,
		DstRowPitch:   dstRowPitch,
		DstSlicePitch: dstSlicePitch,
	}
	props.normalizePitches()

	res, err := props.validate()
	if err != nil {
		return Properties{}, res, err
	}
	return props, common.Success, nil
}

// ImageCopyRequest describes a copy between two images. Extents and offsets count pixels.
type ImageCopyRequest struct {
	Src, Dst                     *memory.Allocation
	SrcOffset, DstOffset, Extent Vec3
	BytesPerPixel                uint64
	SrcRowPitch, SrcSlicePitch   uint64
	DstRowPitch, DstSlicePitch   uint64
}

func ForImageCopy(request ImageCopyRequest) (Properties, common.Result, error) {
	if request.Src == nil || request.Dst == nil {
		return Properties{}, common.ErrorInvalidArgument, errors.Wrap(common.ErrorInvalidArgument.ToError(), "image copy has no source or destination allocation")
	}

	props := Properties{
		Direction:     ImageToImage,
		SrcAllocation: request.Src,
		DstAllocation: request.Dst,
		SrcGPUAddress: request.Src.GPUAddress(),
		DstGPUAddress: request.Dst.GPUAddress(),
		SrcOffset:     request.SrcOffset,
		DstOffset:     request.DstOffset,
		CopySize:      request.Extent,
		BytesPerPixel: request.BytesPerPixel,
		SrcRowPitch:   request.SrcRowPitch,
		SrcSlicePitch: request.SrcSlicePitch,
		DstRowPitch:   request.DstRowPitch,
		DstSlicePitch: request.DstSlicePitch,
	}
	props.normalizePitches()

	res, err := props.validate()
	if err != nil {
		return Properties{}, res, err
	}
	return props, common.Success, nil
}

// ForAuxTranslation builds Properties for an in-place translation of a whole allocation
func ForAuxTranslation(allocation *memory.Allocation) Properties {
	if allocation == nil {
		panic("aux translation of a nil allocation")
	}

	props := Properties{
		Direction:      BufferToBuffer,
		AuxTranslation: true,
		SrcAllocation:  allocation,
		DstAllocation:  allocation,
		SrcGPUAddress:  allocation.GPUAddress(),
		DstGPUAddress:  allocation.GPUAddress(),
		CopySize:       Vec3{X: allocation.Size()},
	}
	props.normalizePitches()
	return props
}
