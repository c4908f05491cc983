package blit_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/submission/blit"
	mock_blit "github.com/vkngwrapper/submission/blit/mocks"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/memory"
	"go.uber.org/mock/gomock"
)

func TestForReadWriteStaging(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mock_blit.NewMockHostSurfaceProvider(ctrl)
	_, manager := deviceWith(t, nil)

	buffer := allocate(t, manager, memory.AllocationTypeBuffer, 8192)
	hostMemory := make([]byte, 4096)
	staging := allocate(t, manager, memory.AllocationTypeBufferHostMemory, 4096)

	provider.EXPECT().CreateStaging(hostMemory).Return(staging, nil)

	props, res, err := blit.ForReadWrite(blit.ReadWriteRequest{
		Direction:    blit.HostPtrToBuffer,
		Memory:       buffer,
		MemoryOffset: blit.Vec3{X: 256},
		HostMemory:   hostMemory,
		CopySize:     blit.Vec3{X: 4096},
	}, provider)
	require.NoError(t, err)
	require.Equal(t, common.Success, res)

	require.Same(t, staging, props.SrcAllocation)
	require.Same(t, buffer, props.DstAllocation)
	require.Same(t, staging, props.Staging)
	require.Equal(t, staging.GPUAddress(), props.SrcGPUAddress)
	require.Equal(t, uint64(256), props.DstOffset.X)
	require.Equal(t, blit.Vec3{X: 4096, Y: 1, Z: 1}, props.CopySize)

	provider.EXPECT().ReleaseStaging(staging)
	props.ReleaseStaging(provider)
	require.Nil(t, props.Staging)
	props.ReleaseStaging(provider)
}

func TestForReadWriteDirection(t *testing.T) {
	_, manager := deviceWith(t, nil)
	buffer := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	host := allocate(t, manager, memory.AllocationTypeBufferHostMemory, 4096)

	props, _, err := blit.ForReadWrite(blit.ReadWriteRequest{
		Direction:      blit.BufferToHostPtr,
		Memory:         buffer,
		HostAllocation: host,
		CopySize:       blit.Vec3{X: 1024, Y: 2},
		HostRowPitch:   2048,
	}, nil)
	require.NoError(t, err)
	require.Same(t, buffer, props.SrcAllocation)
	require.Same(t, host, props.DstAllocation)
	require.Nil(t, props.Staging)
	require.Equal(t, uint64(2048), props.DstRowPitch)
	require.Equal(t, uint64(1024), props.SrcRowPitch)

	_, res, err := blit.ForReadWrite(blit.ReadWriteRequest{
		Direction:      blit.BufferToBuffer,
		Memory:         buffer,
		HostAllocation: host,
		CopySize:       blit.Vec3{X: 16},
	}, nil)
	require.Equal(t, common.ErrorInvalidArgument, res)
	require.Error(t, err)

	_, res, err = blit.ForReadWrite(blit.ReadWriteRequest{
		Direction: blit.HostPtrToBuffer,
		Memory:    buffer,
		CopySize:  blit.Vec3{X: 16},
	}, nil)
	require.Equal(t, common.ErrorInvalidArgument, res)
	require.Error(t, err)
}

func TestForReadWriteReleasesStagingOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mock_blit.NewMockHostSurfaceProvider(ctrl)
	_, manager := deviceWith(t, nil)

	buffer := allocate(t, manager, memory.AllocationTypeBuffer, 4096)
	hostMemory := make([]byte, 8192)
	staging := allocate(t, manager, memory.AllocationTypeBufferHostMemory, 8192)

	gomock.InOrder(
		provider.EXPECT().CreateStaging(hostMemory).Return(staging, nil),
		provider.EXPECT().ReleaseStaging(staging),
	)

	_, res, err := blit.ForReadWrite(blit.ReadWriteRequest{
		Direction:  blit.HostPtrToBuffer,
		Memory:     buffer,
		HostMemory: hostMemory,
		CopySize:   blit.Vec3{X: 8192},
	}, provider)
	require.Equal(t, common.ErrorInvalidSize, res)
	require.Error(t, err)
}

func TestForReadWriteStagingFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mock_blit.NewMockHostSurfaceProvider(ctrl)
	_, manager := deviceWith(t, nil)
	buffer := allocate(t, manager, memory.AllocationTypeBuffer, 4096)

	provider.EXPECT().CreateStaging(gomock.Any()).Return(nil, errors.Wrap(common.ErrorOutOfDeviceMemory.ToError(), "no host memory"))

	_, res, err := blit.ForReadWrite(blit.ReadWriteRequest{
		Direction:  blit.HostPtrToImage,
		Memory:     buffer,
		HostMemory: make([]byte, 64),
		CopySize:   blit.Vec3{X: 16},
	}, provider)
	require.Equal(t, common.ErrorOutOfDeviceMemory, res)
	require.Error(t, err)
}

func TestManagerSurfaceProvider(t *testing.T) {
	_, manager := deviceWith(t, nil)
	provider := blit.ManagerSurfaceProvider{Manager: manager}

	hostMemory := make([]byte, 4096)
	hostMemory[10] = 0x5A

	staging, err := provider.CreateStaging(hostMemory)
	require.NoError(t, err)
	require.Equal(t, memory.AllocationTypeExternalHostPtr, staging.Type())
	require.False(t, staging.IsDeviceResident())
	require.Equal(t, byte(0x5A), staging.CPUData()[10])

	count := manager.AllocationCount()
	provider.ReleaseStaging(staging)
	require.Equal(t, count-1, manager.AllocationCount())
}

func TestForAuxTranslation(t *testing.T) {
	_, manager := deviceWith(t, nil)
	buffer := allocate(t, manager, memory.AllocationTypeBuffer, 12288)

	props := blit.ForAuxTranslation(buffer)
	require.True(t, props.AuxTranslation)
	require.Same(t, buffer, props.SrcAllocation)
	require.Same(t, buffer, props.DstAllocation)
	require.Equal(t, props.SrcGPUAddress, props.DstGPUAddress)
	require.Equal(t, blit.Vec3{X: 12288, Y: 1, Z: 1}, props.CopySize)

	require.Panics(t, func() {
		blit.ForAuxTranslation(nil)
	})
}

func TestDirection(t *testing.T) {
	require.Equal(t, "HostPtrToImage", blit.HostPtrToImage.String())
	require.Equal(t, "Direction(42)", blit.Direction(42).String())
	require.True(t, blit.HostPtrToImage.ReadsHost())
	require.True(t, blit.HostPtrToImage.IsImage())
	require.True(t, blit.ImageToHostPtr.WritesHost())
	require.False(t, blit.BufferToBuffer.ReadsHost())
	require.False(t, blit.BufferToBuffer.IsImage())
}
