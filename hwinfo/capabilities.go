package hwinfo

import "github.com/vkngwrapper/submission/memutils"

// Generation is an opaque tag naming a hardware generation
type Generation string

const (
	DefaultMaxBlitWidth  uint64 = 0x4000
	DefaultMaxBlitHeight uint64 = 0x4000

	// DefaultSurfaceStatePrologueSize is the number of bytes reserved at the start of every surface-state heap
	// for the scratch and global surface states
	DefaultSurfaceStatePrologueSize uint64 = 2 * memutils.CacheLineSize
)

// Capabilities is the per-generation capability table selected once when a device is created
type Capabilities struct {
	Generation Generation

	// MaxBlitWidth and MaxBlitHeight bound a single copy-engine command, in bytes and rows
	MaxBlitWidth  uint64
	MaxBlitHeight uint64
	// MaxFillPatternSize is the largest fill pattern the copy engine accepts natively
	MaxFillPatternSize uint64
	// TimestampPacketCount is the number of packets per timestamp node
	TimestampPacketCount uint32
	// Supports2DBlit permits packing a linear copy into width x height rectangles
	Supports2DBlit bool

	HeapAlignment            uint64
	SurfaceStatePrologueSize uint64

	// IsFillPatternSupported reports whether the copy engine can fill with a pattern of the given size
	IsFillPatternSupported func(patternSize uint64) bool
	// BytesPerPixel selects the pixel size used when a linear copy is packed into a 2D blit
	BytesPerPixel func(size, srcAddress, dstAddress uint64) uint64
}

// PowerOfTwoFillPatterns accepts the pattern sizes 1, 2, 4, 8 and 16 up to maxPatternSize
func PowerOfTwoFillPatterns(maxPatternSize uint64) func(uint64) bool {
	return func(patternSize uint64) bool {
		switch patternSize {
		case 1, 2, 4, 8, 16:
			return patternSize <= maxPatternSize
		}
		return false
	}
}

// LargestCommonBytesPerPixel returns the largest of 16, 8, 4, 2, 1 that divides the size and both addresses
func LargestCommonBytesPerPixel(size, srcAddress, dstAddress uint64) uint64 {
	for _, bpp := range []uint64{16, 8, 4, 2} {
		if size%bpp == 0 && srcAddress%bpp == 0 && dstAddress%bpp == 0 {
			return bpp
		}
	}
	return 1
}

func baseCapabilities(generation Generation) Capabilities {
	return Capabilities{
		Generation:               generation,
		MaxBlitWidth:             DefaultMaxBlitWidth,
		MaxBlitHeight:            DefaultMaxBlitHeight,
		MaxFillPatternSize:       4,
		TimestampPacketCount:     1,
		HeapAlignment:            memutils.PageSize,
		SurfaceStatePrologueSize: DefaultSurfaceStatePrologueSize,
		IsFillPatternSupported:   PowerOfTwoFillPatterns(4),
		BytesPerPixel:            func(size, srcAddress, dstAddress uint64) uint64 { return 1 },
	}
}
