package hwinfo

const (
	Gen12LP Generation = "gen12lp"
	XeHPG   Generation = "xe_hpg"
	XeHPC   Generation = "xe_hpc"
)

func init() {
	Register(Gen12LP, func() Capabilities {
		return baseCapabilities(Gen12LP)
	})

	Register(XeHPG, func() Capabilities {
		caps := baseCapabilities(XeHPG)
		caps.TimestampPacketCount = 4
		caps.HeapAlignment = 64 * 1024
		return caps
	})

	Register(XeHPC, func() Capabilities {
		caps := baseCapabilities(XeHPC)
		caps.MaxFillPatternSize = 16
		caps.IsFillPatternSupported = PowerOfTwoFillPatterns(16)
		caps.TimestampPacketCount = 16
		caps.Supports2DBlit = true
		caps.HeapAlignment = 64 * 1024
		caps.BytesPerPixel = LargestCommonBytesPerPixel
		return caps
	})
}
