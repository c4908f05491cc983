package hwinfo_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/submission/hwinfo"
)

func TestBuiltinGenerations(t *testing.T) {
	require.Subset(t, hwinfo.Available(), []hwinfo.Generation{hwinfo.Gen12LP, hwinfo.XeHPG, hwinfo.XeHPC})

	gen12, err := hwinfo.Lookup(hwinfo.Gen12LP)
	require.NoError(t, err)
	require.Equal(t, hwinfo.Gen12LP, gen12.Generation)
	require.Equal(t, uint64(0x4000), gen12.MaxBlitWidth)
	require.True(t, gen12.IsFillPatternSupported(4))
	require.False(t, gen12.IsFillPatternSupported(8))
	require.False(t, gen12.IsFillPatternSupported(3))

	hpc, err := hwinfo.Lookup(hwinfo.XeHPC)
	require.NoError(t, err)
	require.True(t, hpc.Supports2DBlit)
	require.True(t, hpc.IsFillPatternSupported(16))
	require.False(t, hpc.IsFillPatternSupported(32))
	require.Equal(t, uint64(8), hpc.BytesPerPixel(64, 0x1008, 0x2000))
}

func TestLookupUnknown(t *testing.T) {
	_, err := hwinfo.Lookup("gen0")
	require.True(t, errors.Is(err, hwinfo.ErrUnknownGeneration))
}

func TestRegisterOverride(t *testing.T) {
	hwinfo.Register("test_gen", func() hwinfo.Capabilities {
		caps, err := hwinfo.Lookup(hwinfo.Gen12LP)
		if err != nil {
			panic(err)
		}
		caps.MaxBlitWidth = 128
		return caps
	})
	defer hwinfo.Unregister("test_gen")

	caps, err := hwinfo.Lookup("test_gen")
	require.NoError(t, err)
	require.Equal(t, hwinfo.Generation("test_gen"), caps.Generation)
	require.Equal(t, uint64(128), caps.MaxBlitWidth)
}
