package memutils_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/submission/memutils"
)

func TestAlign(t *testing.T) {
	require.Equal(t, uint64(0), memutils.AlignUp(uint64(0), 64))
	require.Equal(t, uint64(64), memutils.AlignUp(uint64(1), 64))
	require.Equal(t, uint64(64), memutils.AlignUp(uint64(64), 64))
	require.Equal(t, uint64(128), memutils.AlignUp(uint64(65), 64))
	require.Equal(t, uint64(7), memutils.AlignUp(uint64(7), 0))

	require.Equal(t, uint64(64), memutils.AlignDown(uint64(127), 64))
	require.True(t, memutils.IsAligned(uint64(4096), memutils.PageSize))
	require.False(t, memutils.IsAligned(uint64(4095), memutils.PageSize))
}

func TestCeilDiv(t *testing.T) {
	require.Equal(t, uint64(3), memutils.CeilDiv(uint64(40000), 16384))
	require.Equal(t, uint64(1), memutils.CeilDiv(uint64(16384), 16384))
}

func TestCheckPow2(t *testing.T) {
	require.NoError(t, memutils.CheckPow2(64, "alignment"))
	require.NoError(t, memutils.CheckPow2(uint64(1), "alignment"))

	err := memutils.CheckPow2(48, "alignment")
	require.Error(t, err)
	require.True(t, errors.Is(err, memutils.PowerOfTwoError))
	require.Equal(t, "alignment is 48: number must be a power of two", err.Error())

	require.Error(t, memutils.CheckPow2(0, "alignment"))
}

func TestDetailedStatistics(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	stats.AddAllocation(100)
	stats.AddAllocation(40)

	var other memutils.DetailedStatistics
	other.Clear()
	other.AddAllocation(500)
	stats.AddDetailedStatistics(&other)

	require.Equal(t, 3, stats.AllocationCount)
	require.Equal(t, uint64(640), stats.AllocationBytes)
	require.Equal(t, uint64(40), stats.AllocationSizeMin)
	require.Equal(t, uint64(500), stats.AllocationSizeMax)

	writer := jwriter.NewWriter()
	o := writer.Object()
	stats.PrintJSON(&o)
	o.End()
	require.NoError(t, writer.Error())
	require.JSONEq(t, `{"AllocationCount":3,"AllocationBytes":640,"AllocationSizeMin":40,"AllocationSizeMax":500}`, string(writer.Bytes()))
}
