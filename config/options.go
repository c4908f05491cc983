package config

import (
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/memutils"
)

const (
	DefaultHeapSize uint64 = 64 * 1024
	// DefaultContainerCommandBufferSize is the usable size of a command container's buffers
	DefaultContainerCommandBufferSize uint64 = 256 * 1024
	// DefaultQueueCommandBufferSize is the usable size of each of a command queue's two buffers
	DefaultQueueCommandBufferSize uint64 = 128 * 1024
	DefaultTimestampTagsPerChunk  uint32 = 64
)

// Options holds the driver configuration consumed by devices, containers, and queues. A zero value in a
// field marked as an override defers to the hardware generation's capability table.
type Options struct {
	Generation string `mapstructure:"generation"`
	// Bindless allocates only the indirect-object heap in command containers
	Bindless bool `mapstructure:"bindless"`

	DefaultHeapSize uint64 `mapstructure:"default_heap_size"`
	// ForceHeapSize overrides the initial size of every heap kind
	ForceHeapSize              uint64 `mapstructure:"force_heap_size"`
	ContainerCommandBufferSize uint64 `mapstructure:"container_command_buffer_size"`
	QueueCommandBufferSize     uint64 `mapstructure:"queue_command_buffer_size"`
	// SurfaceStatePrologueSize overrides the reserved prologue of the surface-state heap
	SurfaceStatePrologueSize uint64 `mapstructure:"surface_state_prologue_size"`

	// LimitBlitterMaxWidth and LimitBlitterMaxHeight override the generation's maximum blit extent
	LimitBlitterMaxWidth  uint64 `mapstructure:"limit_blitter_max_width"`
	LimitBlitterMaxHeight uint64 `mapstructure:"limit_blitter_max_height"`
	// Enable2DBlit packs linear copies into rectangles on generations that support it
	Enable2DBlit bool `mapstructure:"enable_2d_blit"`

	// CompletionTracking enables reading timestamp packets to decide whether they completed. When it is
	// disabled every packet reports incomplete.
	CompletionTracking    bool   `mapstructure:"completion_tracking"`
	TimestampPacketCount  uint32 `mapstructure:"timestamp_packet_count"`
	TimestampTagsPerChunk uint32 `mapstructure:"timestamp_tags_per_chunk"`

	// ExternallySynchronized drops the locks of the device's heap pool and timestamp arena. Only valid when
	// a single goroutine drives every container and queue of the device.
	ExternallySynchronized bool `mapstructure:"externally_synchronized"`

	LogLevel string `mapstructure:"log_level"`
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Generation:                 "gen12lp",
		DefaultHeapSize:            DefaultHeapSize,
		ContainerCommandBufferSize: DefaultContainerCommandBufferSize,
		QueueCommandBufferSize:     DefaultQueueCommandBufferSize,
		CompletionTracking:         true,
		TimestampTagsPerChunk:      DefaultTimestampTagsPerChunk,
		LogLevel:                   "info",
	}
}

// Validate checks that sizes are usable and that the log level can be parsed
func (o *Options) Validate() error {
	if o.Generation == "" {
		return errors.New("generation must be set")
	}

	if o.DefaultHeapSize == 0 {
		return errors.New("default_heap_size must be greater than 0")
	}

	if o.ContainerCommandBufferSize == 0 || o.QueueCommandBufferSize == 0 {
		return errors.New("command buffer sizes must be greater than 0")
	}

	if o.TimestampTagsPerChunk == 0 {
		return errors.New("timestamp_tags_per_chunk must be greater than 0")
	}

	if o.SurfaceStatePrologueSize != 0 && !memutils.IsAligned(o.SurfaceStatePrologueSize, memutils.CacheLineSize) {
		return errors.Newf("surface_state_prologue_size must be a multiple of %d, got %d", memutils.CacheLineSize, o.SurfaceStatePrologueSize)
	}

	_, err := o.SlogLevel()
	return err
}

// HeapSize returns the initial size of a heap
func (o *Options) HeapSize() uint64 {
	if o.ForceHeapSize != 0 {
		return o.ForceHeapSize
	}
	return o.DefaultHeapSize
}

// SlogLevel parses LogLevel
func (o *Options) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(o.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}

	return slog.LevelInfo, errors.Newf("log_level must be one of debug, info, warn, error: got %q", o.LogLevel)
}
