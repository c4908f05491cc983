package device

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/config"
	"github.com/vkngwrapper/submission/heap"
	"github.com/vkngwrapper/submission/hwinfo"
	"github.com/vkngwrapper/submission/memory"
	"github.com/vkngwrapper/submission/timestamp"
)

// Device bundles the collaborators shared by every container and queue created for one device: the
// memory manager, the capability table, the heap pool, and the timestamp arena.
type Device struct {
	logger       *slog.Logger
	manager      memory.Manager
	completion   heap.CompletionSource
	options      config.Options
	capabilities hwinfo.Capabilities

	heapPool   *heap.Pool
	timestamps *timestamp.Arena
}

// New creates a Device. completion is the execution layer whose retired stamps decide when pooled
// allocations and timestamp nodes become reusable.
func New(logger *slog.Logger, manager memory.Manager, completion heap.CompletionSource, options config.Options) (*Device, error) {
	if logger == nil || manager == nil || completion == nil {
		panic("device created without a logger, memory manager, or completion source")
	}

	err := options.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid device options")
	}

	capabilities, err := hwinfo.Lookup(hwinfo.Generation(options.Generation))
	if err != nil {
		return nil, err
	}

	packetCount := capabilities.TimestampPacketCount
	if options.TimestampPacketCount != 0 {
		packetCount = options.TimestampPacketCount
	}

	logger.Debug("Device::New",
		slog.String("Generation", options.Generation),
		slog.Bool("Bindless", options.Bindless),
		slog.Int("TimestampPacketCount", int(packetCount)),
	)

	return &Device{
		logger:       logger,
		manager:      manager,
		completion:   completion,
		options:      options,
		capabilities: capabilities,
		heapPool:     heap.NewPool(logger, manager, completion, heap.PoolOptions{ExternallySynchronized: options.ExternallySynchronized}),
		timestamps: timestamp.NewArena(logger, manager, timestamp.ArenaOptions{
			PacketCount:            packetCount,
			TagsPerChunk:           options.TimestampTagsPerChunk,
			CompletionTracking:     options.CompletionTracking,
			Completion:             completion,
			ExternallySynchronized: options.ExternallySynchronized,
		}),
	}, nil
}

func (d *Device) Logger() *slog.Logger {
	return d.logger
}

func (d *Device) MemoryManager() memory.Manager {
	return d.manager
}

func (d *Device) Completion() heap.CompletionSource {
	return d.completion
}

func (d *Device) Options() config.Options {
	return d.options
}

func (d *Device) Capabilities() hwinfo.Capabilities {
	return d.capabilities
}

func (d *Device) HeapPool() *heap.Pool {
	return d.heapPool
}

func (d *Device) TimestampArena() *timestamp.Arena {
	return d.timestamps
}

// SurfaceStatePrologueSize is the number of bytes reserved at the start of every surface-state heap
func (d *Device) SurfaceStatePrologueSize() uint64 {
	if d.options.SurfaceStatePrologueSize != 0 {
		return d.options.SurfaceStatePrologueSize
	}
	return d.capabilities.SurfaceStatePrologueSize
}

// BlitLimits returns the maximum width and height of one copy-engine command after configuration overrides
func (d *Device) BlitLimits() (width, height uint64) {
	width, height = d.capabilities.MaxBlitWidth, d.capabilities.MaxBlitHeight
	if d.options.LimitBlitterMaxWidth != 0 {
		width = d.options.LimitBlitterMaxWidth
	}
	if d.options.LimitBlitterMaxHeight != 0 {
		height = d.options.LimitBlitterMaxHeight
	}
	return width, height
}

// Destroy releases the heap pool and the timestamp arena. Every container and queue must be destroyed first.
func (d *Device) Destroy() {
	d.heapPool.Destroy()
	d.timestamps.ReclaimAll()
	d.timestamps.Destroy()
}
