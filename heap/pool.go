package heap

import (
	"log/slog"

	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/internal/utils"
	"github.com/vkngwrapper/submission/memory"
	"github.com/vkngwrapper/submission/memutils"
)

// CompletionSource reports the highest retired completion stamp
type CompletionSource interface {
	CompletedStamp() common.Stamp
}

// PoolStatistics describes the allocations held by a Pool
type PoolStatistics struct {
	Reuses   int
	Misses   int
	Reusable memutils.DetailedStatistics
	Deferred memutils.DetailedStatistics
}

// PoolOptions configures a Pool
type PoolOptions struct {
	// ExternallySynchronized skips locking, the caller guarantees that the pool is never used from two
	// goroutines at once
	ExternallySynchronized bool
}

// Pool holds allocations surrendered by containers and queues. Reusable allocations are handed back out
// by Obtain once the GPU is done with them; allocations stored for release are freed by Clean once their
// task count retires. Obtain sweeps the release list first without waiting on a concurrent sweep. Pool is
// safe for concurrent use unless it was created ExternallySynchronized.
type Pool struct {
	logger     *slog.Logger
	manager    memory.Manager
	completion CompletionSource

	mutex    utils.OptionalMutex
	reusable []*memory.Allocation
	deferred []*memory.Allocation
	held     *swiss.Map[uint64, *memory.Allocation]
	reuses   int
	misses   int

	sweepMutex utils.OptionalMutex
}

func NewPool(logger *slog.Logger, manager memory.Manager, completion CompletionSource, options PoolOptions) *Pool {
	return &Pool{
		logger:     logger,
		manager:    manager,
		completion: completion,
		mutex:      utils.OptionalMutex{UseMutex: !options.ExternallySynchronized},
		held:       swiss.NewMap[uint64, *memory.Allocation](42),
		sweepMutex: utils.OptionalMutex{UseMutex: !options.ExternallySynchronized},
	}
}

func (p *Pool) track(allocation *memory.Allocation) {
	_, alreadyHeld := p.held.Get(allocation.ID())
	if alreadyHeld {
		panic("attempting to store an allocation in the heap pool twice")
	}
	p.held.Put(allocation.ID(), allocation)
}

// Obtain returns an idle pooled allocation of the requested type that is at least properties.Size bytes
// large, or allocates a new one from the memory manager. reused is true when the allocation came from
// the pool.
func (p *Pool) Obtain(properties memory.AllocationProperties) (allocation *memory.Allocation, reused bool, err error) {
	p.Sweep()
	completed := p.completion.CompletedStamp()

	p.mutex.Lock()
	for index, candidate := range p.reusable {
		if candidate.Type() != properties.Type || candidate.Size() < properties.Size {
			continue
		}
		if !memutils.IsAligned(candidate.GPUAddress(), properties.Alignment) {
			continue
		}
		if candidate.IsUsedByGPU(completed) {
			continue
		}

		p.reusable = append(p.reusable[:index], p.reusable[index+1:]...)
		p.held.Delete(candidate.ID())
		p.reuses++
		p.mutex.Unlock()

		p.logger.Debug("Pool::Obtain reused", slog.Uint64("ID", candidate.ID()), slog.Uint64("Size", candidate.Size()))
		return candidate, true, nil
	}
	p.misses++
	p.mutex.Unlock()

	allocation, err = p.manager.Allocate(properties)
	if err != nil {
		return nil, false, err
	}
	return allocation, false, nil
}

// StoreForReuse places an allocation in the pool so that a later Obtain can hand it out again
func (p *Pool) StoreForReuse(allocation *memory.Allocation) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.track(allocation)
	p.reusable = append(p.reusable, allocation)
}

// StoreForRelease frees an allocation once the GPU has finished with it. Idle allocations are freed
// immediately.
func (p *Pool) StoreForRelease(allocation *memory.Allocation) {
	if !allocation.IsUsedByGPU(p.completion.CompletedStamp()) {
		p.manager.Free(allocation)
		return
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.track(allocation)
	p.deferred = append(p.deferred, allocation)
}

// Clean frees every allocation stored for release whose task count has retired and returns the number freed
func (p *Pool) Clean() int {
	completed := p.completion.CompletedStamp()

	p.mutex.Lock()
	var retired []*memory.Allocation
	pending := p.deferred[:0]
	for _, allocation := range p.deferred {
		if allocation.IsUsedByGPU(completed) {
			pending = append(pending, allocation)
			continue
		}
		retired = append(retired, allocation)
		p.held.Delete(allocation.ID())
	}
	for i := len(pending); i < len(p.deferred); i++ {
		p.deferred[i] = nil
	}
	p.deferred = pending
	p.mutex.Unlock()

	for _, allocation := range retired {
		p.manager.Free(allocation)
	}

	if len(retired) > 0 {
		p.logger.Debug("Pool::Clean", slog.Int("Freed", len(retired)))
	}
	return len(retired)
}

// Sweep runs Clean unless another goroutine is already sweeping, and returns the number freed
func (p *Pool) Sweep() int {
	if !p.sweepMutex.TryLock() {
		return 0
	}
	defer p.sweepMutex.Unlock()

	return p.Clean()
}

// Destroy frees every allocation held by the pool. The caller must ensure the GPU is idle.
func (p *Pool) Destroy() {
	p.mutex.Lock()
	allocations := append(p.reusable, p.deferred...)
	p.reusable = nil
	p.deferred = nil
	p.held.Clear()
	p.mutex.Unlock()

	for _, allocation := range allocations {
		p.manager.Free(allocation)
	}
}

// Contains reports whether the pool currently holds the allocation
func (p *Pool) Contains(allocation *memory.Allocation) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	_, ok := p.held.Get(allocation.ID())
	return ok
}

func (p *Pool) Statistics() PoolStatistics {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	stats := PoolStatistics{Reuses: p.reuses, Misses: p.misses}
	stats.Reusable.Clear()
	stats.Deferred.Clear()
	for _, allocation := range p.reusable {
		stats.Reusable.AddAllocation(allocation.Size())
	}
	for _, allocation := range p.deferred {
		stats.Deferred.AddAllocation(allocation.Size())
	}
	return stats
}

func (p *Pool) WriteStats(writer *jwriter.Writer) {
	stats := p.Statistics()

	o := writer.Object()
	defer o.End()

	o.Name("Reuses").Int(stats.Reuses)
	o.Name("Misses").Int(stats.Misses)

	reusable := o.Name("Reusable").Object()
	stats.Reusable.PrintJSON(&reusable)
	reusable.End()

	deferred := o.Name("Deferred").Object()
	stats.Deferred.PrintJSON(&deferred)
	deferred.End()
}
