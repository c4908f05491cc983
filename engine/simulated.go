package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/submission/common"
	"github.com/vkngwrapper/submission/internal/utils"
	"github.com/vkngwrapper/submission/memory"
)

// Submission is a batch recorded by Simulated
type Submission struct {
	Batch     BatchBuffer
	Residency []*memory.Allocation
	Stamp     common.Stamp
}

// SimulatedOptions configures a Simulated execution layer
type SimulatedOptions struct {
	// AutoRetire retires every submission as soon as it has been executed
	AutoRetire bool
	// Executor is called for each submission before it is retired, it can write completion data into the
	// submitted allocations
	Executor func(submission *Submission)
}

// Simulated is an execution layer that runs entirely on the host. Submissions only retire when Retire is
// called, unless AutoRetire is set.
type Simulated struct {
	logger  *slog.Logger
	options SimulatedOptions

	mutex       sync.Mutex
	lastStamp   common.Stamp
	submissions []Submission

	completed atomic.Uint64
	hung      atomic.Bool
}

var _ Submitter = &Simulated{}

func NewSimulated(logger *slog.Logger, options SimulatedOptions) *Simulated {
	return &Simulated{
		logger:  logger,
		options: options,
	}
}

func (s *Simulated) Submit(batch *BatchBuffer, residency []*memory.Allocation) (common.Stamp, error) {
	if batch == nil || batch.CommandBuffer == nil {
		return 0, errors.Wrap(common.ErrorInvalidArgument.ToError(), "batch buffer has no command buffer")
	}

	if s.hung.Load() {
		return 0, errors.Wrap(common.ErrorDeviceLost.ToError(), "submitting to a hung engine")
	}

	s.mutex.Lock()
	s.lastStamp++
	submission := Submission{
		Batch:     *batch,
		Residency: append([]*memory.Allocation(nil), residency...),
		Stamp:     s.lastStamp,
	}
	s.submissions = append(s.submissions, submission)
	s.mutex.Unlock()

	s.logger.Debug("Simulated::Submit",
		slog.Uint64("Stamp", uint64(submission.Stamp)),
		slog.Uint64("StartOffset", batch.StartOffset),
		slog.Uint64("UsedSize", batch.UsedSize),
		slog.Int("Residency", len(residency)),
	)

	if s.options.Executor != nil {
		s.options.Executor(&submission)
	}

	if s.options.AutoRetire {
		s.Retire(submission.Stamp)
	}

	return submission.Stamp, nil
}

// Retire marks every stamp up to and including stamp as complete
func (s *Simulated) Retire(stamp common.Stamp) {
	for {
		current := s.completed.Load()
		if uint64(stamp) <= current {
			return
		}
		if s.completed.CompareAndSwap(current, uint64(stamp)) {
			return
		}
	}
}

// RetireAll retires every submission made so far
func (s *Simulated) RetireAll() {
	s.mutex.Lock()
	last := s.lastStamp
	s.mutex.Unlock()

	s.Retire(last)
}

// MarkHung makes every pending and future wait report WaitGPUHang
func (s *Simulated) MarkHung() {
	s.hung.Store(true)
}

func (s *Simulated) WaitForStamp(stamp common.Stamp, params WaitParams) WaitStatus {
	timeout := params.Timeout
	if params.Indefinite {
		timeout = -1
	}

	outcome := utils.PollUntil(timeout, func() bool {
		return s.CompletedStamp() >= stamp
	}, s.hung.Load)

	switch outcome {
	case utils.PollReady:
		return WaitReady
	case utils.PollAborted:
		return WaitGPUHang
	}
	return WaitNotReady
}

func (s *Simulated) CompletedStamp() common.Stamp {
	return common.Stamp(s.completed.Load())
}

func (s *Simulated) PeekTaskCount() common.Stamp {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.lastStamp + 1
}

// Submissions returns a copy of every submission recorded so far
func (s *Simulated) Submissions() []Submission {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]Submission(nil), s.submissions...)
}
