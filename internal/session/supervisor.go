// Package session manages per-call concurrency: at most one turn execution
// per call, cancel-and-replace on newer events, and all-or-nothing state
// commits. Turns for different calls run fully in parallel.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/omvyx/voice-receptionist/internal/engine"
	"github.com/omvyx/voice-receptionist/internal/observability/metrics"
	"github.com/omvyx/voice-receptionist/internal/store"
	"github.com/omvyx/voice-receptionist/pkg/logging"
)

// Pipeline runs one turn against prior state. Implemented by engine.Pipeline.
type Pipeline interface {
	RunTurn(ctx context.Context, prior engine.CallState, userText string) (*engine.TurnResult, error)
}

// FlushFunc delivers a completed turn's utterances to the transport. It is
// called only after the turn's state delta has been committed.
type FlushFunc func(ctx context.Context, utterances []string) error

// TurnRequest describes one turn to execute.
type TurnRequest struct {
	CallID     string
	ResponseID int
	UserText   string
	Flush      FlushFunc
}

// Supervisor owns the single-active-turn-per-call rule. It is the only
// writer path into the conversation store.
type Supervisor struct {
	pipeline    Pipeline
	store       store.Store
	logger      *logging.Logger
	metrics     *metrics.TurnMetrics
	turnTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	calls map[string]*callSession
}

// callSession tracks the in-flight turn for one call.
type callSession struct {
	mu      sync.Mutex
	current *turnTask
}

type turnTask struct {
	responseID int
	cancel     context.CancelFunc
	done       chan struct{}
}

// Config wires the supervisor.
type Config struct {
	Pipeline Pipeline
	Store    store.Store
	Logger   *logging.Logger
	Metrics  *metrics.TurnMetrics
	// TurnTimeout bounds one turn execution; zero disables the bound.
	TurnTimeout time.Duration
}

// NewSupervisor creates a session supervisor.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.Pipeline == nil {
		panic("session: pipeline required")
	}
	if cfg.Store == nil {
		panic("session: store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		pipeline:    cfg.Pipeline,
		store:       cfg.Store,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		turnTimeout: cfg.TurnTimeout,
		ctx:         ctx,
		cancel:      cancel,
		calls:       make(map[string]*callSession),
	}
}

// StartTurn begins a turn execution, cancelling whatever turn is still
// running for the same call. It returns immediately; the turn runs on its
// own goroutine.
func (s *Supervisor) StartTurn(req TurnRequest) {
	sess := s.session(req.CallID)

	taskCtx, cancel := context.WithCancel(s.ctx)
	task := &turnTask{
		responseID: req.ResponseID,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	sess.mu.Lock()
	prev := sess.current
	if prev != nil {
		prev.cancel()
	}
	sess.current = task
	sess.mu.Unlock()

	s.metrics.ObserveTurnStarted()
	s.wg.Add(1)
	go s.run(taskCtx, task, prev, req)
}

// Interrupt cancels the call's in-flight turn, if any, without starting a
// replacement.
func (s *Supervisor) Interrupt(callID string) {
	s.mu.Lock()
	sess, ok := s.calls[callID]
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	if sess.current != nil {
		sess.current.cancel()
	}
	sess.mu.Unlock()
}

// EndCall cancels any in-flight turn and discards the call's state.
func (s *Supervisor) EndCall(ctx context.Context, callID string) {
	s.mu.Lock()
	sess, ok := s.calls[callID]
	delete(s.calls, callID)
	s.mu.Unlock()

	if ok {
		sess.mu.Lock()
		current := sess.current
		sess.mu.Unlock()
		if current != nil {
			current.cancel()
			select {
			case <-current.done:
			case <-ctx.Done():
			}
		}
	}

	if err := s.store.End(ctx, callID); err != nil && !isCancellation(err) {
		s.logger.Warn("session: failed to discard call state", "call_id", callID, "error", err)
	}
}

// Shutdown cancels all in-flight turns and waits for them to unwind.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) session(callID string) *callSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.calls[callID]
	if !ok {
		sess = &callSession{}
		s.calls[callID] = sess
	}
	return sess
}

// run executes one turn end to end. The store only ever sees whole deltas
// from turns that ran to natural completion; a cancelled turn unwinds at
// its next suspension point and persists nothing.
func (s *Supervisor) run(ctx context.Context, task *turnTask, prev *turnTask, req TurnRequest) {
	defer s.wg.Done()
	defer close(task.done)
	defer task.cancel()

	start := time.Now()
	log := s.logger.WithCall(req.CallID)

	// Start in arrival order: wait for the replaced turn to unwind so two
	// executions for one call never overlap. The replaced turn was already
	// cancelled, so this wait is short.
	if prev != nil {
		select {
		case <-prev.done:
		case <-ctx.Done():
			s.observe(metrics.OutcomeCancelled, start)
			log.Info("session: turn cancelled before start", "response_id", req.ResponseID)
			return
		}
	}

	runCtx := ctx
	if s.turnTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
	}

	prior, err := s.store.Load(runCtx, req.CallID)
	if err != nil {
		s.finishError(log, req, start, err, "load")
		return
	}

	result, err := s.pipeline.RunTurn(runCtx, prior, req.UserText)
	if err != nil {
		s.finishError(log, req, start, err, "pipeline")
		return
	}

	// Last cancellation checkpoint: after this the turn has completed
	// normally and its delta commits in full.
	select {
	case <-ctx.Done():
		s.observe(metrics.OutcomeCancelled, start)
		log.Info("session: turn cancelled at commit boundary", "response_id", req.ResponseID)
		return
	default:
	}

	commitCtx := context.WithoutCancel(ctx)
	if err := s.store.Commit(commitCtx, req.CallID, result.State); err != nil {
		log.Error("session: commit failed", "response_id", req.ResponseID, "error", err)
		s.observe(metrics.OutcomeFailed, start)
		return
	}

	if req.Flush != nil {
		if err := req.Flush(commitCtx, result.Utterances); err != nil {
			log.Warn("session: flush failed", "response_id", req.ResponseID, "error", err)
		}
	}

	s.observe(metrics.OutcomeCompleted, start)
	log.Debug("session: turn completed",
		"response_id", req.ResponseID, "utterances", len(result.Utterances))
}

// finishError classifies a turn abort: cancellation is expected control
// flow and logs as an informational event, anything else is a fault.
func (s *Supervisor) finishError(log *logging.Logger, req TurnRequest, start time.Time, err error, stage string) {
	if isCancellation(err) {
		s.observe(metrics.OutcomeCancelled, start)
		log.Info("session: turn cancelled", "response_id", req.ResponseID, "stage", stage)
		return
	}
	s.observe(metrics.OutcomeFailed, start)
	log.Error("session: turn failed", "response_id", req.ResponseID, "stage", stage, "error", err)
}

func (s *Supervisor) observe(outcome string, start time.Time) {
	s.metrics.ObserveTurn(outcome, time.Since(start).Seconds())
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
