package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	gosync "sync"
	"time"

	"github.com/projectenv/tools-index/internal/status"
)

const (
	// DefaultInterval is the time between two generations
	DefaultInterval = 6 * time.Hour

	// DefaultJitter is the maximum random offset (±) applied to the interval
	DefaultJitter = 5 * time.Minute
)

// Result summarizes a successful generation
type Result struct {
	RunID         string
	URLCount      int
	RejectedCount int
}

// GenerateFunc produces and publishes a new index
type GenerateFunc func(ctx context.Context) (*Result, error)

// Coordinator manages background index generation
type Coordinator interface {
	// Start runs a generation immediately and then on every interval.
	// Blocks until the context is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator and waits for Start to return
	Stop() error

	// Status returns a snapshot of the current run status
	Status() *status.RunStatus
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	generate GenerateFunc
	interval time.Duration
	jitter   time.Duration

	persistence status.StatusPersistence

	mu     gosync.Mutex
	status *status.RunStatus

	// Lifecycle management
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithInterval sets the time between two generations
func WithInterval(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithJitter sets the maximum random offset applied to the interval. Zero disables jitter.
func WithJitter(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d >= 0 {
			c.jitter = d
		}
	}
}

// WithStatusPersistence persists the run status after every phase transition
func WithStatusPersistence(p status.StatusPersistence) Option {
	return func(c *defaultCoordinator) {
		c.persistence = p
	}
}

// New creates a new coordinator running generate
func New(generate GenerateFunc, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		generate: generate,
		interval: DefaultInterval,
		jitter:   DefaultJitter,
		status:   &status.RunStatus{},
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// nextInterval returns the interval with a random jitter applied, never less than half the interval.
func (c *defaultCoordinator) nextInterval() time.Duration {
	if c.jitter <= 0 {
		return c.interval
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for scheduling jitter
	offset := time.Duration(rand.Int64N(int64(2*c.jitter))) - c.jitter
	return max(c.interval+offset, c.interval/2)
}

// Start begins background generation
func (c *defaultCoordinator) Start(ctx context.Context) error {
	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		close(c.done)
		slog.Info("Index coordinator shutting down")
	}()

	if c.persistence != nil {
		loaded, err := c.persistence.LoadStatus(ctx)
		if err != nil {
			return fmt.Errorf("failed to load run status: %w", err)
		}
		c.withStatus(func(s *status.RunStatus) {
			*s = *loaded.Clone()
		})
	}

	interval := c.nextInterval()
	slog.Info("Starting index coordinator",
		"base_interval", c.interval,
		"actual_interval", interval)

	c.run(coordCtx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			c.run(coordCtx)
			timer.Reset(c.nextInterval())
		case <-coordCtx.Done():
			slog.Info("Index coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping index coordinator")
		cancel()
		<-c.done
	}
	return nil
}

// Status returns a snapshot of the current run status
func (c *defaultCoordinator) Status() *status.RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Clone()
}

// withStatus runs fn on the status under the lock
func (c *defaultCoordinator) withStatus(fn func(*status.RunStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.status)
}

// run executes one generation and records its outcome
func (c *defaultCoordinator) run(ctx context.Context) {
	// Ensure status is persisted at the end, whatever the result
	defer c.persist(ctx)

	var attempt int
	c.withStatus(func(s *status.RunStatus) {
		now := time.Now()
		s.Phase = status.PhaseRunning
		s.Message = "Generation in progress"
		s.LastAttempt = &now
		s.AttemptCount++
		attempt = s.AttemptCount
	})
	c.persist(ctx)

	slog.Info("Starting index generation", "attempt", attempt)
	start := time.Now()

	result, err := c.generate(ctx)

	c.withStatus(func(s *status.RunStatus) {
		if err != nil {
			s.Phase = status.PhaseFailed
			s.Message = fmt.Sprintf("Generation failed: %v", err)
			slog.Error("Index generation failed",
				"attempt", attempt,
				"duration", time.Since(start).Round(time.Millisecond),
				"error", err)
			return
		}
		if result == nil {
			result = &Result{}
		}
		now := time.Now()
		s.Phase = status.PhaseComplete
		s.Message = "Generation completed successfully"
		s.RunID = result.RunID
		s.LastSuccess = &now
		s.AttemptCount = 0
		s.URLCount = result.URLCount
		s.RejectedCount = result.RejectedCount
		slog.Info("Index generation completed",
			"run_id", result.RunID,
			"url_count", result.URLCount,
			"rejected_count", result.RejectedCount,
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

// persist saves a snapshot of the status if persistence is configured
func (c *defaultCoordinator) persist(ctx context.Context) {
	if c.persistence == nil {
		return
	}
	// The run context may already be cancelled on shutdown; the final state is still worth saving.
	if err := c.persistence.SaveStatus(context.WithoutCancel(ctx), c.Status()); err != nil {
		slog.Warn("Failed to persist run status", "error", err)
	}
}
