package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lensapp/lens/internal/metrics"
	"github.com/lensapp/lens/internal/state"
)

// ErrStopped is returned by Submit once Run has returned.
var ErrStopped = errors.New("service stopped")

// Request is a unit of work for LensService. SavePhoto is the only request.
type Request interface {
	isRequest()
}

// SavePhoto asks the service to store a captured photo. The payload is the
// encoded image string and doubles as the photo identifier.
type SavePhoto struct {
	Payload string
}

func (SavePhoto) isRequest() {}

func requestKind(r Request) string {
	switch r.(type) {
	case SavePhoto:
		return "save_photo"
	default:
		return "unknown"
	}
}

// ServiceConfig holds configuration for LensService.
type ServiceConfig struct {
	// Tick is the pause between queue drains
	Tick time.Duration

	// Logger for request activity
	Logger *log.Logger

	// Metrics is optional
	Metrics *metrics.Metrics
}

// DefaultServiceConfig returns the default request loop settings.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Tick:   16 * time.Millisecond,
		Logger: log.New(os.Stderr, "[service] ", log.LstdFlags),
	}
}

type pending struct {
	id  uuid.UUID
	req Request
}

// LensService is the request/response loop.
type LensService struct {
	state  Sender
	config *ServiceConfig

	mu      sync.Mutex
	queue   []pending
	stopped bool

	wake chan struct{}
}

// NewLensService creates a service that delivers results to st.
func NewLensService(st Sender, config *ServiceConfig) (*LensService, error) {
	if st == nil {
		return nil, fmt.Errorf("state cannot be nil")
	}
	if config == nil {
		config = DefaultServiceConfig()
	}
	if config.Tick <= 0 {
		config.Tick = DefaultServiceConfig().Tick
	}
	if config.Logger == nil {
		config.Logger = DefaultServiceConfig().Logger
	}

	return &LensService{
		state:  st,
		config: config,
		wake:   make(chan struct{}, 1),
	}, nil
}

// Submit queues req and returns its request ID. Requests are delivered in
// submission order, exactly once each.
func (s *LensService) Submit(ctx context.Context, req Request) (uuid.UUID, error) {
	if req == nil {
		return uuid.Nil, fmt.Errorf("request cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return uuid.Nil, ErrStopped
	}
	s.queue = append(s.queue, pending{id: id, req: req})
	depth := len(s.queue)
	s.mu.Unlock()

	s.config.Metrics.SetQueueDepth(depth)

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return id, nil
}

// Pending returns the number of queued requests.
func (s *LensService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Tick drains every queued request and returns how many were delivered.
// Requests that could not be delivered stay queued, ahead of anything
// submitted meanwhile.
func (s *LensService) Tick(ctx context.Context) int {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()

	delivered := 0
	for i, p := range batch {
		if err := s.handle(ctx, p); err != nil {
			s.config.Logger.Printf("Warning: request %s not delivered: %v", p.id, err)
			s.mu.Lock()
			s.queue = append(slices.Clone(batch[i:]), s.queue...)
			s.mu.Unlock()
			break
		}
		delivered++
	}

	s.config.Metrics.SetQueueDepth(s.Pending())
	return delivered
}

func (s *LensService) handle(ctx context.Context, p pending) error {
	switch req := p.req.(type) {
	case SavePhoto:
		if err := s.state.Send(ctx, state.AppendPhoto{ID: req.Payload}); err != nil {
			return fmt.Errorf("failed to deliver photo: %w", err)
		}
	default:
		s.config.Logger.Printf("Warning: dropping request %s of unknown type %T", p.id, p.req)
	}
	s.config.Metrics.RecordRequest(requestKind(p.req))
	return nil
}

// Run drains the queue every tick until ctx is cancelled. Submit fails with
// ErrStopped afterwards.
func (s *LensService) Run(ctx context.Context) error {
	s.config.Logger.Printf("Starting request loop (tick %s)", s.config.Tick)

	Loop(ctx, "service", s.config.Logger, s.config.Tick, s.wake, func(ctx context.Context) error {
		s.Tick(ctx)
		return nil
	})

	s.mu.Lock()
	s.stopped = true
	dropped := len(s.queue)
	s.mu.Unlock()

	if dropped > 0 {
		s.config.Logger.Printf("Request loop stopped with %d undelivered requests", dropped)
	} else {
		s.config.Logger.Println("Request loop stopped")
	}
	return nil
}
