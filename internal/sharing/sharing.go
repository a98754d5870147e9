// Package sharing runs the device side of live-location sharing. A watch task
// keeps the most recent fix from a position source and a push task sends that
// fix on a fixed timer, so network writes are bounded by the interval no
// matter how often the device reports.
package sharing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultInterval = 10 * time.Second

var ErrAlreadyStarted = errors.New("sharing session already started")

type Fix struct {
	Latitude  float64
	Longitude float64
	At        time.Time
}

// Pusher stores one fix for the shared report.
type Pusher interface {
	Push(ctx context.Context, fix Fix) error
}

type Option func(*Session)

func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// OnError receives push failures. The loop keeps running after a failure.
func OnError(fn func(error)) Option {
	return func(s *Session) { s.onError = fn }
}

type Session struct {
	source   <-chan Fix
	pusher   Pusher
	interval time.Duration
	onError  func(error)

	mu      sync.Mutex
	latest  *Fix
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

func New(source <-chan Fix, pusher Pusher, opts ...Option) *Session {
	s := &Session{
		source:   source,
		pusher:   pusher,
		interval: DefaultInterval,
		onError:  func(err error) { slog.Warn("location push failed", "error", err.Error()) },
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the watch and push tasks. Cancelling ctx has the same effect
// as Stop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.watch(gctx) })
	g.Go(func() error { return s.push(gctx) })

	go func() {
		s.err = g.Wait()
		close(s.done)
	}()
	return nil
}

// Stop ends both tasks and returns once they have exited. Safe to call more
// than once and before Start.
func (s *Session) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	return s.Wait()
}

// Wait blocks until both tasks have exited. It returns immediately when the
// session was never started.
func (s *Session) Wait() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}
	<-s.done
	return s.err
}

// Latest returns the most recent fix seen by the watch task.
func (s *Session) Latest() (Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Fix{}, false
	}
	return *s.latest, true
}

func (s *Session) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fix, ok := <-s.source:
			if !ok {
				// The last fix keeps being pushed until the session stops.
				return nil
			}
			if fix.At.IsZero() {
				fix.At = time.Now().UTC()
			}
			s.mu.Lock()
			s.latest = &fix
			s.mu.Unlock()
		}
	}
}

func (s *Session) push(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			fix, ok := s.Latest()
			if !ok {
				continue
			}
			if err := s.pusher.Push(ctx, fix); err != nil && ctx.Err() == nil {
				s.onError(err)
			}
		}
	}
}
