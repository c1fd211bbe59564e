package client

import (
	"context"
	"sync"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/realtime"

	"go.uber.org/zap"
)

// SessionConfig tunes the reconciliation loop. The defaults match the
// server's protocol constants.
type SessionConfig struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
}

// Session keeps a client's view of the ownership record convergent. The
// poll is authoritative and overwrites local state wholesale; realtime
// signals are applied optimistically in between for latency, and any
// mistake a lost or reordered signal introduces survives at most one poll
// interval.
type Session struct {
	client *Client
	userID domain.UserID
	cfg    SessionConfig
	logger *zap.SugaredLogger

	mu    sync.RWMutex
	state *domain.StreamState

	// OnState is called with every accepted state, poll or signal.
	OnState func(*domain.StreamState)
	// OnOwnershipLost is called when a state transition takes the seat
	// away from this user (handoff, expiry, admin release). Publishers
	// stop capturing here.
	OnOwnershipLost func()
}

func NewSession(c *Client, userID domain.UserID, cfg SessionConfig, logger *zap.SugaredLogger) *Session {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 2 * time.Second
	}
	return &Session{
		client: c,
		userID: userID,
		cfg:    cfg,
		logger: logger,
	}
}

// State returns the current local view, which may be nil before the first
// successful poll.
func (s *Session) State() *domain.StreamState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil
	}
	return s.state.Clone()
}

// Owned reports whether the local view says this user holds the seat.
func (s *Session) Owned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != nil && s.state.OwnedBy(s.userID)
}

// Run drives polling and heartbeats until ctx is cancelled. Poll failures
// are logged and retried on the next tick; the previous view is kept.
func (s *Session) Run(ctx context.Context) {
	s.poll(ctx)

	pollTicker := time.NewTicker(s.cfg.PollInterval)
	defer pollTicker.Stop()
	heartbeatTicker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			s.poll(ctx)
		case <-heartbeatTicker.C:
			if !s.Owned() {
				continue
			}
			if err := s.client.Heartbeat(ctx); err != nil {
				s.logger.Warnw("heartbeat failed", "error", err)
			}
		}
	}
}

func (s *Session) poll(ctx context.Context) {
	state, err := s.client.State(ctx)
	if err != nil {
		s.logger.Warnw("state poll failed", "error", err)
		return
	}
	s.accept(state)
}

// Apply folds a realtime signal into the local view. Signals never carry
// information the poll would not eventually deliver, so unknown or stale
// ones are safely ignored.
func (s *Session) Apply(msg realtime.Message) {
	s.mu.RLock()
	current := s.state
	s.mu.RUnlock()
	if current == nil {
		// Nothing to update optimistically before the first poll.
		return
	}
	next := current.Clone()

	switch m := msg.(type) {
	case realtime.StreamStatus:
		next.IsLive = m.IsLive
		if m.ActiveStreamerID == nil {
			next.ActiveStreamerID = nil
			next.LiveStartedAt = nil
			next.Pending = nil
		} else {
			id := domain.UserID(*m.ActiveStreamerID)
			next.ActiveStreamerID = &id
		}
		if m.LiveStartedAt != nil {
			if t, err := time.Parse(time.RFC3339Nano, *m.LiveStartedAt); err == nil {
				next.LiveStartedAt = &t
			}
		} else {
			next.LiveStartedAt = nil
		}

	case realtime.StreamHandoff:
		id := domain.UserID(m.NewStreamerUserID)
		next.ActiveStreamerID = &id
		next.IsLive = false
		next.LiveStartedAt = nil
		next.Pending = nil

	case realtime.StreamRequestResponse:
		next.Pending = nil

	default:
		return
	}

	s.accept(next)
}

func (s *Session) accept(next *domain.StreamState) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()

	wasOwner := prev != nil && prev.OwnedBy(s.userID)
	isOwner := next.OwnedBy(s.userID)
	if wasOwner && !isOwner && s.OnOwnershipLost != nil {
		s.OnOwnershipLost()
	}
	if s.OnState != nil {
		s.OnState(next)
	}
}
