package services

import (
	"context"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	"hudcast/internal/realtime"

	"go.uber.org/zap"
)

// SessionConfig carries the ownership-protocol constants. Clock is
// injectable for tests and defaults to time.Now.
type SessionConfig struct {
	HeartbeatTimeout  time.Duration
	RequestCooldown   time.Duration
	PendingRequestTTL time.Duration
	Clock             func() time.Time
}

// SessionMetrics records ownership-protocol outcomes. Implemented by the
// monitoring collector; a nop implementation is used in tests.
type SessionMetrics interface {
	RecordAdopt()
	RecordRelease(reason string)
	RecordHeartbeat()
	RecordHandoff()
	RecordTakeoverRequest(outcome string)
	SetSeatState(owned, live bool)
}

type nopSessionMetrics struct{}

func (nopSessionMetrics) RecordAdopt()                  {}
func (nopSessionMetrics) RecordRelease(string)          {}
func (nopSessionMetrics) RecordHeartbeat()              {}
func (nopSessionMetrics) RecordHandoff()                {}
func (nopSessionMetrics) RecordTakeoverRequest(string)  {}
func (nopSessionMetrics) SetSeatState(owned, live bool) {}

var _ SessionMetrics = nopSessionMetrics{}

// NopSessionMetrics returns a metrics sink that discards everything.
func NopSessionMetrics() SessionMetrics { return nopSessionMetrics{} }

// NameResolver looks up a user's display name for realtime messages and
// the pending-request view. Implemented by the user service with a
// short-TTL cache behind it.
type NameResolver interface {
	DisplayName(ctx context.Context, id domain.UserID) string
}

type streamSessionService struct {
	states  ports.StreamStateRepository
	audit   ports.AuditRepository
	rt      realtime.Publisher
	names   NameResolver
	metrics SessionMetrics
	logger  *zap.SugaredLogger
	cfg     SessionConfig
}

// NewStreamSessionService builds the ownership state machine. Every
// operation runs one atomic read-modify-write against the state
// repository; exclusivity comes from the store, not from any in-process
// lock, so horizontally scaled instances stay correct.
func NewStreamSessionService(
	states ports.StreamStateRepository,
	audit ports.AuditRepository,
	rt realtime.Publisher,
	names NameResolver,
	metrics SessionMetrics,
	logger *zap.SugaredLogger,
	cfg SessionConfig,
) ports.StreamSessionService {
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = domain.DefaultHeartbeatTimeout
	}
	if cfg.RequestCooldown <= 0 {
		cfg.RequestCooldown = domain.DefaultRequestCooldown
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if metrics == nil {
		metrics = nopSessionMetrics{}
	}
	return &streamSessionService{
		states:  states,
		audit:   audit,
		rt:      rt,
		names:   names,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// State returns the current record, applying the expiry policy first so
// stale ownership self-heals on read without a background job.
func (s *streamSessionService) State(ctx context.Context) (*domain.StreamState, error) {
	st, _, err := s.reap(ctx)
	return st, err
}

func (s *streamSessionService) Adopt(ctx context.Context, user *domain.User) (*domain.StreamState, error) {
	now := s.cfg.Clock()
	var lapsed bool
	st, err := s.states.Mutate(ctx, func(st *domain.StreamState) error {
		lapsed = s.expireInPlace(st, now)
		return st.Adopt(user.ID, now)
	})
	if err != nil {
		return nil, err
	}

	if lapsed {
		s.recordExpiry(ctx)
	}
	s.metrics.RecordAdopt()
	s.writeAudit(ctx, user.ID, domain.AuditStreamAdopt, "", nil)
	s.publishStatus(ctx, st)
	return st, nil
}

func (s *streamSessionService) Heartbeat(ctx context.Context, user *domain.User) error {
	now := s.cfg.Clock()
	var lapsed bool
	_, err := s.states.Mutate(ctx, func(st *domain.StreamState) error {
		lapsed = s.expireInPlace(st, now)
		return st.Heartbeat(user.ID, now)
	})
	if err != nil {
		return err
	}
	if lapsed {
		s.recordExpiry(ctx)
	}
	s.metrics.RecordHeartbeat()
	return nil
}

func (s *streamSessionService) SetLive(ctx context.Context, user *domain.User, live bool) (*domain.StreamState, error) {
	now := s.cfg.Clock()
	var lapsed bool
	st, err := s.states.Mutate(ctx, func(st *domain.StreamState) error {
		lapsed = s.expireInPlace(st, now)
		return st.SetLive(user.ID, live, now)
	})
	if err != nil {
		return nil, err
	}

	if lapsed {
		s.recordExpiry(ctx)
	}
	s.writeAudit(ctx, user.ID, domain.AuditStreamSetLive, "", map[string]interface{}{"isLive": live})
	s.publishStatus(ctx, st)
	return st, nil
}

func (s *streamSessionService) Release(ctx context.Context, user *domain.User) (*domain.StreamState, error) {
	now := s.cfg.Clock()
	var lapsed, released bool
	st, err := s.states.Mutate(ctx, func(st *domain.StreamState) error {
		lapsed = s.expireInPlace(st, now)
		var err error
		released, err = st.Release(user.ID, user.IsAdmin(), now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if lapsed {
		s.recordExpiry(ctx)
	}
	if released {
		s.metrics.RecordRelease("manual")
		s.writeAudit(ctx, user.ID, domain.AuditStreamRelease, "", nil)
		s.publishStatus(ctx, st)
	}
	return st, nil
}

func (s *streamSessionService) RequestTakeover(ctx context.Context, user *domain.User) error {
	now := s.cfg.Clock()
	var lapsed bool
	_, err := s.states.Mutate(ctx, func(st *domain.StreamState) error {
		lapsed = s.expireInPlace(st, now)
		return st.RequestTakeover(user.ID, now, s.cfg.RequestCooldown)
	})
	if err != nil {
		s.metrics.RecordTakeoverRequest(requestOutcome(err))
		return err
	}

	if lapsed {
		s.recordExpiry(ctx)
	}
	s.metrics.RecordTakeoverRequest("accepted")
	s.writeAudit(ctx, user.ID, domain.AuditStreamRequest, "", nil)

	// UX nudge for the owner's client; the pending request in the durable
	// record is the real side effect, discoverable by polling.
	s.publish(ctx, realtime.NewStreamRequest(string(user.ID), user.DisplayName))
	return nil
}

func (s *streamSessionService) RespondToRequest(ctx context.Context, responder *domain.User, accept bool, target domain.UserID) (*domain.StreamState, error) {
	now := s.cfg.Clock()
	var lapsed bool
	st, err := s.states.Mutate(ctx, func(st *domain.StreamState) error {
		lapsed = s.expireInPlace(st, now)
		return st.Respond(responder.ID, responder.IsAdmin(), accept, target, now)
	})
	if err != nil {
		return nil, err
	}

	if lapsed {
		s.recordExpiry(ctx)
	}
	s.writeAudit(ctx, responder.ID, domain.AuditStreamRespond, target, map[string]interface{}{"accepted": accept})
	s.publish(ctx, realtime.NewStreamRequestResponse(accept, string(target)))

	if accept {
		s.metrics.RecordHandoff()
		s.writeAudit(ctx, responder.ID, domain.AuditStreamHandoff, target, nil)
		// Pre-empt the outgoing publisher before its next poll notices.
		s.publish(ctx, realtime.NewStreamHandoff(string(target)))
		s.publishStatus(ctx, st)
	}
	return st, nil
}

func (s *streamSessionService) PendingRequest(ctx context.Context) (*ports.PendingRequestView, error) {
	st, _, err := s.reap(ctx)
	if err != nil {
		return nil, err
	}
	if st.Pending == nil {
		return nil, nil
	}
	return &ports.PendingRequestView{
		FromUserID:   st.Pending.FromUserID,
		FromUsername: s.names.DisplayName(ctx, st.Pending.FromUserID),
		RequestedAt:  st.Pending.RequestedAt,
	}, nil
}

// reap applies the expiry policy to the current record, writing only when
// something actually lapsed. Returns the post-expiry record.
func (s *streamSessionService) reap(ctx context.Context) (*domain.StreamState, bool, error) {
	now := s.cfg.Clock()

	st, err := s.states.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	scratch := st.Clone()
	if expired, cleared := scratch.ExpireStale(now, s.cfg.HeartbeatTimeout, s.cfg.PendingRequestTTL); !expired && !cleared {
		return st, false, nil
	}

	var expired bool
	st, err = s.states.Mutate(ctx, func(st *domain.StreamState) error {
		expired, _ = st.ExpireStale(now, s.cfg.HeartbeatTimeout, s.cfg.PendingRequestTTL)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if expired {
		s.onExpired(ctx, st)
	}
	return st, expired, nil
}

// expireInPlace runs the expiry policy inside a Mutate fn so the op that
// follows sees the post-expiry record in the same atomic write. It must
// stay side-effect free: the CAS repository re-runs the fn on write
// conflicts, and a failing op aborts it entirely. Callers fire
// recordExpiry only once the mutation has committed.
func (s *streamSessionService) expireInPlace(st *domain.StreamState, now time.Time) bool {
	expired, _ := st.ExpireStale(now, s.cfg.HeartbeatTimeout, s.cfg.PendingRequestTTL)
	return expired
}

// recordExpiry fires the seat-lapse side effects after the mutation that
// applied the expiry has committed.
func (s *streamSessionService) recordExpiry(ctx context.Context) {
	s.metrics.RecordRelease("expired")
	s.logger.Infow("revoked lapsed streamer seat")
	s.writeAudit(ctx, "", domain.AuditStreamExpire, "", nil)
}

func (s *streamSessionService) onExpired(ctx context.Context, st *domain.StreamState) {
	s.recordExpiry(ctx)
	s.publishStatus(ctx, st)
}

func (s *streamSessionService) publishStatus(ctx context.Context, st *domain.StreamState) {
	s.metrics.SetSeatState(st.ActiveStreamerID != nil, st.IsLive)
	var owner *string
	if st.ActiveStreamerID != nil {
		v := string(*st.ActiveStreamerID)
		owner = &v
	}
	s.publish(ctx, realtime.NewStreamStatus(owner, st.IsLive, st.LiveStartedAt))
}

// publish is fire-and-forget: the durable mutation already committed, and
// the 5s poll corrects any client that misses the signal.
func (s *streamSessionService) publish(ctx context.Context, msg realtime.Message) {
	if err := s.rt.Publish(ctx, msg); err != nil {
		s.logger.Warnw("realtime publish failed", "type", msg.MessageType(), "error", err)
	}
}

func (s *streamSessionService) writeAudit(ctx context.Context, actor domain.UserID, action string, target domain.UserID, meta map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		ActorUserID:  actor,
		Action:       action,
		TargetUserID: target,
		Metadata:     meta,
		CreatedAt:    s.cfg.Clock(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warnw("audit append failed", "action", action, "error", err)
	}
}

func requestOutcome(err error) string {
	switch err {
	case domain.ErrNoActiveStreamer:
		return "no_streamer"
	case domain.ErrOwnSeatRequest:
		return "own_seat"
	case domain.ErrRequestPending:
		return "conflict"
	case domain.ErrRequestCooldown:
		return "cooldown"
	default:
		return "error"
	}
}
