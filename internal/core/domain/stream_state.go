package domain

import (
	"time"
)

// Protocol constants. Heartbeats arrive every 2s from the owner's client,
// so a 10s timeout tolerates several missed beats before revoking the seat.
const (
	DefaultHeartbeatTimeout = 10 * time.Second
	DefaultRequestCooldown  = 30 * time.Second
)

// PendingRequest is the single outstanding takeover request, if any.
type PendingRequest struct {
	FromUserID  UserID    `json:"fromUserId"`
	RequestedAt time.Time `json:"requestedAt"`
}

// StreamState is the singleton ownership record for the shared streamer
// seat. There is exactly one for the whole deployment; every mutation goes
// through an atomic read-modify-write in the repository.
type StreamState struct {
	ActiveStreamerID *UserID         `json:"activeStreamerId"`
	IsLive           bool            `json:"isLive"`
	LiveStartedAt    *time.Time      `json:"liveStartedAt"`
	LastHeartbeatAt  *time.Time      `json:"lastHeartbeatAt"`
	Pending          *PendingRequest `json:"pendingRequest"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// NewStreamState returns the idle record created at system initialization.
func NewStreamState(now time.Time) *StreamState {
	return &StreamState{UpdatedAt: now}
}

// OwnedBy reports whether user currently holds the seat.
func (s *StreamState) OwnedBy(user UserID) bool {
	return s.ActiveStreamerID != nil && *s.ActiveStreamerID == user
}

// ShouldExpire reports whether the active streamer's claim has lapsed.
// A set owner with a nil lastHeartbeatAt is never expired: adoption stamps
// the first heartbeat, so that state only occurs transiently and gets a
// grace period rather than an instant revoke.
func (s *StreamState) ShouldExpire(now time.Time, timeout time.Duration) bool {
	if s.ActiveStreamerID == nil || s.LastHeartbeatAt == nil {
		return false
	}
	return now.Sub(*s.LastHeartbeatAt) > timeout
}

// ExpireStale applies the lazy expiry policy: a lapsed owner is cleared
// exactly as Release would, and a pending request older than pendingTTL is
// dropped (pendingTTL <= 0 disables request expiry). Returns whether the
// owner was expired and whether a pending request was cleared on its own.
func (s *StreamState) ExpireStale(now time.Time, timeout, pendingTTL time.Duration) (ownerExpired, pendingCleared bool) {
	if s.ShouldExpire(now, timeout) {
		s.clearOwnership(now)
		return true, false
	}
	if pendingTTL > 0 && s.Pending != nil && now.Sub(s.Pending.RequestedAt) > pendingTTL {
		s.Pending = nil
		s.UpdatedAt = now
		return false, true
	}
	return false, false
}

func (s *StreamState) clearOwnership(now time.Time) {
	s.ActiveStreamerID = nil
	s.IsLive = false
	s.LiveStartedAt = nil
	s.LastHeartbeatAt = nil
	s.Pending = nil
	s.UpdatedAt = now
}

// Adopt claims the seat when it is idle.
func (s *StreamState) Adopt(user UserID, now time.Time) error {
	if s.ActiveStreamerID != nil {
		return ErrStreamerActive
	}
	s.ActiveStreamerID = &user
	s.IsLive = false
	s.LiveStartedAt = nil
	s.LastHeartbeatAt = &now
	s.Pending = nil
	s.UpdatedAt = now
	return nil
}

// Heartbeat refreshes the owner's liveness proof.
func (s *StreamState) Heartbeat(user UserID, now time.Time) error {
	if !s.OwnedBy(user) {
		return ErrNotStreamer
	}
	s.LastHeartbeatAt = &now
	s.UpdatedAt = now
	return nil
}

// SetLive toggles whether the owner is actively publishing. The heartbeat
// is refreshed either way so toggling never races the expiry policy.
func (s *StreamState) SetLive(user UserID, live bool, now time.Time) error {
	if !s.OwnedBy(user) {
		return ErrNotStreamer
	}
	if live && !s.IsLive {
		s.LiveStartedAt = &now
	}
	if !live {
		s.LiveStartedAt = nil
	}
	s.IsLive = live
	s.LastHeartbeatAt = &now
	s.UpdatedAt = now
	return nil
}

// Release gives the seat up. The current owner or an admin may release;
// releasing an already-idle record is an idempotent no-op.
func (s *StreamState) Release(user UserID, isAdmin bool, now time.Time) (released bool, err error) {
	if s.ActiveStreamerID == nil {
		return false, nil
	}
	if !s.OwnedBy(user) && !isAdmin {
		return false, ErrNotStreamer
	}
	s.clearOwnership(now)
	return true, nil
}

// RequestTakeover registers user's request to take the seat over. The same
// user may refresh their own request after cooldown; a request from a
// different user is rejected while one is outstanding.
func (s *StreamState) RequestTakeover(user UserID, now time.Time, cooldown time.Duration) error {
	if s.ActiveStreamerID == nil {
		return ErrNoActiveStreamer
	}
	if s.OwnedBy(user) {
		return ErrOwnSeatRequest
	}
	if s.Pending != nil {
		if s.Pending.FromUserID != user {
			return ErrRequestPending
		}
		if now.Sub(s.Pending.RequestedAt) < cooldown {
			return ErrRequestCooldown
		}
	}
	s.Pending = &PendingRequest{FromUserID: user, RequestedAt: now}
	s.UpdatedAt = now
	return nil
}

// Respond resolves the pending request. Accepting hands the seat directly
// to the requester without an idle gap, so no third party can adopt in
// between; declining keeps the current owner and clears the request.
func (s *StreamState) Respond(responder UserID, isAdmin bool, accept bool, target UserID, now time.Time) error {
	if s.Pending == nil {
		return ErrNoPendingRequest
	}
	if s.Pending.FromUserID != target {
		return ErrRequesterMismatch
	}
	if !s.OwnedBy(responder) && !isAdmin {
		return ErrNotStreamer
	}
	s.Pending = nil
	if accept {
		s.ActiveStreamerID = &target
		s.IsLive = false
		s.LiveStartedAt = nil
		s.LastHeartbeatAt = &now
	}
	s.UpdatedAt = now
	return nil
}

// CheckInvariants verifies the record's structural invariants. The
// repositories run it before persisting a mutated record.
func (s *StreamState) CheckInvariants() error {
	if s.ActiveStreamerID == nil {
		if s.IsLive || s.LiveStartedAt != nil || s.LastHeartbeatAt != nil || s.Pending != nil {
			return ErrCorruptState
		}
	}
	if s.Pending != nil && s.ActiveStreamerID != nil && s.Pending.FromUserID == *s.ActiveStreamerID {
		return ErrCorruptState
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing the
// repository's record.
func (s *StreamState) Clone() *StreamState {
	out := *s
	if s.ActiveStreamerID != nil {
		id := *s.ActiveStreamerID
		out.ActiveStreamerID = &id
	}
	if s.LiveStartedAt != nil {
		t := *s.LiveStartedAt
		out.LiveStartedAt = &t
	}
	if s.LastHeartbeatAt != nil {
		t := *s.LastHeartbeatAt
		out.LastHeartbeatAt = &t
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return &out
}
