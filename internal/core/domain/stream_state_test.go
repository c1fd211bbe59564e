package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = UserID("alice")
	bob   = UserID("bob")
)

func TestAdopt_IdleSeat(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)

	err := s.Adopt(alice, now)
	require.NoError(t, err)

	assert.True(t, s.OwnedBy(alice))
	assert.False(t, s.IsLive)
	assert.Nil(t, s.LiveStartedAt)
	require.NotNil(t, s.LastHeartbeatAt)
	assert.Equal(t, now, *s.LastHeartbeatAt)
	assert.NoError(t, s.CheckInvariants())
}

func TestAdopt_OccupiedSeatRejected(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))

	err := s.Adopt(bob, now.Add(time.Second))
	assert.ErrorIs(t, err, ErrStreamerActive)
	assert.True(t, s.OwnedBy(alice), "losing adopt must not change the owner")
}

func TestHeartbeat_OnlyOwner(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))

	later := now.Add(3 * time.Second)
	require.NoError(t, s.Heartbeat(alice, later))
	assert.Equal(t, later, *s.LastHeartbeatAt)

	assert.ErrorIs(t, s.Heartbeat(bob, later), ErrNotStreamer)
}

func TestSetLive_Transitions(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))

	goLive := now.Add(time.Second)
	require.NoError(t, s.SetLive(alice, true, goLive))
	assert.True(t, s.IsLive)
	require.NotNil(t, s.LiveStartedAt)
	assert.Equal(t, goLive, *s.LiveStartedAt)

	// Setting live again must not reset the start time.
	again := goLive.Add(time.Second)
	require.NoError(t, s.SetLive(alice, true, again))
	assert.Equal(t, goLive, *s.LiveStartedAt)

	stop := again.Add(time.Second)
	require.NoError(t, s.SetLive(alice, false, stop))
	assert.False(t, s.IsLive)
	assert.Nil(t, s.LiveStartedAt)

	assert.ErrorIs(t, s.SetLive(bob, true, stop), ErrNotStreamer)
}

func TestSetLive_RefreshesHeartbeat(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))

	later := now.Add(5 * time.Second)
	require.NoError(t, s.SetLive(alice, true, later))
	assert.Equal(t, later, *s.LastHeartbeatAt)
}

func TestRelease_ClearsEverything(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))
	require.NoError(t, s.SetLive(alice, true, now))
	require.NoError(t, s.RequestTakeover(bob, now, DefaultRequestCooldown))

	released, err := s.Release(alice, false, now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, released)
	assert.Nil(t, s.ActiveStreamerID)
	assert.False(t, s.IsLive)
	assert.Nil(t, s.LiveStartedAt)
	assert.Nil(t, s.LastHeartbeatAt)
	assert.Nil(t, s.Pending)
	assert.NoError(t, s.CheckInvariants())
}

func TestRelease_IdleIsNoop(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)

	released, err := s.Release(alice, false, now)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestRelease_NonOwnerRejectedUnlessAdmin(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))

	_, err := s.Release(bob, false, now)
	assert.ErrorIs(t, err, ErrNotStreamer)

	released, err := s.Release(bob, true, now)
	require.NoError(t, err)
	assert.True(t, released)
	assert.Nil(t, s.ActiveStreamerID)
}

func TestRequestTakeover(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)

	// No owner yet.
	assert.ErrorIs(t, s.RequestTakeover(bob, now, DefaultRequestCooldown), ErrNoActiveStreamer)

	require.NoError(t, s.Adopt(alice, now))

	// Owner cannot request their own seat.
	assert.ErrorIs(t, s.RequestTakeover(alice, now, DefaultRequestCooldown), ErrOwnSeatRequest)

	require.NoError(t, s.RequestTakeover(bob, now, DefaultRequestCooldown))
	require.NotNil(t, s.Pending)
	assert.Equal(t, bob, s.Pending.FromUserID)

	// A second requester is locked out while bob's request is pending.
	carol := UserID("carol")
	assert.ErrorIs(t, s.RequestTakeover(carol, now.Add(time.Second), DefaultRequestCooldown), ErrRequestPending)

	// Bob refreshing inside the cooldown is rejected.
	assert.ErrorIs(t, s.RequestTakeover(bob, now.Add(10*time.Second), DefaultRequestCooldown), ErrRequestCooldown)

	// After cooldown, bob may refresh his own request.
	refreshed := now.Add(DefaultRequestCooldown + time.Second)
	require.NoError(t, s.RequestTakeover(bob, refreshed, DefaultRequestCooldown))
	assert.Equal(t, refreshed, s.Pending.RequestedAt)
}

func TestRespond_AcceptHandsOffDirectly(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))
	require.NoError(t, s.SetLive(alice, true, now))
	require.NoError(t, s.RequestTakeover(bob, now, DefaultRequestCooldown))

	accepted := now.Add(time.Second)
	require.NoError(t, s.Respond(alice, false, true, bob, accepted))

	// Direct handoff: no idle gap, new owner not yet live.
	assert.True(t, s.OwnedBy(bob))
	assert.False(t, s.IsLive)
	assert.Nil(t, s.LiveStartedAt)
	assert.Nil(t, s.Pending)
	assert.Equal(t, accepted, *s.LastHeartbeatAt)
	assert.NoError(t, s.CheckInvariants())
}

func TestRespond_DeclineKeepsOwner(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))
	require.NoError(t, s.SetLive(alice, true, now))
	require.NoError(t, s.RequestTakeover(bob, now, DefaultRequestCooldown))

	require.NoError(t, s.Respond(alice, false, false, bob, now.Add(time.Second)))
	assert.True(t, s.OwnedBy(alice))
	assert.True(t, s.IsLive)
	assert.Nil(t, s.Pending)
}

func TestRespond_Validation(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))

	// No pending request.
	assert.ErrorIs(t, s.Respond(alice, false, true, bob, now), ErrNoPendingRequest)

	require.NoError(t, s.RequestTakeover(bob, now, DefaultRequestCooldown))

	// Target does not match pending requester.
	assert.ErrorIs(t, s.Respond(alice, false, true, UserID("carol"), now), ErrRequesterMismatch)

	// Only owner or admin may respond.
	assert.ErrorIs(t, s.Respond(bob, false, true, bob, now), ErrNotStreamer)

	// Admin may respond on the owner's behalf.
	require.NoError(t, s.Respond(UserID("admin"), true, true, bob, now))
	assert.True(t, s.OwnedBy(bob))
}

func TestShouldExpire(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)

	// Idle seat never expires.
	assert.False(t, s.ShouldExpire(now.Add(time.Hour), DefaultHeartbeatTimeout))

	require.NoError(t, s.Adopt(alice, now))
	assert.False(t, s.ShouldExpire(now.Add(DefaultHeartbeatTimeout), DefaultHeartbeatTimeout))
	assert.True(t, s.ShouldExpire(now.Add(DefaultHeartbeatTimeout+time.Millisecond), DefaultHeartbeatTimeout))

	// A missing heartbeat stamp gets a grace period instead of an
	// immediate revoke.
	s.LastHeartbeatAt = nil
	assert.False(t, s.ShouldExpire(now.Add(time.Hour), DefaultHeartbeatTimeout))
}

func TestExpireStale_OwnerLapse(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))
	require.NoError(t, s.SetLive(alice, true, now))
	require.NoError(t, s.RequestTakeover(bob, now, DefaultRequestCooldown))

	later := now.Add(DefaultHeartbeatTimeout + time.Second)
	expired, cleared := s.ExpireStale(later, DefaultHeartbeatTimeout, 0)
	assert.True(t, expired)
	assert.False(t, cleared)
	assert.Nil(t, s.ActiveStreamerID)
	assert.False(t, s.IsLive)
	assert.Nil(t, s.Pending)
	assert.NoError(t, s.CheckInvariants())
}

func TestExpireStale_PendingTTL(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))
	require.NoError(t, s.RequestTakeover(bob, now, DefaultRequestCooldown))

	// TTL disabled: the request never lapses on its own.
	require.NoError(t, s.Heartbeat(alice, now.Add(time.Hour)))
	expired, cleared := s.ExpireStale(now.Add(time.Hour), DefaultHeartbeatTimeout, 0)
	assert.False(t, expired)
	assert.False(t, cleared)
	assert.NotNil(t, s.Pending)

	// TTL enabled: the stale request is dropped while the owner stays.
	require.NoError(t, s.Heartbeat(alice, now.Add(2*time.Hour)))
	expired, cleared = s.ExpireStale(now.Add(2*time.Hour), DefaultHeartbeatTimeout, time.Minute)
	assert.False(t, expired)
	assert.True(t, cleared)
	assert.Nil(t, s.Pending)
	assert.True(t, s.OwnedBy(alice))
}

func TestCheckInvariants(t *testing.T) {
	now := time.Now()

	// Idle record with leftover live flag.
	s := NewStreamState(now)
	s.IsLive = true
	assert.ErrorIs(t, s.CheckInvariants(), ErrCorruptState)

	// Pending request from the owner.
	s = NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))
	s.Pending = &PendingRequest{FromUserID: alice, RequestedAt: now}
	assert.ErrorIs(t, s.CheckInvariants(), ErrCorruptState)
}

func TestClone_IsDeep(t *testing.T) {
	now := time.Now()
	s := NewStreamState(now)
	require.NoError(t, s.Adopt(alice, now))
	require.NoError(t, s.RequestTakeover(bob, now, DefaultRequestCooldown))

	c := s.Clone()
	*c.ActiveStreamerID = bob
	c.Pending.FromUserID = UserID("carol")

	assert.True(t, s.OwnedBy(alice))
	assert.Equal(t, bob, s.Pending.FromUserID)
}
