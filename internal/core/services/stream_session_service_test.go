package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	"hudcast/internal/infrastructure/repositories/memory"
	"hudcast/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingPublisher captures realtime messages for assertions.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []realtime.Message
}

func (p *recordingPublisher) Publish(ctx context.Context, msg realtime.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) byType(t string) []realtime.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []realtime.Message
	for _, m := range p.messages {
		if m.MessageType() == t {
			out = append(out, m)
		}
	}
	return out
}

// countingMetrics tallies release reasons for assertions.
type countingMetrics struct {
	mu       sync.Mutex
	releases map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{releases: make(map[string]int)}
}

func (m *countingMetrics) RecordAdopt()     {}
func (m *countingMetrics) RecordHeartbeat() {}
func (m *countingMetrics) RecordRelease(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases[reason]++
}
func (m *countingMetrics) RecordHandoff()                {}
func (m *countingMetrics) RecordTakeoverRequest(string)  {}
func (m *countingMetrics) SetSeatState(owned, live bool) {}

func (m *countingMetrics) released(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases[reason]
}

type staticNames struct{}

func (staticNames) DisplayName(ctx context.Context, id domain.UserID) string {
	return "name-of-" + string(id)
}

func newTestSession(t *testing.T, clock *fakeClock, pub realtime.Publisher) (ports.StreamSessionService, ports.StreamStateRepository) {
	t.Helper()
	states := memory.NewMemoryStreamStateRepository()
	require.NoError(t, states.EnsureInitialized(context.Background()))

	if pub == nil {
		pub = realtime.NopPublisher{}
	}
	svc := NewStreamSessionService(
		states,
		memory.NewMemoryAuditRepository(),
		pub,
		staticNames{},
		NopSessionMetrics(),
		zap.NewNop().Sugar(),
		SessionConfig{Clock: clock.Now},
	)
	return svc, states
}

func testUser(id string) *domain.User {
	return &domain.User{ID: domain.UserID(id), Username: id, DisplayName: id, Role: domain.RoleUser}
}

func testAdmin(id string) *domain.User {
	u := testUser(id)
	u.Role = domain.RoleAdmin
	return u
}

func TestConcurrentAdopts_ExactlyOneWins(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestSession(t, clock, nil)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Adopt(ctx, testUser(string(rune('a'+i))))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, domain.ErrStreamerActive)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestHeartbeatKeepsSeat_LapseFreesIt(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestSession(t, clock, nil)
	ctx := context.Background()
	alice := testUser("alice")

	_, err := svc.Adopt(ctx, alice)
	require.NoError(t, err)

	// Heartbeats inside the timeout keep the seat indefinitely.
	for i := 0; i < 10; i++ {
		clock.Advance(8 * time.Second)
		require.NoError(t, svc.Heartbeat(ctx, alice))
	}

	st, err := svc.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.OwnedBy(alice.ID))

	// A lapse past the timeout frees the seat on the next read.
	clock.Advance(domain.DefaultHeartbeatTimeout + time.Second)
	st, err = svc.State(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.ActiveStreamerID)

	// And the lapsed owner's heartbeat is now rejected.
	assert.ErrorIs(t, svc.Heartbeat(ctx, alice), domain.ErrNotStreamer)
}

func TestAdoptAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestSession(t, clock, nil)
	ctx := context.Background()

	_, err := svc.Adopt(ctx, testUser("alice"))
	require.NoError(t, err)

	// Seat occupied: bob is rejected.
	_, err = svc.Adopt(ctx, testUser("bob"))
	assert.ErrorIs(t, err, domain.ErrStreamerActive)

	// After alice lapses, bob's adopt succeeds without any explicit
	// release; the expiry applies inside the same atomic mutation.
	clock.Advance(domain.DefaultHeartbeatTimeout + time.Second)
	st, err := svc.Adopt(ctx, testUser("bob"))
	require.NoError(t, err)
	assert.True(t, st.OwnedBy(domain.UserID("bob")))
}

func TestSetLiveAndStatusSignal(t *testing.T) {
	clock := newFakeClock()
	pub := &recordingPublisher{}
	svc, _ := newTestSession(t, clock, pub)
	ctx := context.Background()
	alice := testUser("alice")

	_, err := svc.Adopt(ctx, alice)
	require.NoError(t, err)

	st, err := svc.SetLive(ctx, alice, true)
	require.NoError(t, err)
	assert.True(t, st.IsLive)

	statuses := pub.byType(realtime.TypeStreamStatus)
	require.NotEmpty(t, statuses)
	last := statuses[len(statuses)-1].(realtime.StreamStatus)
	require.NotNil(t, last.ActiveStreamerID)
	assert.Equal(t, "alice", *last.ActiveStreamerID)
	assert.True(t, last.IsLive)
	assert.NotNil(t, last.LiveStartedAt)
}

func TestRelease_AdminAndIdempotent(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestSession(t, clock, nil)
	ctx := context.Background()

	_, err := svc.Adopt(ctx, testUser("alice"))
	require.NoError(t, err)

	// Non-owner cannot release.
	_, err = svc.Release(ctx, testUser("bob"))
	assert.ErrorIs(t, err, domain.ErrNotStreamer)

	// Admin can.
	st, err := svc.Release(ctx, testAdmin("root"))
	require.NoError(t, err)
	assert.Nil(t, st.ActiveStreamerID)

	// Releasing an idle seat is a no-op, not an error.
	st, err = svc.Release(ctx, testUser("alice"))
	require.NoError(t, err)
	assert.Nil(t, st.ActiveStreamerID)
}

func TestTakeoverFlow(t *testing.T) {
	clock := newFakeClock()
	pub := &recordingPublisher{}
	svc, _ := newTestSession(t, clock, pub)
	ctx := context.Background()
	alice, bob := testUser("alice"), testUser("bob")

	_, err := svc.Adopt(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, svc.RequestTakeover(ctx, bob))

	// The owner's prompt data is discoverable by polling.
	pending, err := svc.PendingRequest(ctx)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, bob.ID, pending.FromUserID)
	assert.Equal(t, "name-of-bob", pending.FromUsername)

	// Re-request before cooldown: rate limited.
	clock.Advance(5 * time.Second)
	assert.ErrorIs(t, svc.RequestTakeover(ctx, bob), domain.ErrRequestCooldown)

	// Keep alice alive, then accept.
	require.NoError(t, svc.Heartbeat(ctx, alice))
	st, err := svc.RespondToRequest(ctx, alice, true, bob.ID)
	require.NoError(t, err)
	assert.True(t, st.OwnedBy(bob.ID))
	assert.False(t, st.IsLive)
	assert.Nil(t, st.Pending)

	handoffs := pub.byType(realtime.TypeStreamHandoff)
	require.Len(t, handoffs, 1)
	assert.Equal(t, "bob", handoffs[0].(realtime.StreamHandoff).NewStreamerUserID)
	require.Len(t, pub.byType(realtime.TypeStreamRequest), 1)
	require.Len(t, pub.byType(realtime.TypeStreamRequestResponse), 1)
}

func TestPendingRequestTTL(t *testing.T) {
	clock := newFakeClock()
	states := memory.NewMemoryStreamStateRepository()
	require.NoError(t, states.EnsureInitialized(context.Background()))

	svc := NewStreamSessionService(
		states, nil, realtime.NopPublisher{}, staticNames{}, nil,
		zap.NewNop().Sugar(),
		SessionConfig{Clock: clock.Now, PendingRequestTTL: time.Minute},
	)
	ctx := context.Background()
	alice, bob := testUser("alice"), testUser("bob")

	_, err := svc.Adopt(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, svc.RequestTakeover(ctx, bob))

	// Unanswered past the TTL: the request lapses while the owner keeps
	// heartbeating.
	for i := 0; i < 24; i++ {
		clock.Advance(5 * time.Second)
		require.NoError(t, svc.Heartbeat(ctx, alice))
	}

	pending, err := svc.PendingRequest(ctx)
	require.NoError(t, err)
	assert.Nil(t, pending)

	st, err := svc.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.OwnedBy(alice.ID))
}

// A lapsed seat is counted as an expired release exactly once, and only
// when the mutation that applied the expiry actually commits.
func TestExpiryMetric_CommittedLapsesOnly(t *testing.T) {
	clock := newFakeClock()
	metrics := newCountingMetrics()
	states := memory.NewMemoryStreamStateRepository()
	require.NoError(t, states.EnsureInitialized(context.Background()))

	svc := NewStreamSessionService(
		states, memory.NewMemoryAuditRepository(), realtime.NopPublisher{},
		staticNames{}, metrics, zap.NewNop().Sugar(),
		SessionConfig{Clock: clock.Now},
	)
	ctx := context.Background()
	alice, bob := testUser("alice"), testUser("bob")

	_, err := svc.Adopt(ctx, alice)
	require.NoError(t, err)

	clock.Advance(domain.DefaultHeartbeatTimeout + time.Second)

	// Bob's heartbeat observes the lapse but fails, so the mutation
	// aborts and the lapse stays uncounted.
	require.ErrorIs(t, svc.Heartbeat(ctx, bob), domain.ErrNotStreamer)
	assert.Equal(t, 0, metrics.released("expired"))

	// Bob's adopt commits the expiry along with the new ownership.
	_, err = svc.Adopt(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.released("expired"))

	// Subsequent operations must not re-count it.
	require.NoError(t, svc.Heartbeat(ctx, bob))
	_, err = svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.released("expired"))
}

// Random operation sequences must never produce a record that violates
// the structural invariants, and the repository must reject any that
// would.
func TestRandomOperations_InvariantsHold(t *testing.T) {
	clock := newFakeClock()
	svc, states := newTestSession(t, clock, nil)
	ctx := context.Background()

	users := []*domain.User{testUser("alice"), testUser("bob"), testUser("carol"), testAdmin("root")}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		u := users[rng.Intn(len(users))]
		switch rng.Intn(8) {
		case 0:
			svc.Adopt(ctx, u)
		case 1:
			svc.Heartbeat(ctx, u)
		case 2:
			svc.SetLive(ctx, u, rng.Intn(2) == 0)
		case 3:
			svc.Release(ctx, u)
		case 4:
			svc.RequestTakeover(ctx, u)
		case 5:
			target := users[rng.Intn(len(users))]
			svc.RespondToRequest(ctx, u, rng.Intn(2) == 0, target.ID)
		case 6:
			clock.Advance(time.Duration(rng.Intn(4000)) * time.Millisecond)
		case 7:
			svc.State(ctx)
		}

		st, err := states.Get(ctx)
		require.NoError(t, err)
		require.NoError(t, st.CheckInvariants(), "iteration %d", i)
	}
}
