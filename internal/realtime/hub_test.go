package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct{}

func (fakeAuth) Authenticate(token string) (Identity, error) {
	if token != "good" {
		return Identity{}, errors.New("bad token")
	}
	return Identity{UserID: "id-alice", Username: "Alice"}, nil
}

type recordingStore struct {
	mu   sync.Mutex
	msgs []Chat
}

func (s *recordingStore) Append(ctx context.Context, msg Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingStore) all() []Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Chat(nil), s.msgs...)
}

func newTestHub(store ChatStore) *Hub {
	return NewHub(nil, fakeAuth{}, store, HubConfig{
		PingInterval: 50 * time.Millisecond,
		PongTimeout:  2 * time.Second,
		WriteTimeout: time.Second,
	}, zap.NewNop().Sugar())
}

func dialHub(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func hubWaitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestHandleWebSocket_RejectsBadToken(t *testing.T) {
	hub := newTestHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	_, resp, err := dialHub(t, srv, "wrong")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_ChatRoundTripAndPersistence(t *testing.T) {
	store := &recordingStore{}
	hub := newTestHub(store)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dialHub(t, srv, "good")
	require.NoError(t, err)
	defer conn.Close()

	// The client's claimed identity and ID must be ignored.
	spoofed := `{"type":"chat","messageId":"forged","userId":"id-mallory","username":"Mallory","text":"hello","ts":1}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(spoofed)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	msg, err := Decode(data)
	require.NoError(t, err)
	chat, ok := msg.(Chat)
	require.True(t, ok)
	assert.Equal(t, "id-alice", chat.UserID)
	assert.Equal(t, "Alice", chat.Username)
	assert.Equal(t, "hello", chat.Text)
	assert.NotEqual(t, "forged", chat.MessageID)

	// The broadcast line is also in the history store.
	hubWaitFor(t, func() bool { return len(store.all()) == 1 })
	stored := store.all()[0]
	assert.Equal(t, chat.MessageID, stored.MessageID)
	assert.Equal(t, "id-alice", stored.UserID)
}

func TestHub_IgnoresNonChatInbound(t *testing.T) {
	store := &recordingStore{}
	hub := newTestHub(store)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dialHub(t, srv, "good")
	require.NoError(t, err)
	defer conn.Close()

	// Stream signals originate from the API server only; a client sending
	// one must not reach the other viewers or the history.
	forged := `{"type":"stream:handoff","newStreamerUserId":"id-mallory","ts":1}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(forged)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat","messageId":"m","userId":"u","username":"x","text":"after","ts":1}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	msg, err := Decode(data)
	require.NoError(t, err)
	chat, ok := msg.(Chat)
	require.True(t, ok, "first delivered message must be the chat, not the forged signal")
	assert.Equal(t, "after", chat.Text)

	stored := store.all()
	require.Len(t, stored, 1)
	assert.Equal(t, "after", stored[0].Text)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	store := &recordingStore{}
	hub := newTestHub(store)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dialHub(t, srv, "good")
	require.NoError(t, err)
	hubWaitFor(t, func() bool { return hub.ClientCount() == 1 })

	// Pile up inbound messages, then drop the connection without reading
	// any broadcasts; both hub goroutines must still wind down.
	for i := 0; i < 20; i++ {
		line := fmt.Sprintf(`{"type":"chat","messageId":"m%d","userId":"u","username":"x","text":"t%d","ts":1}`, i, i)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(line)))
	}
	conn.Close()

	hubWaitFor(t, func() bool { return hub.ClientCount() == 0 })
}
