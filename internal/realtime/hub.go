package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // fronted by the deployment's reverse proxy
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Identity is the authenticated principal behind a websocket connection.
type Identity struct {
	UserID   string
	Username string
}

// Authenticator resolves a bearer token into an identity. Implemented by
// the auth service; declared here so the hub does not depend on it.
type Authenticator interface {
	Authenticate(token string) (Identity, error)
}

// ChatStore persists accepted chat lines for the history endpoint.
// Implemented by the chat service; declared here so the hub does not
// depend on it. Nil disables persistence.
type ChatStore interface {
	Append(ctx context.Context, msg Chat) error
}

// HubConfig carries the websocket keepalive tuning.
type HubConfig struct {
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
}

type hubClient struct {
	conn     *websocket.Conn
	identity Identity
	mu       sync.Mutex // serializes writes to conn
}

func (c *hubClient) write(deadline time.Duration, messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(deadline))
	return c.conn.WriteMessage(messageType, data)
}

// Hub bridges the pub/sub bus to websocket viewers. It holds no
// authoritative state: a client that connects late simply polls the HTTP
// state endpoint and misses nothing it needs.
type Hub struct {
	bus   *Bus
	auth  Authenticator
	chats ChatStore
	cfg   HubConfig

	mu      sync.RWMutex
	clients map[*hubClient]struct{}

	logger *zap.SugaredLogger
}

func NewHub(bus *Bus, auth Authenticator, chats ChatStore, cfg HubConfig, logger *zap.SugaredLogger) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 16 * 1024
	}
	return &Hub{
		bus:     bus,
		auth:    auth,
		chats:   chats,
		cfg:     cfg,
		clients: make(map[*hubClient]struct{}),
		logger:  logger,
	}
}

// Run pumps bus messages to all connected clients until ctx is cancelled.
// Without a broker the hub only relays between its own clients.
func (h *Hub) Run(ctx context.Context) error {
	if h.bus == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return h.bus.Subscribe(ctx, func(msg Message) {
		h.broadcast(msg)
	})
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades an authenticated client connection and serves
// it until disconnect. The token travels in the query string because
// browsers cannot set headers on websocket dials.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	identity, err := h.auth.Authenticate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	client := &hubClient{conn: conn, identity: identity}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Infow("realtime client connected", "user_id", identity.UserID)
	h.serve(client)

	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	conn.Close()
	h.logger.Infow("realtime client disconnected", "user_id", identity.UserID)
}

func (h *Hub) serve(client *hubClient) {
	conn := client.conn
	conn.SetReadLimit(h.cfg.MaxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
		return nil
	})

	// done unblocks the reader when serve exits first (ping write error),
	// so a backlog of inbound messages cannot strand it.
	done := make(chan struct{})
	defer close(done)

	readErr := make(chan error, 1)
	incoming := make(chan []byte, 8)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
			select {
			case incoming <- data:
			case <-done:
				return
			}
		}
	}()

	pingTicker := time.NewTicker(h.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case data := <-incoming:
			h.handleInbound(client, data)

		case <-pingTicker.C:
			if err := client.write(h.cfg.WriteTimeout, websocket.PingMessage, nil); err != nil {
				return
			}

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Infow("realtime read error", "user_id", client.identity.UserID, "error", err)
			}
			return
		}
	}
}

// handleInbound accepts chat from clients. Everything else clients might
// send is ignored: stream state signals originate from the API server
// only, so a buggy or hostile client cannot impersonate the authority.
func (h *Hub) handleInbound(client *hubClient, data []byte) {
	msg, err := Decode(data)
	if err != nil {
		h.logger.Debugw("ignoring invalid client message", "user_id", client.identity.UserID, "error", err)
		return
	}
	chat, ok := msg.(Chat)
	if !ok {
		h.logger.Debugw("ignoring non-chat client message",
			"user_id", client.identity.UserID,
			"type", msg.MessageType(),
		)
		return
	}

	// Re-stamp identity and ID server-side; the client's claims about who
	// it is are not trusted.
	out := NewChat(uuid.New().String(), client.identity.UserID, client.identity.Username, chat.Text)

	// Persist before fan-out so the history endpoint never misses a line
	// that connected clients saw. Only the origin hub writes; instances
	// receiving it over the bus would duplicate the row.
	if h.chats != nil {
		if err := h.chats.Append(context.Background(), out); err != nil {
			h.logger.Warnw("chat persist failed", "error", err)
		}
	}

	h.broadcast(out)
	if h.bus != nil {
		if err := h.bus.Publish(context.Background(), out); err != nil {
			h.logger.Warnw("chat publish failed", "error", err)
		}
	}
}

func (h *Hub) broadcast(msg Message) {
	data, err := Encode(msg)
	if err != nil {
		h.logger.Errorw("failed to encode broadcast", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(h.cfg.WriteTimeout, websocket.TextMessage, data); err != nil {
			// Reader will notice the dead connection and unregister it.
			h.logger.Debugw("dropping undeliverable message", "user_id", c.identity.UserID, "error", err)
		}
	}
}
