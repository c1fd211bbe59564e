package ports

import (
	"context"
	"time"

	"hudcast/internal/core/domain"
)

// PendingRequestView is the pending takeover request joined with the
// requester's display name, for the owner's prompt UI.
type PendingRequestView struct {
	FromUserID   domain.UserID `json:"fromUserId"`
	FromUsername string        `json:"fromUsername"`
	RequestedAt  time.Time     `json:"requestedAt"`
}

// StreamSessionService is the ownership state machine. Every operation
// first applies the expiry policy, then executes against the post-expiry
// record inside one atomic repository mutation.
type StreamSessionService interface {
	State(ctx context.Context) (*domain.StreamState, error)
	Adopt(ctx context.Context, user *domain.User) (*domain.StreamState, error)
	Heartbeat(ctx context.Context, user *domain.User) error
	SetLive(ctx context.Context, user *domain.User, live bool) (*domain.StreamState, error)
	Release(ctx context.Context, user *domain.User) (*domain.StreamState, error)
	RequestTakeover(ctx context.Context, user *domain.User) error
	RespondToRequest(ctx context.Context, responder *domain.User, accept bool, target domain.UserID) (*domain.StreamState, error)
	PendingRequest(ctx context.Context) (*PendingRequestView, error)
}

type UserService interface {
	Create(ctx context.Context, actor *domain.User, username, displayName, password string, role domain.UserRole) (*domain.User, error)
	Update(ctx context.Context, actor *domain.User, id domain.UserID, displayName *string, role *domain.UserRole, disabled *bool) (*domain.User, error)
	ResetPassword(ctx context.Context, actor *domain.User, id domain.UserID, password string) error
	ChangePassword(ctx context.Context, user *domain.User, current, next string) error
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	PublicList(ctx context.Context) ([]domain.PublicUser, error)
	DisplayName(ctx context.Context, id domain.UserID) string
}

// ChatService serves recent chat history, oldest first, to clients
// joining mid-conversation. Limit is clamped server-side.
type ChatService interface {
	History(ctx context.Context, limit int) ([]*domain.ChatMessage, error)
}

type TelemetryService interface {
	Update(ctx context.Context, user *domain.User, t domain.Telemetry) error
	Latest(ctx context.Context) (*domain.Telemetry, error)
}

// MediaTokenService issues signed join tokens for the external SFU. It
// decides who may request a publish token; media flow itself is out of
// process.
type MediaTokenService interface {
	StreamerToken(ctx context.Context, user *domain.User) (token string, url string, err error)
	ViewerToken(ctx context.Context, user *domain.User) (token string, url string, err error)
}
