package services

import (
	"context"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	apperrors "hudcast/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// MediaConfig points at the external SFU that carries the actual media.
// This service only signs join grants; no media bytes flow through it.
type MediaConfig struct {
	URL      string
	Room     string
	APIKey   string
	Secret   string
	TokenTTL time.Duration
}

func (c MediaConfig) configured() bool {
	return c.URL != "" && c.APIKey != "" && c.Secret != ""
}

// mediaGrant is the SFU join-token payload. CanPublish is the only bit the
// SFU enforces; everything upstream of it is advisory.
type mediaGrant struct {
	Room       string `json:"room"`
	Identity   string `json:"identity"`
	Name       string `json:"name"`
	CanPublish bool   `json:"canPublish"`
	jwt.RegisteredClaims
}

type mediaTokenService struct {
	session ports.StreamSessionService
	cfg     MediaConfig
	logger  *zap.SugaredLogger
}

func NewMediaTokenService(session ports.StreamSessionService, cfg MediaConfig, logger *zap.SugaredLogger) ports.MediaTokenService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &mediaTokenService{session: session, cfg: cfg, logger: logger}
}

// StreamerToken issues a publish grant. Ownership is re-checked against the
// post-expiry record at issue time: holding the seat yesterday buys nothing.
func (s *mediaTokenService) StreamerToken(ctx context.Context, user *domain.User) (string, string, error) {
	if !s.cfg.configured() {
		return "", "", apperrors.Unavailable("media server is not configured")
	}

	st, err := s.session.State(ctx)
	if err != nil {
		return "", "", err
	}
	if !st.OwnedBy(user.ID) {
		return "", "", domain.ErrNotStreamer
	}

	token, err := s.sign(user, true)
	if err != nil {
		return "", "", err
	}
	return token, s.cfg.URL, nil
}

// ViewerToken issues a subscribe-only grant to any authenticated user.
func (s *mediaTokenService) ViewerToken(ctx context.Context, user *domain.User) (string, string, error) {
	if !s.cfg.configured() {
		return "", "", apperrors.Unavailable("media server is not configured")
	}

	token, err := s.sign(user, false)
	if err != nil {
		return "", "", err
	}
	return token, s.cfg.URL, nil
}

func (s *mediaTokenService) sign(user *domain.User, canPublish bool) (string, error) {
	now := time.Now()
	grant := &mediaGrant{
		Room:       s.cfg.Room,
		Identity:   string(user.ID),
		Name:       user.DisplayName,
		CanPublish: canPublish,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.APIKey,
			Subject:   string(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, grant)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", err
	}
	return signed, nil
}
