package services

import (
	"context"
	"errors"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	"hudcast/internal/realtime"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the bearer-token payload. Role and disabled status are NOT
// trusted from the token: the middleware re-resolves the user per request
// so a disabled account loses access before its token expires.
type Claims struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	jwt.RegisteredClaims
}

// AuthService issues and validates access tokens and performs
// username/password login.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*domain.User, string, error)
	GenerateToken(user *domain.User) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
	ResolveUser(ctx context.Context, claims *Claims) (*domain.User, error)
	Authenticate(token string) (realtime.Identity, error)
}

type authService struct {
	users          ports.UserRepository
	audit          ports.AuditRepository
	jwtSecret      []byte
	accessTokenTTL time.Duration
	logger         *zap.SugaredLogger
}

func NewAuthService(
	users ports.UserRepository,
	audit ports.AuditRepository,
	jwtSecret string,
	accessTokenTTL time.Duration,
	logger *zap.SugaredLogger,
) AuthService {
	return &authService{
		users:          users,
		audit:          audit,
		jwtSecret:      []byte(jwtSecret),
		accessTokenTTL: accessTokenTTL,
		logger:         logger,
	}
}

func (s *authService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if user.Disabled {
		return nil, "", domain.ErrUserDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}

	if s.audit != nil {
		entry := &domain.AuditEntry{
			ActorUserID: user.ID,
			Action:      domain.AuditLogin,
			CreatedAt:   time.Now(),
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			s.logger.Warnw("audit append failed", "action", domain.AuditLogin, "error", err)
		}
	}
	return user, token, nil
}

func (s *authService) GenerateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// ResolveUser loads the token's user from the store, rejecting deleted or
// disabled accounts.
func (s *authService) ResolveUser(ctx context.Context, claims *Claims) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, domain.ErrUserDisabled
	}
	return user, nil
}

// Authenticate implements realtime.Authenticator for the websocket hub.
func (s *authService) Authenticate(token string) (realtime.Identity, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return realtime.Identity{}, err
	}
	user, err := s.ResolveUser(context.Background(), claims)
	if err != nil {
		return realtime.Identity{}, err
	}
	return realtime.Identity{UserID: string(user.ID), Username: user.DisplayName}, nil
}

// HashPassword is the single place password hashing strength is chosen.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
