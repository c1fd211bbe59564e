package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"hudcast/internal/core/domain"
	"hudcast/internal/core/ports"
	"hudcast/pkg/cache"
	apperrors "hudcast/pkg/errors"
	"hudcast/pkg/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const displayNameCacheTTL = 30 * time.Second

type userService struct {
	users  ports.UserRepository
	audit  ports.AuditRepository
	names  *cache.Cache
	logger *zap.SugaredLogger
}

// NewUserService builds the account management service. It also serves as
// the NameResolver for realtime messages, with a short TTL cache so signal
// fan-out does not hit the store per message.
func NewUserService(users ports.UserRepository, audit ports.AuditRepository, logger *zap.SugaredLogger) ports.UserService {
	return &userService{
		users:  users,
		audit:  audit,
		names:  cache.New(displayNameCacheTTL),
		logger: logger,
	}
}

func (s *userService) Create(ctx context.Context, actor *domain.User, username, displayName, password string, role domain.UserRole) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("admin role required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}
	if role != domain.RoleAdmin && role != domain.RoleUser {
		return nil, apperrors.BadRequest("role must be admin or user")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:                 domain.UserID(uuid.New().String()),
		Username:           strings.ToLower(strings.TrimSpace(username)),
		DisplayName:        strings.TrimSpace(displayName),
		PasswordHash:       hash,
		Role:               role,
		MustChangePassword: true,
		CreatedAt:          time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, actor.ID, domain.AuditUserCreate, user.ID, map[string]interface{}{"username": user.Username, "role": string(role)})
	return user, nil
}

func (s *userService) Update(ctx context.Context, actor *domain.User, id domain.UserID, displayName *string, role *domain.UserRole, disabled *bool) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("admin role required")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if displayName != nil {
		if err := validation.ValidateDisplayName(*displayName); err != nil {
			return nil, apperrors.BadRequest(err.Error())
		}
		user.DisplayName = strings.TrimSpace(*displayName)
	}
	if role != nil {
		if *role != domain.RoleAdmin && *role != domain.RoleUser {
			return nil, apperrors.BadRequest("role must be admin or user")
		}
		user.Role = *role
	}
	if disabled != nil {
		// Admins cannot lock themselves out.
		if *disabled && user.ID == actor.ID {
			return nil, apperrors.BadRequest("cannot disable your own account")
		}
		user.Disabled = *disabled
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.names.Delete(string(user.ID))

	s.writeAudit(ctx, actor.ID, domain.AuditUserUpdate, user.ID, nil)
	return user, nil
}

func (s *userService) ResetPassword(ctx context.Context, actor *domain.User, id domain.UserID, password string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("admin role required")
	}
	if err := validation.ValidatePassword(password); err != nil {
		return apperrors.BadRequest(err.Error())
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.MustChangePassword = true
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.writeAudit(ctx, actor.ID, domain.AuditUserResetPass, user.ID, nil)
	return nil
}

func (s *userService) ChangePassword(ctx context.Context, user *domain.User, current, next string) error {
	if err := validation.ValidatePassword(next); err != nil {
		return apperrors.BadRequest(err.Error())
	}

	stored, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(current)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	stored.PasswordHash = hash
	stored.MustChangePassword = false
	if err := s.users.Update(ctx, stored); err != nil {
		return err
	}

	s.writeAudit(ctx, user.ID, domain.AuditPasswordChange, user.ID, nil)
	return nil
}

func (s *userService) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *userService) PublicList(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	public := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		if u.Disabled {
			continue
		}
		public = append(public, u.Public())
	}
	sort.Slice(public, func(i, j int) bool { return public[i].DisplayName < public[j].DisplayName })
	return public, nil
}

// DisplayName resolves a user's display name for outgoing realtime
// messages. A miss on a deleted user degrades to the raw ID rather than
// failing the caller.
func (s *userService) DisplayName(ctx context.Context, id domain.UserID) string {
	if v, ok := s.names.Get(string(id)); ok {
		return v.(string)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		s.logger.Debugw("display name lookup failed", "user_id", id, "error", err)
		return string(id)
	}
	s.names.Set(string(id), user.DisplayName)
	return user.DisplayName
}

func (s *userService) writeAudit(ctx context.Context, actor domain.UserID, action string, target domain.UserID, meta map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		ActorUserID:  actor,
		Action:       action,
		TargetUserID: target,
		Metadata:     meta,
		CreatedAt:    time.Now(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warnw("audit append failed", "action", action, "error", err)
	}
}
