package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

const minPasswordLength = 8

type AuthService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenManager
	events ports.EventPublisher
	now    func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenManager,
	events ports.EventPublisher,
) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		events: events,
		now:    time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, cmd domain.RegisterCommand) (*domain.AuthSession, error) {
	user, err := s.createUser(ctx, cmd, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	session, err := s.session(user)
	if err != nil {
		return nil, err
	}
	s.activity(ctx, user, "register")
	return session, nil
}

func (s *AuthService) Login(ctx context.Context, cmd domain.LoginCommand) (*domain.AuthSession, error) {
	email := normalizeEmail(cmd.Email)
	if email == "" || cmd.Password == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "login", errors.New("email and password are required"))
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.ErrUnauthorized, "login", "invalid credentials")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, cmd.Password); err != nil {
		return nil, domain.NewError(domain.ErrUnauthorized, "login", "invalid credentials")
	}
	session, err := s.session(user)
	if err != nil {
		return nil, err
	}
	s.activity(ctx, user, "login")
	return session, nil
}

func (s *AuthService) Verify(_ context.Context, token string) (domain.AuthClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.AuthClaims{}, domain.NewError(domain.ErrUnauthorized, "verify token", "missing token")
	}
	return s.tokens.Parse(token)
}

func (s *AuthService) Me(ctx context.Context, userID string) (domain.AuthUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.AuthUser{}, err
	}
	return user.Public(), nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]domain.AuthUser, error) {
	records, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.AuthUser, 0, len(records))
	for _, r := range records {
		out = append(out, r.Public())
	}
	return out, nil
}

// EnsureAdmin creates the configured administrator when no account with that
// email exists yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	_, err = s.createUser(ctx, domain.RegisterCommand{Email: email, Password: password, Name: "Administrator"}, domain.RoleAdmin)
	switch {
	case err == nil:
		slog.Info("admin_seeded", "email", email)
	case domain.IsKind(err, domain.ErrConflict):
		// Another process seeded it between the lookup and the insert.
		slog.Debug("admin_seed_skipped", "email", email)
	default:
		return err
	}
	return nil
}

func (s *AuthService) createUser(ctx context.Context, cmd domain.RegisterCommand, role domain.Role) (*domain.UserRecord, error) {
	email := normalizeEmail(cmd.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register", errors.New("valid email is required"))
	}
	if len(cmd.Password) < minPasswordLength {
		return nil, domain.NewError(domain.ErrInvalidInput, "register", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(cmd.Name),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) session(user *domain.UserRecord) (*domain.AuthSession, error) {
	token, expiresAt, err := s.tokens.Issue(*user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &domain.AuthSession{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user.Public(),
	}, nil
}

func (s *AuthService) activity(ctx context.Context, user *domain.UserRecord, action string) {
	publishEvent(ctx, s.events, domain.EventUserActivity, map[string]any{
		"userId": user.ID,
		"email":  user.Email,
		"action": action,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
