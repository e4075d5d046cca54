package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mverma16/playtube/internal/events"
	"github.com/mverma16/playtube/internal/hash"
	"github.com/mverma16/playtube/internal/logging"
	"github.com/mverma16/playtube/internal/models"
	"github.com/mverma16/playtube/internal/repo"
	"github.com/mverma16/playtube/internal/tokens"
)

type AuthService struct {
	Repo   *repo.GormRepo
	Codec  *tokens.Codec
	Hasher *hash.Hasher

	// Events is optional; publishing is best-effort and never fails a request.
	Events *events.Producer
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type LoginResult struct {
	TokenPair
	User *models.User
}

type RegisterParams struct {
	Username      string
	Email         string
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *AuthService) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	p.Username = normalize(p.Username)
	p.Email = normalize(p.Email)
	p.FullName = strings.TrimSpace(p.FullName)

	if p.Username == "" || p.Email == "" || p.FullName == "" || p.Password == "" {
		return nil, fmt.Errorf("%w: username, email, full name and password are required", ErrValidation)
	}

	pwHash, err := s.Hasher.Hash(p.Password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Username:      p.Username,
		Email:         p.Email,
		FullName:      p.FullName,
		AvatarURL:     p.AvatarURL,
		CoverImageURL: p.CoverImageURL,
		PasswordHash:  pwHash,
	}

	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_failed", "reason", "user_exists")
			return nil, ErrConflict
		}
		l.Error("register_failed", "reason", "db_error", "error", err)
		return nil, err
	}

	s.publish(ctx, l, user.ID, "user_registered", map[string]any{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
	})

	l.Info("register_success", "user_id", user.ID)
	return &user, nil
}

// Login verifies the password for a username or email and issues a fresh
// access/refresh pair. The new refresh token replaces whatever was stored
// before, so at most one session is live per user.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	identifier = normalize(identifier)
	if identifier == "" || password == "" {
		return nil, fmt.Errorf("%w: identifier and password are required", ErrValidation)
	}

	user, err := s.Repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "reason", "db_error", "error", err)
		return nil, err
	}

	ok, err := s.Hasher.Verify(user.PasswordHash, password)
	if err != nil {
		l.Error("login_failed", "reason", "corrupt_hash", "user_id", user.ID, "error", err)
		return nil, err
	}
	if !ok {
		l.Warn("login_failed", "reason", "wrong_password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		l.Error("login_failed", "reason", "token_issue", "error", err)
		return nil, err
	}

	if err := s.Repo.SetRefreshToken(ctx, user.ID, tokens.Fingerprint(pair.RefreshToken)); err != nil {
		l.Error("login_failed", "reason", "db_error", "error", err)
		return nil, err
	}

	s.publish(ctx, l, user.ID, "user_logged_in", map[string]any{
		"type":    "user_logged_in",
		"user_id": user.ID,
	})

	l.Info("login_success", "user_id", user.ID)
	return &LoginResult{TokenPair: pair, User: user}, nil
}

// Refresh redeems a refresh token for a new pair. The presented token must
// still be the one on record; the swap is a conditional update, so if two
// calls race on the same token exactly one wins.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Codec.VerifyRefresh(presented)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			l.Warn("refresh_failed", "reason", "token_expired")
		} else {
			l.Warn("refresh_failed", "reason", "token_invalid")
		}
		return nil, ErrSessionInvalid
	}

	user, err := s.Repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh_failed", "reason", "user_not_found")
			return nil, ErrSessionInvalid
		}
		l.Error("refresh_failed", "reason", "db_error", "error", err)
		return nil, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		l.Error("refresh_failed", "reason", "token_issue", "error", err)
		return nil, err
	}

	ok, err := s.Repo.UpdateRefreshToken(ctx, user.ID,
		tokens.Fingerprint(presented), tokens.Fingerprint(pair.RefreshToken))
	if err != nil {
		l.Error("refresh_failed", "reason", "db_error", "error", err)
		return nil, err
	}
	if !ok {
		// Cryptographically valid but no longer on record: either it was
		// already rotated away or a concurrent refresh won the swap.
		l.Warn("refresh_failed", "reason", "token_superseded", "user_id", user.ID)
		return nil, ErrSessionInvalid
	}

	l.Info("refresh_success", "user_id", user.ID)
	return &LoginResult{TokenPair: pair, User: user}, nil
}

// Logout clears the stored refresh token. It is idempotent; logging out an
// already logged-out user is not an error.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if err := s.Repo.ClearRefreshToken(ctx, userID); err != nil {
		l.Error("logout_failed", "reason", "db_error", "error", err)
		return err
	}

	s.publish(ctx, l, userID, "user_logged_out", map[string]any{
		"type":    "user_logged_out",
		"user_id": userID,
	})

	l.Info("logout_success", "user_id", userID)
	return nil
}

// ChangePassword replaces the stored hash. The current refresh token is left
// untouched, so the active session survives the change.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password")

	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("change_password_failed", "reason", "user_not_found")
			return ErrInvalidCredentials
		}
		l.Error("change_password_failed", "reason", "db_error", "error", err)
		return err
	}

	ok, err := s.Hasher.Verify(user.PasswordHash, oldPassword)
	if err != nil {
		l.Error("change_password_failed", "reason", "corrupt_hash", "user_id", user.ID, "error", err)
		return err
	}
	if !ok {
		l.Warn("change_password_failed", "reason", "wrong_password", "user_id", user.ID)
		return ErrInvalidCredentials
	}

	pwHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		l.Error("change_password_failed", "reason", "cannot hash the password", "error", err)
		return err
	}

	if err := s.Repo.UpdatePasswordHash(ctx, user.ID, pwHash); err != nil {
		l.Error("change_password_failed", "reason", "db_error", "error", err)
		return err
	}

	l.Info("change_password_success", "user_id", user.ID)
	return nil
}

// Resolve turns an inbound access token into its claims. Every verification
// failure collapses to ErrUnauthenticated; callers never learn why.
func (s *AuthService) Resolve(accessToken string) (*tokens.AccessClaims, error) {
	claims, err := s.Codec.VerifyAccess(accessToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issuePair(user *models.User) (TokenPair, error) {
	access, accessExp, err := s.Codec.IssueAccess(user.ID, user.Username, user.Email)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.Codec.IssueRefresh(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, l *slog.Logger, key, name string, event map[string]any) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Events.Publish(pubCtx, key, event); err != nil {
		l.Error("kafka_publish_error", "event", name, "error", err)
	}
}
