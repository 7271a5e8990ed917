package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lis/internal/auth/domain"
	"github.com/smallbiznis/lis/internal/auth/password"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/config"
	"github.com/smallbiznis/lis/internal/observability/metrics"
	"github.com/smallbiznis/lis/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sessionTokenBytes = 32
	sessionTTL        = 7 * 24 * time.Hour

	resetTokenBytes = 32
	resetTokenTTL   = 30 * time.Minute
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
	ResetRepo   domain.ResetTokenRepository
	GenID       *snowflake.Node
	Clock       clock.Clock
	Email       email.Provider
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	baseURL     string
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	resetRepo   domain.ResetTokenRepository
	genID       *snowflake.Node
	clock       clock.Clock
	email       email.Provider
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("auth.service"),
		baseURL:     strings.TrimRight(p.Cfg.PublicBaseURL, "/"),
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		resetRepo:   p.ResetRepo,
		genID:       p.GenID,
		clock:       p.Clock,
		email:       p.Email,
		metrics:     p.Metrics,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if !password.Acceptable(req.Password) {
		return nil, domain.ErrInvalidPassword
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName(email)
	}
	user := &domain.User{
		ID:           s.genID.Generate(),
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: &hashed,
		IsDefault:    req.IsDefault,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !req.IsDefault {
		user.LastPasswordChanged = &now
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		s.metrics.RecordLogin(ctx, "invalid")
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		s.metrics.RecordLogin(ctx, "invalid")
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.metrics.RecordLogin(ctx, "invalid")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		s.log.Debug("login rejected", zap.String("user_id", user.ID.String()))
		s.metrics.RecordLogin(ctx, "invalid")
		return nil, domain.ErrInvalidCredentials
	}
	if password.NeedsRehash(*user.PasswordHash) {
		s.upgradePasswordHash(ctx, user.ID, req.Password)
	}

	rawToken, err := newRandomToken(sessionTokenBytes)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(ctx, "success")

	passwordState := "rotated"
	if user.IsDefault || user.LastPasswordChanged == nil {
		passwordState = "default"
	}

	return &domain.LoginResult{
		Session: &domain.SessionView{
			Metadata: map[string]any{
				"user_id":        user.ID.String(),
				"display_name":   user.DisplayName,
				"email":          user.Email,
				"is_default":     user.IsDefault,
				"password_state": passwordState,
			},
		},
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
		UserID:    user.ID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}
	if session.RevokedAt != nil {
		return nil
	}

	return s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now())
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Session, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}

	now := s.clock.Now()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if !now.Before(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, err
	}
	session.LastSeenAt = now

	return session, nil
}

// SetActiveOrg switches the org used by the session. Membership is checked by the caller.
func (s *Service) SetActiveOrg(ctx context.Context, sessionID snowflake.ID, orgID snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrNotMember
	}
	id := orgID.Int64()
	return s.sessionRepo.UpdateActiveOrg(ctx, sessionID, &id)
}

func (s *Service) ChangePassword(ctx context.Context, userID snowflake.ID, req domain.ChangePasswordRequest) error {
	if !password.Acceptable(req.NewPassword) {
		return domain.ErrInvalidPassword
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == nil || !password.Verify(req.CurrentPassword, *user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	return s.setPassword(ctx, s.repo, userID, req.NewPassword)
}

// upgradePasswordHash re-encodes a verified password with the current cost settings.
// Failures only cost another attempt at the next login.
func (s *Service) upgradePasswordHash(ctx context.Context, userID snowflake.ID, plain string) {
	hashed, err := password.Hash(plain)
	if err == nil {
		err = s.repo.UpdateFields(ctx, userID, map[string]any{"password_hash": hashed})
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *Service) GetUser(ctx context.Context, userID snowflake.ID) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

// RequestPasswordReset issues a fresh reset token and mails the link. Earlier unused
// tokens of the same user stop working.
func (s *Service) RequestPasswordReset(ctx context.Context, rawEmail string) error {
	addr, err := normalizeEmail(rawEmail)
	if err != nil {
		return domain.ErrInvalidEmail
	}

	user, err := s.repo.FindByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.metrics.RecordPasswordReset(ctx, "requested", "unknown_email")
		}
		return err
	}

	rawToken, err := newRandomToken(resetTokenBytes)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	token := &domain.PasswordResetToken{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resetRepo := s.resetRepo.WithTx(tx)
		if err := resetRepo.InvalidateUserResetTokens(ctx, user.ID, now); err != nil {
			return err
		}
		return resetRepo.CreateResetToken(ctx, token)
	})
	if err != nil {
		return err
	}

	err = s.email.SendTemplate(ctx, []string{user.Email}, email.TemplatePasswordReset, map[string]any{
		"name":               user.DisplayName,
		"reset_url":          s.resetURL(rawToken),
		"expires_in_minutes": int(resetTokenTTL / time.Minute),
	})
	if err != nil {
		s.log.Error("failed to send password reset email",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		s.metrics.RecordPasswordReset(ctx, "requested", "email_failed")
		return err
	}

	s.metrics.RecordPasswordReset(ctx, "requested", "sent")
	s.log.Info("password reset requested", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword consumes a reset token, rotates the password and revokes every session of the user.
func (s *Service) ResetPassword(ctx context.Context, rawToken string, newPassword string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidResetToken
	}
	if !password.Acceptable(newPassword) {
		return domain.ErrInvalidPassword
	}

	now := s.clock.Now()
	var userID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resetRepo := s.resetRepo.WithTx(tx)

		record, err := resetRepo.GetResetTokenByHash(ctx, hashToken(token))
		if err != nil {
			return err
		}
		if record.UsedAt != nil || !now.Before(record.ExpiresAt) {
			return domain.ErrInvalidResetToken
		}

		consumed, err := resetRepo.MarkResetTokenUsed(ctx, record.ID, now)
		if err != nil {
			return err
		}
		if !consumed {
			return domain.ErrInvalidResetToken
		}

		if err := s.setPassword(ctx, s.repo.WithTx(tx), record.UserID, newPassword); err != nil {
			return err
		}
		if _, err := s.sessionRepo.WithTx(tx).RevokeUserSessions(ctx, record.UserID, now); err != nil {
			return err
		}
		userID = record.UserID
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidResetToken) {
			s.metrics.RecordPasswordReset(ctx, "completed", "invalid_token")
		}
		return err
	}

	s.metrics.RecordPasswordReset(ctx, "completed", "success")
	s.log.Info("password reset completed", zap.String("user_id", userID.String()))
	return nil
}

func (s *Service) setPassword(ctx context.Context, repo domain.Repository, userID snowflake.ID, newPassword string) error {
	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	return repo.UpdateFields(ctx, userID, map[string]any{
		"password_hash":         hashed,
		"last_password_changed": now,
		"is_default":            false,
		"updated_at":            now,
	})
}

func (s *Service) resetURL(rawToken string) string {
	return s.baseURL + "/reset-password?token=" + url.QueryEscape(rawToken)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func defaultDisplayName(email string) string {
	if local, _, ok := strings.Cut(email, "@"); ok && strings.TrimSpace(local) != "" {
		return strings.TrimSpace(local)
	}
	return email
}

func newRandomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
