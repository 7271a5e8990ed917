package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/lis/internal/auth/domain"
	"github.com/smallbiznis/lis/internal/auth/repository"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/internal/config"
	"github.com/smallbiznis/lis/pkg/db"
	"go.uber.org/zap"
)

type capturedEmail struct {
	to       []string
	template string
	data     map[string]any
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []capturedEmail
	err  error
}

func (f *fakeEmail) Send(context.Context, []string, string, string) error { return f.err }

func (f *fakeEmail) SendTemplate(_ context.Context, to []string, templateName string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, capturedEmail{to: to, template: templateName, data: data})
	return nil
}

func (f *fakeEmail) lastToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("expected an email to be sent")
	}
	link, _ := f.sent[len(f.sent)-1].data["reset_url"].(string)
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("invalid reset url %q: %v", link, err)
	}
	if parsed.Path != "/reset-password" {
		t.Fatalf("unexpected reset path %q", parsed.Path)
	}
	return parsed.Query().Get("token")
}

type testEnv struct {
	svc   authdomain.Service
	clock *clock.FakeClock
	email *fakeEmail
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}, &authdomain.PasswordResetToken{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo, sessionRepo, resetRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	fc := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	mailer := &fakeEmail{}
	svc := New(Params{
		DB:          dbConn,
		Log:         zap.NewNop(),
		Cfg:         config.Config{PublicBaseURL: "http://localhost:8080/"},
		Repo:        repo,
		SessionRepo: sessionRepo,
		ResetRepo:   resetRepo,
		GenID:       node,
		Clock:       fc,
		Email:       mailer,
	})
	return testEnv{svc: svc, clock: fc, email: mailer}
}

func createUser(t *testing.T, svc authdomain.Service, email, password string) *authdomain.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	createUser(t, env.svc, "alice@example.com", "correct-password")

	_, err := env.svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateUserNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, env.svc, "  Bob@Example.com ", "strong-password")
	if user.Email != "bob@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.DisplayName != "bob" {
		t.Fatalf("expected display name from email, got %q", user.DisplayName)
	}

	_, err := env.svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "bob@example.com",
		Password: "strong-password",
	})
	if !errors.Is(err, authdomain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	_, err = env.svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "carol@example.com",
		Password: "short",
	})
	if !errors.Is(err, authdomain.ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createUser(t, env.svc, "dana@example.com", "dana-password")

	result, err := env.svc.Login(ctx, authdomain.LoginRequest{Email: "dana@example.com", Password: "dana-password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.RawToken == "" {
		t.Fatalf("expected raw token")
	}
	if want := env.clock.Now().Add(sessionTTL); !result.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, result.ExpiresAt)
	}

	session, err := env.svc.Authenticate(ctx, result.RawToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.UserID != result.UserID {
		t.Fatalf("session bound to wrong user")
	}

	if err := env.svc.SetActiveOrg(ctx, session.ID, snowflake.ID(99)); err != nil {
		t.Fatalf("set active org: %v", err)
	}
	session, err = env.svc.Authenticate(ctx, result.RawToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.ActiveOrgID == nil || *session.ActiveOrgID != 99 {
		t.Fatalf("expected active org 99, got %v", session.ActiveOrgID)
	}

	if err := env.svc.Logout(ctx, result.RawToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := env.svc.Authenticate(ctx, result.RawToken); !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestAuthenticateExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	createUser(t, env.svc, "erin@example.com", "erin-password")

	result, err := env.svc.Login(context.Background(), authdomain.LoginRequest{Email: "erin@example.com", Password: "erin-password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	env.clock.Advance(sessionTTL)
	if _, err := env.svc.Authenticate(context.Background(), result.RawToken); !errors.Is(err, authdomain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, err := env.svc.Authenticate(context.Background(), "unknown"); !errors.Is(err, authdomain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env.svc, "fay@example.com", "fay-password")

	err := env.svc.ChangePassword(ctx, user.ID, authdomain.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	err = env.svc.ChangePassword(ctx, user.ID, authdomain.ChangePasswordRequest{CurrentPassword: "fay-password", NewPassword: "new-password"})
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := env.svc.Login(ctx, authdomain.LoginRequest{Email: "fay@example.com", Password: "new-password"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	if !errors.Is(err, authdomain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(env.email.sent) != 0 {
		t.Fatalf("expected no email to be sent")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createUser(t, env.svc, "gus@example.com", "old-password")

	login, err := env.svc.Login(ctx, authdomain.LoginRequest{Email: "gus@example.com", Password: "old-password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := env.svc.RequestPasswordReset(ctx, "GUS@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if env.email.sent[0].template != "password_reset" || env.email.sent[0].to[0] != "gus@example.com" {
		t.Fatalf("unexpected email %+v", env.email.sent[0])
	}
	token := env.email.lastToken(t)

	if err := env.svc.ResetPassword(ctx, token, "short"); !errors.Is(err, authdomain.ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}

	if err := env.svc.ResetPassword(ctx, token, "brand-new-password"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	if _, err := env.svc.Authenticate(ctx, login.RawToken); !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected existing sessions to be revoked, got %v", err)
	}
	if _, err := env.svc.Login(ctx, authdomain.LoginRequest{Email: "gus@example.com", Password: "brand-new-password"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	if err := env.svc.ResetPassword(ctx, token, "another-password"); !errors.Is(err, authdomain.ErrInvalidResetToken) {
		t.Fatalf("expected used token to be rejected, got %v", err)
	}
}

func TestPasswordResetTokenExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createUser(t, env.svc, "hal@example.com", "hal-password")

	if err := env.svc.RequestPasswordReset(ctx, "hal@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := env.email.lastToken(t)

	env.clock.Advance(resetTokenTTL + time.Second)
	if err := env.svc.ResetPassword(ctx, token, "fresh-password"); !errors.Is(err, authdomain.ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
}

func TestNewResetTokenInvalidatesPrevious(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	createUser(t, env.svc, "ivy@example.com", "ivy-password")

	if err := env.svc.RequestPasswordReset(ctx, "ivy@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	first := env.email.lastToken(t)
	if err := env.svc.RequestPasswordReset(ctx, "ivy@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	second := env.email.lastToken(t)

	if err := env.svc.ResetPassword(ctx, first, "fresh-password"); !errors.Is(err, authdomain.ErrInvalidResetToken) {
		t.Fatalf("expected first token to be invalidated, got %v", err)
	}
	if err := env.svc.ResetPassword(ctx, second, "fresh-password"); err != nil {
		t.Fatalf("reset with latest token: %v", err)
	}
}
