package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	SetActiveOrg(ctx context.Context, sessionID snowflake.ID, orgID snowflake.ID) error
	ChangePassword(ctx context.Context, userID snowflake.ID, req ChangePasswordRequest) error
	GetUser(ctx context.Context, userID snowflake.ID) (*User, error)

	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken string, newPassword string) error
}

type CreateUserRequest struct {
	Email       string
	Password    string
	DisplayName string
	IsDefault   bool
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	Session   *SessionView
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
	UserID    snowflake.ID
}

type ChangePasswordRequest struct {
	CurrentPassword string
	NewPassword     string
}

// PasswordResetMessage is the generic acknowledgement returned by POST /auth/forgot.
const PasswordResetMessage = "Enviamos um e-mail com instruções para redefinir sua senha."
