package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	authdomain "github.com/smallbiznis/lis/internal/auth/domain"
	"github.com/smallbiznis/lis/internal/catalog/view"
	"github.com/smallbiznis/lis/internal/ratelimit"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

const loginFailedMessage = "E-mail ou senha inválidos."

func (s *Server) Login(c *gin.Context) {
	if !s.allowAuthAttempt(c, ratelimit.ScopeLogin) {
		return
	}

	isForm := c.ContentType() == binding.MIMEPOSTForm
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		if isForm && errors.Is(err, authdomain.ErrInvalidCredentials) {
			s.renderLogin(c, http.StatusUnauthorized, view.LoginData{Error: loginFailedMessage, Next: req.Next})
			return
		}
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	if isForm {
		c.Redirect(http.StatusSeeOther, safeNext(req.Next))
		return
	}
	c.JSON(http.StatusOK, result.Session)
}

func (s *Server) LoginPage(c *gin.Context) {
	s.renderLogin(c, http.StatusOK, view.LoginData{Next: c.Query("next")})
}

func (s *Server) renderLogin(c *gin.Context, status int, data view.LoginData) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RenderLogin(c.Writer, data); err != nil {
		s.log.Error("render login page", zap.Error(err))
	}
}

func (s *Server) ChangePassword(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	currentPassword := strings.TrimSpace(req.CurrentPassword)
	newPassword := strings.TrimSpace(req.NewPassword)
	if currentPassword == "" {
		AbortWithError(c, newValidationError("current_password", "required", "current password is required"))
		return
	}
	if newPassword == "" {
		AbortWithError(c, newValidationError("new_password", "required", "new password is required"))
		return
	}
	if currentPassword == newPassword {
		AbortWithError(c, newValidationError("new_password", "must_differ", "new password must be different"))
		return
	}

	if err := s.authsvc.ChangePassword(c.Request.Context(), userID, authdomain.ChangePasswordRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Logout revokes the session when it still exists and always expires the cookie.
func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if ok {
		if err := s.authsvc.Logout(c.Request.Context(), token); err != nil && !errors.Is(err, authdomain.ErrInvalidSession) {
			AbortWithError(c, err)
			return
		}
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	session, ok := s.sessionFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, authdomain.ErrUserNotFound) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		AbortWithError(c, err)
		return
	}

	orgIDs, err := s.loadUserOrgIDs(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	passwordState := "rotated"
	if user.IsDefault || user.LastPasswordChanged == nil {
		passwordState = "default"
	}

	metadata := map[string]any{
		"user_id":               user.ID.String(),
		"display_name":          user.DisplayName,
		"email":                 user.Email,
		"is_default":            user.IsDefault,
		"last_password_changed": user.LastPasswordChanged,
		"must_change_password":  passwordState == "default",
		"password_state":        passwordState,
		"org_ids":               toOrgIDStrings(orgIDs),
	}
	if session.ActiveOrgID != nil {
		metadata["active_org_id"] = strconv.FormatInt(*session.ActiveOrgID, 10)
	}

	c.JSON(http.StatusOK, &authdomain.SessionView{Metadata: metadata})
}

// Forgot starts the password reset flow. Unknown emails answer 404.
func (s *Server) Forgot(c *gin.Context) {
	if !s.allowAuthAttempt(c, ratelimit.ScopeForgot) {
		return
	}

	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.authsvc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": authdomain.PasswordResetMessage})
}

func (s *Server) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.authsvc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) allowAuthAttempt(c *gin.Context, scope ratelimit.Scope) bool {
	result := s.authLimiter.Allow(c.Request.Context(), scope, c.ClientIP())
	if result == nil || result.Allowed {
		return true
	}

	s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), string(scope), "client_ip")
	if result.RetryAfter > 0 {
		seconds := int(result.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
	}
	AbortWithError(c, ErrRateLimited)
	return false
}
