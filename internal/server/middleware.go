package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/lis/internal/audit/domain"
	authdomain "github.com/smallbiznis/lis/internal/auth/domain"
	"github.com/smallbiznis/lis/internal/catalog"
	obscontext "github.com/smallbiznis/lis/internal/observability/context"
	"github.com/smallbiznis/lis/internal/orgcontext"
)

const (
	HeaderOrg         = "X-Org-ID"
	contextUserIDKey  = "user_id"
	contextSessionKey = "session"
	pageOrgErrorKey   = "page_org_error"
)

// WebAuthRequired resolves the lisToken cookie into a session or aborts with 401.
func (s *Server) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authenticate(c); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// PageAuthRequired is the HTML counterpart of WebAuthRequired: it redirects to the login page.
func (s *Server) PageAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authenticate(c); err != nil {
			redirectToLogin(c)
			return
		}
		c.Next()
	}
}

func (s *Server) authenticate(c *gin.Context) error {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		return ErrUnauthorized
	}

	session, err := s.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		return err
	}

	c.Set(contextUserIDKey, session.UserID.String())
	c.Set(contextSessionKey, session)
	ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeUser), session.UserID.String())
	c.Request = c.Request.WithContext(ctx)
	return nil
}

// OrgContext resolves the active organization of the session. An explicit X-Org-ID header
// wins over the session's active org; without either the user's first membership is used.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := s.resolveOrgID(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		s.bindOrg(c, orgID)
		c.Next()
	}
}

// PageOrgContext binds the org when one can be resolved. Any failure other than a missing
// session is kept on the context so the page can render it as a load failure.
func (s *Server) PageOrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := s.resolveOrgID(c)
		switch {
		case err == nil:
			s.bindOrg(c, orgID)
		case !errors.Is(err, ErrUnauthorized):
			c.Set(pageOrgErrorKey, err)
		}
		c.Next()
	}
}

func pageOrgError(c *gin.Context) error {
	if v, ok := c.Get(pageOrgErrorKey); ok {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

func (s *Server) bindOrg(c *gin.Context, orgID snowflake.ID) {
	ctx := orgcontext.WithOrgID(c.Request.Context(), orgID.Int64())
	ctx = obscontext.WithOrgID(ctx, orgID.String())
	c.Request = c.Request.WithContext(ctx)
}

func (s *Server) resolveOrgID(c *gin.Context) (snowflake.ID, error) {
	session, ok := s.sessionFromContext(c)
	if !ok {
		return 0, ErrUnauthorized
	}

	orgIDs, err := s.loadUserOrgIDs(c.Request.Context(), session.UserID)
	if err != nil {
		return 0, err
	}
	if len(orgIDs) == 0 {
		return 0, ErrForbidden
	}

	if raw := strings.TrimSpace(c.GetHeader(HeaderOrg)); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil || parsed == 0 {
			return 0, newValidationError("org_id", "invalid_org_id", "invalid org id")
		}
		if !containsOrgID(orgIDs, parsed.Int64()) {
			return 0, ErrForbidden
		}
		return parsed, nil
	}

	if session.ActiveOrgID != nil && containsOrgID(orgIDs, *session.ActiveOrgID) {
		return snowflake.ID(*session.ActiveOrgID), nil
	}
	return snowflake.ID(orgIDs[0]), nil
}

func (s *Server) userIDFromSession(c *gin.Context) (snowflake.ID, bool) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false
	}
	raw, ok := value.(string)
	if !ok {
		return 0, false
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return userID, true
}

func (s *Server) sessionFromContext(c *gin.Context) (*authdomain.Session, bool) {
	value, ok := c.Get(contextSessionKey)
	if !ok {
		return nil, false
	}
	session, ok := value.(*authdomain.Session)
	return session, ok && session != nil
}

func (s *Server) loadUserOrgIDs(ctx context.Context, userID snowflake.ID) ([]int64, error) {
	orgs, err := s.organizationSvc.ListOrganizationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(orgs))
	for _, org := range orgs {
		parsed, err := snowflake.ParseString(org.ID)
		if err != nil {
			continue
		}
		out = append(out, parsed.Int64())
	}
	return out, nil
}

func containsOrgID(orgIDs []int64, orgID int64) bool {
	return slices.Contains(orgIDs, orgID)
}

func redirectToLogin(c *gin.Context) {
	target := catalog.LoginPath
	if next := c.Request.URL.RequestURI(); next != "" && next != catalog.LoginPath {
		target += "?next=" + url.QueryEscape(next)
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

// safeNext keeps post-login redirects on this host.
func safeNext(raw string) string {
	next := strings.TrimSpace(raw)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/catalog"
	}
	return next
}
