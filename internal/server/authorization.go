package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/lis/internal/orgcontext"
)

// casbin subjects for session users are "user:<snowflake id>".
const userSubjectPrefix = "user:"

// authorizeOrgAction guards a route with a casbin check in the bound org's domain.
// It must run after Auth and OrgContext.
func (s *Server) authorizeOrgAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeOrgActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// authorizeOrgActionWithContext is the inline form for handlers whose required
// permission depends on the request body.
func (s *Server) authorizeOrgActionWithContext(c *gin.Context, object, action string) error {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		return ErrUnauthorized
	}
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok || orgID == 0 || s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), userSubjectPrefix+userID.String(), orgID.String(), object, action)
}
