package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	organizationdomain "github.com/smallbiznis/lis/internal/organization/domain"
)

// ListUserOrgs lists the caller's memberships and marks the session's active org.
func (s *Server) ListUserOrgs(c *gin.Context) {
	session, ok := s.sessionFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgs, err := s.organizationSvc.ListOrganizationsByUser(c.Request.Context(), session.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{"orgs": orgs}
	if session.ActiveOrgID != nil {
		resp["active_org_id"] = snowflake.ID(*session.ActiveOrgID).String()
	}
	c.JSON(http.StatusOK, resp)
}

// CreateOrg creates an organization owned by the caller.
func (s *Server) CreateOrg(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req organizationdomain.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.organizationSvc.Create(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"org": org})
}

// UseOrg switches the session's active org. Only orgs the caller belongs to are accepted.
func (s *Server) UseOrg(c *gin.Context) {
	session, ok := s.sessionFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	target, err := snowflake.ParseString(strings.TrimSpace(c.Param("orgId")))
	if err != nil || target == 0 {
		AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid org id"))
		return
	}

	ctx := c.Request.Context()
	memberOf, err := s.loadUserOrgIDs(ctx, session.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !slices.Contains(memberOf, target.Int64()) {
		AbortWithError(c, ErrForbidden)
		return
	}

	if err := s.authsvc.SetActiveOrg(ctx, session.ID, target); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active_org_id": target.String(),
		"org_ids":       toOrgIDStrings(memberOf),
	})
}

func toOrgIDStrings(orgIDs []int64) []string {
	out := make([]string, len(orgIDs))
	for i, id := range orgIDs {
		out[i] = snowflake.ID(id).String()
	}
	return out
}
