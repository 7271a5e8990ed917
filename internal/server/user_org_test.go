package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	organizationdomain "github.com/smallbiznis/lis/internal/organization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUseOrgSwitchesToMemberOrg(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.orgs.orgs = []organizationdomain.OrganizationListResponseItem{{ID: "100", Name: "Main"}, {ID: "101", Name: "Branch"}}

	rec := ts.do(withSession(httptest.NewRequest(http.MethodPost, "/auth/user/using/101", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ActiveOrgID string   `json:"active_org_id"`
		OrgIDs      []string `json:"org_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "101", body.ActiveOrgID)
	assert.Equal(t, []string{"100", "101"}, body.OrgIDs)
}

func TestUseOrgRejectsForeignOrg(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.orgs.orgs = []organizationdomain.OrganizationListResponseItem{{ID: "100", Name: "Main"}}

	rec := ts.do(withSession(httptest.NewRequest(http.MethodPost, "/auth/user/using/999", nil)))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(withSession(httptest.NewRequest(http.MethodPost, "/auth/user/using/abc", nil)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUserOrgsRequiresSession(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/auth/user/orgs", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
