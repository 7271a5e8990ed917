package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/lis/internal/auth/domain"
	"github.com/smallbiznis/lis/internal/auth/session"
	"github.com/smallbiznis/lis/internal/catalog"
	"github.com/smallbiznis/lis/internal/catalog/mocks"
	"github.com/smallbiznis/lis/internal/catalog/view"
	"github.com/smallbiznis/lis/internal/config"
	"github.com/smallbiznis/lis/internal/observability"
	organizationdomain "github.com/smallbiznis/lis/internal/organization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuthService struct {
	sessions      map[string]*authdomain.Session
	loginErr      error
	loggedOut     []string
	resetErr      error
	resetRequests []string
}

func (f *fakeAuthService) CreateUser(ctx context.Context, req authdomain.CreateUserRequest) (*authdomain.User, error) {
	return &authdomain.User{ID: snowflake.ID(200), Email: req.Email}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &authdomain.LoginResult{
		Session:   &authdomain.SessionView{Metadata: map[string]any{"user_id": "200"}},
		RawToken:  "session-token",
		ExpiresAt: time.Now().Add(time.Hour),
		SessionID: snowflake.ID(300),
		UserID:    snowflake.ID(200),
	}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, rawToken string) error {
	f.loggedOut = append(f.loggedOut, rawToken)
	return nil
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Session, error) {
	if s, ok := f.sessions[rawToken]; ok {
		return s, nil
	}
	return nil, authdomain.ErrInvalidSession
}

func (f *fakeAuthService) SetActiveOrg(ctx context.Context, sessionID snowflake.ID, orgID snowflake.ID) error {
	return nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, userID snowflake.ID, req authdomain.ChangePasswordRequest) error {
	return nil
}

func (f *fakeAuthService) GetUser(ctx context.Context, userID snowflake.ID) (*authdomain.User, error) {
	return &authdomain.User{ID: userID, Email: "admin@lis.local", DisplayName: "Admin"}, nil
}

func (f *fakeAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	f.resetRequests = append(f.resetRequests, email)
	return f.resetErr
}

func (f *fakeAuthService) ResetPassword(ctx context.Context, rawToken string, newPassword string) error {
	return nil
}

type fakeOrganizationService struct {
	orgs    []organizationdomain.OrganizationListResponseItem
	listErr error
}

func (f *fakeOrganizationService) Create(ctx context.Context, userID snowflake.ID, req organizationdomain.CreateOrganizationRequest) (*organizationdomain.OrganizationResponse, error) {
	return &organizationdomain.OrganizationResponse{ID: "101", Name: req.Name}, nil
}

func (f *fakeOrganizationService) GetByID(ctx context.Context, id string) (*organizationdomain.OrganizationResponse, error) {
	return nil, organizationdomain.ErrNotFound
}

func (f *fakeOrganizationService) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]organizationdomain.OrganizationListResponseItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.orgs, nil
}

func (f *fakeOrganizationService) IsMember(ctx context.Context, orgID, userID snowflake.ID) (bool, error) {
	return len(f.orgs) > 0, nil
}

type fakeAuthorizer struct {
	err error
}

func (f fakeAuthorizer) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	return f.err
}

type testServer struct {
	*Server
	auth *fakeAuthService
	orgs *fakeOrganizationService
}

func newTestServer(t *testing.T, fetcher catalog.Fetcher) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	auth := &fakeAuthService{
		sessions: map[string]*authdomain.Session{
			"valid-token": {ID: snowflake.ID(300), UserID: snowflake.ID(200)},
		},
	}
	orgs := &fakeOrganizationService{}

	srv := NewServer(ServerParams{
		Gin:             NewEngine(observability.Config{}, nil, config.CORSConfig{}),
		Cfg:             config.Config{},
		Log:             zap.NewNop(),
		Authsvc:         auth,
		Sessions:        session.NewManager(config.Config{}),
		AuthzSvc:        fakeAuthorizer{},
		OrganizationSvc: orgs,
		CatalogCfg:      config.NewStaticCatalogConfigHolder(config.DefaultCatalogConfig()),
		CatalogFetcher:  fetcher,
		Renderer:        renderer,
	})
	return &testServer{Server: srv, auth: auth, orgs: orgs}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Engine().ServeHTTP(rec, req)
	return rec
}

func withSession(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "valid-token"})
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestProductsRequireSessionCookie(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/products", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)
}

func TestProductsRejectUnknownSession(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "stale"})
	rec := ts.do(req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginSetsHTTPOnlyCookie(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"admin@lis.local","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	assert.Equal(t, "session-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Positive(t, cookies[0].MaxAge)
}

func TestLoginFormRedirectsToNext(t *testing.T) {
	ts := newTestServer(t, nil)

	form := url.Values{"email": {"admin@lis.local"}, "password": {"secret"}, "next": {"/catalog?view=list"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := ts.do(req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/catalog?view=list", rec.Header().Get("Location"))
}

func TestLoginFormInvalidCredentialsRendersPage(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.auth.loginErr = authdomain.ErrInvalidCredentials

	form := url.Values{"email": {"admin@lis.local"}, "password": {"wrong"}, "next": {"//evil.example"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := ts.do(req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `<form id="login"`)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogoutExpiresCookie(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(withSession(httptest.NewRequest(http.MethodPost, "/auth/logout", nil)))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{"valid-token"}, ts.auth.loggedOut)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.DefaultCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestLogoutWithoutCookieStillClears(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ts.auth.loggedOut)
	require.Len(t, rec.Result().Cookies(), 1)
}

func TestForgotUnknownEmailReturnsNotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.auth.resetErr = authdomain.ErrUserNotFound

	req := httptest.NewRequest(http.MethodPost, "/auth/forgot", bytes.NewBufferString(`{"email":"nobody@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestForgotKnownEmailReturnsMessage(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/forgot", bytes.NewBufferString(`{"email":"admin@lis.local"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, authdomain.PasswordResetMessage, body["message"])
	assert.Equal(t, []string{"admin@lis.local"}, ts.auth.resetRequests)
}

func TestResetInvalidTokenIsValidationError(t *testing.T) {
	status, payload := mapError(authdomain.ErrInvalidResetToken)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_reset_token", payload.Errors[0].Code)
}

func TestCatalogRedirectsToLoginWithoutSession(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/catalog?view=list", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, catalog.LoginPath), location)
	assert.Contains(t, location, url.QueryEscape("/catalog?view=list"))
}

func TestCatalogRedirectsWhenFetchIsUnauthorized(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().FetchProducts(gomock.Any()).Return(nil, catalog.ErrUnauthorized)

	ts := newTestServer(t, fetcher)
	ts.orgs.orgs = []organizationdomain.OrganizationListResponseItem{{ID: "100", Name: "Main"}}
	rec := ts.do(withSession(httptest.NewRequest(http.MethodGet, "/catalog", nil)))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), catalog.LoginPath))
}

func TestCatalogRendersFilteredProducts(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().FetchProducts(gomock.Any()).Return([]catalog.Product{
		{ID: "1", Code: "BOT-1", Type: "Bota", Name: "Bota Azul", Color: "Azul", SaleValue: decimal.NewFromInt(120), Quantity: 3},
		{ID: "2", Code: "SAN-1", Type: "Sandália", Name: "Sandália Rasteira", Color: "Dourado", SaleValue: decimal.NewFromInt(50), Quantity: 0},
	}, nil)

	ts := newTestServer(t, fetcher)
	ts.orgs.orgs = []organizationdomain.OrganizationListResponseItem{{ID: "100", Name: "Main"}}

	rec := ts.do(withSession(httptest.NewRequest(http.MethodGet, "/catalog?q=azu&view=list", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Bota Azul")
	assert.NotContains(t, body, "Sandália Rasteira")
	assert.Contains(t, body, `data-view="list"`)
}

func TestCatalogFetchFailureShowsNotice(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().FetchProducts(gomock.Any()).Return(nil, errors.New("boom"))

	ts := newTestServer(t, fetcher)
	ts.orgs.orgs = []organizationdomain.OrganizationListResponseItem{{ID: "100", Name: "Main"}}

	rec := ts.do(withSession(httptest.NewRequest(http.MethodGet, "/catalog", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), catalog.NoticeLoadFailed)
}

func TestCatalogWithoutOrgShowsNoticeInsteadOfLogin(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)

	ts := newTestServer(t, fetcher)

	rec := ts.do(withSession(httptest.NewRequest(http.MethodGet, "/catalog", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), catalog.NoticeLoadFailed)
}

func TestCatalogOrgLookupFailureShowsNotice(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)

	ts := newTestServer(t, fetcher)
	ts.orgs.listErr = errors.New("connection refused")

	rec := ts.do(withSession(httptest.NewRequest(http.MethodGet, "/catalog", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), catalog.NoticeLoadFailed)
	assert.Empty(t, rec.Header().Get("Location"))
}

func TestCatalogReadsProductsFromConfiguredAPI(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "100", r.Header.Get(HeaderOrg))
		cookie, err := r.Cookie(session.DefaultCookieName)
		if !assert.NoError(t, err) || cookie.Value != "valid-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"7","code":"BOT-7","type":"Bota","name":"Bota Remota","sale_value":"150","quantity":12}]`))
	}))
	defer upstream.Close()

	ts := newTestServer(t, nil)
	ts.cfg.CatalogAPIBaseURL = upstream.URL
	ts.orgs.orgs = []organizationdomain.OrganizationListResponseItem{{ID: "100", Name: "Main"}}

	rec := ts.do(withSession(httptest.NewRequest(http.MethodGet, "/catalog", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bota Remota")
}

func TestCatalogRedirectsWhenConfiguredAPIRejectsSession(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	ts := newTestServer(t, nil)
	ts.cfg.CatalogAPIBaseURL = upstream.URL
	ts.orgs.orgs = []organizationdomain.OrganizationListResponseItem{{ID: "100", Name: "Main"}}

	rec := ts.do(withSession(httptest.NewRequest(http.MethodGet, "/catalog", nil)))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), catalog.LoginPath))
}

func TestOrgContextRejectsForeignOrgHeader(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.orgs.orgs = []organizationdomain.OrganizationListResponseItem{{ID: "100", Name: "Main"}}

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/products", nil))
	req.Header.Set(HeaderOrg, "999")
	rec := ts.do(req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/catalog", safeNext(""))
	assert.Equal(t, "/catalog", safeNext("https://evil.example"))
	assert.Equal(t, "/catalog", safeNext("//evil.example"))
	assert.Equal(t, "/catalog?view=list", safeNext("/catalog?view=list"))
}
