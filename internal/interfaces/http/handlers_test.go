package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	adaptermiddleware "sponsor-portal/internal/adapters/http/middleware"
	"sponsor-portal/internal/application"
	"sponsor-portal/internal/domain"
	"sponsor-portal/internal/infrastructure/auth"
	"sponsor-portal/internal/infrastructure/backend"
	"sponsor-portal/internal/infrastructure/memory"
	"sponsor-portal/internal/platform/ids"
)

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Debug(context.Context, string, ...any) {}

// fakeBackend serves the compliance API for two accounts. Revoking makes
// every authenticated call answer 401.
type fakeBackend struct {
	revoked atomic.Bool
}

var accounts = map[string]struct {
	password string
	token    string
	user     string
}{
	"cm@example.co.uk":  {"pw", "tok-cm", `{"id":"u1","email":"cm@example.co.uk","role":"compliance_manager"}`},
	"emp@example.co.uk": {"pw", "tok-emp", `{"id":"u2","email":"emp@example.co.uk","role":"employee","worker_id":"w2"}`},
}

func (f *fakeBackend) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if r.URL.Path == "/auth/login" {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		acct, ok := accounts[body.Email]
		if !ok || acct.password != body.Password {
			w.WriteHeader(stdhttp.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"` + acct.token + `","user":` + acct.user + `}`))
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	user := ""
	for _, acct := range accounts {
		if acct.token == token {
			user = acct.user
		}
	}
	if user == "" || f.revoked.Load() {
		w.WriteHeader(stdhttp.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
		return
	}
	switch r.URL.Path {
	case "/auth/me":
		_, _ = w.Write([]byte(user))
	case "/workers":
		_, _ = w.Write([]byte(`[{"id":"w1","full_name":"Amara Okafor","visa_expiry_date":"2025-03-01"},{"id":"w2","full_name":"Rahul Mehta","visa_expiry_date":"2025-03-25","checklist_total":4,"checklist_completed":1}]`))
	case "/workers/w2":
		_, _ = w.Write([]byte(`{"id":"w2","full_name":"Rahul Mehta","visa_expiry_date":"2025-03-25"}`))
	case "/calendar/events":
		_, _ = w.Write([]byte(`{"holidays":[{"id":"h1","name":"St Patrick's Day","date":"2025-03-17","description":"<i>Northern Ireland</i>"}],"leaves":[]}`))
	default:
		w.WriteHeader(stdhttp.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found"}`))
	}
}

type portal struct {
	t       *testing.T
	server  *httptest.Server
	backend *fakeBackend
	store   *memory.CredentialStore
	reg     *prometheus.Registry
	cookie  *stdhttp.Cookie
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	fb := &fakeBackend{}
	api := httptest.NewServer(fb)
	t.Cleanup(api.Close)

	client := backend.NewClientWithHTTP(api.URL, api.Client())
	store := memory.NewCredentialStore()
	logger := nopLogger{}
	registry := application.NewSessionRegistry(store, client, logger, time.Hour)
	signer, err := auth.NewCookieSigner("0123456789abcdef0123456789abcdef", time.Hour, false)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := adaptermiddleware.NewMetrics(reg)
	limiter := adaptermiddleware.NewLoginLimiter(100)
	clock := func() time.Time { return testNow }

	h := NewHandlers(application.NewComplianceService(client, clock), application.NewCalendarService(client, clock), logger, metrics)
	h.now = clock
	e := NewRouter(h, Middleware{
		RequestLogger:  adaptermiddleware.RequestLogger(logger),
		Metrics:        metrics.Middleware(),
		Session:        adaptermiddleware.Session(signer, registry, logger),
		RouteGuard:     adaptermiddleware.RouteGuard(logger, metrics),
		LoginLimit:     limiter.Middleware(logger),
		MetricsHandler: metrics.Handler(),
		RequestID:      ids.New,
	})
	return &portal{t: t, server: httptest.NewServer(e), backend: fb, store: store, reg: reg}
}

func (p *portal) do(method, path string, body string, contentType string) *stdhttp.Response {
	p.t.Helper()
	req, err := stdhttp.NewRequest(method, p.server.URL+path, strings.NewReader(body))
	require.NoError(p.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if p.cookie != nil {
		req.AddCookie(p.cookie)
	}
	client := &stdhttp.Client{CheckRedirect: func(*stdhttp.Request, []*stdhttp.Request) error { return stdhttp.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(p.t, err)
	p.t.Cleanup(func() { _ = resp.Body.Close() })
	for _, c := range resp.Cookies() {
		if c.Name != auth.CookieName {
			continue
		}
		p.cookie = c
		if c.MaxAge < 0 {
			p.cookie = nil
		}
	}
	return resp
}

func (p *portal) get(path string) *stdhttp.Response { return p.do(stdhttp.MethodGet, path, "", "") }

func (p *portal) login(email string) *stdhttp.Response {
	form := url.Values{"email": {email}, "password": {"pw"}}
	return p.do(stdhttp.MethodPost, "/login", form.Encode(), "application/x-www-form-urlencoded")
}

func decode[T any](t *testing.T, resp *stdhttp.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestPortal_AnonymousNavigation(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()

	resp := p.get("/dashboard")
	assert.Equal(t, stdhttp.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	require.NotNil(t, p.cookie)

	assert.Equal(t, stdhttp.StatusOK, p.get("/").StatusCode)
	assert.Equal(t, stdhttp.StatusUnauthorized, p.get("/api/session").StatusCode)
	assert.Equal(t, stdhttp.StatusOK, p.get("/health").StatusCode)
}

func TestPortal_LoginLandsOnRoleHome(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()

	resp := p.login("cm@example.co.uk")
	assert.Equal(t, stdhttp.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	assert.Equal(t, 1, p.store.Len())

	resp = p.get("/")
	assert.Equal(t, stdhttp.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp = p.get("/api/session")
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	view := decode[sessionView](t, resp)
	assert.Equal(t, domain.RoleComplianceManager, view.Identity.Role)
	assert.Equal(t, "/dashboard", view.Home)
}

func TestPortal_LoginFailureShowsBackendMessage(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()

	resp := p.do(stdhttp.MethodPost, "/login", `{"email":"cm@example.co.uk","password":"wrong"}`, "application/json")
	assert.Equal(t, stdhttp.StatusUnauthorized, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "Incorrect email or password", body["error"])
	assert.Zero(t, p.store.Len())

	resp = p.do(stdhttp.MethodPost, "/login", `{"email":"","password":""}`, "application/json")
	assert.Equal(t, stdhttp.StatusBadRequest, resp.StatusCode)
}

func TestPortal_JSONLoginReturnsRedirect(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()

	resp := p.do(stdhttp.MethodPost, "/login", `{"email":"emp@example.co.uk","password":"pw"}`, "application/json")
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "/portal", body["redirect"])
}

func TestPortal_Dashboard(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()
	p.login("cm@example.co.uk")

	resp := p.get("/dashboard")
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	d := decode[application.Dashboard](t, resp)
	assert.Equal(t, 2, d.TotalWorkers)
	assert.Equal(t, domain.UrgencyCounts{Expired: 1, Critical: 1}, d.Expiries[domain.DocumentVisa].Counts)
	require.Len(t, d.Attention, 2)
	assert.Equal(t, "w1", d.Attention[0].ID)
}

func TestPortal_EmployeeIsConfinedToPortal(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()
	p.login("emp@example.co.uk")

	resp := p.get("/workers")
	assert.Equal(t, stdhttp.StatusFound, resp.StatusCode)
	assert.Equal(t, "/portal", resp.Header.Get("Location"))

	resp = p.get("/portal")
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	record := decode[application.WorkerSummary](t, resp)
	assert.Equal(t, "w2", record.ID)
	assert.Equal(t, domain.UrgencyCritical, record.Urgency)
}

func TestPortal_Calendar(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()
	p.login("emp@example.co.uk")

	resp := p.get("/calendar")
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	view := decode[application.MonthView](t, resp)
	assert.Equal(t, "March 2025", view.Title)
	// 17 March 2025 is a Monday in the fourth row.
	cell := view.Weeks[3][0]
	require.NotNil(t, cell)
	assert.Equal(t, 17, cell.Day)
	require.Len(t, cell.Holidays, 1)
	assert.Equal(t, "Northern Ireland", cell.Holidays[0].Description)

	assert.Equal(t, stdhttp.StatusBadRequest, p.get("/calendar?year=2025&month=13").StatusCode)
	assert.Equal(t, stdhttp.StatusBadRequest, p.get("/calendar?month=march").StatusCode)
}

func TestPortal_ExpiryReport(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()
	p.login("cm@example.co.uk")

	resp := p.get("/reports/expiry.xlsx")
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "expiry-report-2025-03-10.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Expiries")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestPortal_RevokedCredentialSignsOut(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()
	p.login("cm@example.co.uk")

	p.backend.revoked.Store(true)
	resp := p.get("/workers")
	assert.Equal(t, stdhttp.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Zero(t, p.store.Len())

	resp = p.get("/workers")
	assert.Equal(t, stdhttp.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestPortal_Logout(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()
	p.login("cm@example.co.uk")

	resp := p.do(stdhttp.MethodPost, "/logout", "", "")
	assert.Equal(t, stdhttp.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Zero(t, p.store.Len())

	resp = p.do(stdhttp.MethodPost, "/logout", "", "")
	assert.Equal(t, stdhttp.StatusSeeOther, resp.StatusCode)

	assert.Equal(t, stdhttp.StatusFound, p.get("/dashboard").StatusCode)
}

func TestPortal_LoginRotatesSessionCookie(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()

	p.get("/")
	require.NotNil(t, p.cookie)
	preLogin := *p.cookie

	p.login("cm@example.co.uk")
	require.NotNil(t, p.cookie)
	assert.NotEqual(t, preLogin.Value, p.cookie.Value)
	assert.Equal(t, stdhttp.StatusOK, p.get("/dashboard").StatusCode)

	planted := &portal{t: t, server: p.server}
	planted.cookie = &preLogin
	resp := planted.get("/dashboard")
	assert.Equal(t, stdhttp.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 1, p.store.Len())
}

func TestPortal_LogoutExpiresSessionCookie(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()
	p.login("cm@example.co.uk")
	signedIn := *p.cookie

	resp := p.do(stdhttp.MethodPost, "/logout", "", "")
	assert.Equal(t, stdhttp.StatusSeeOther, resp.StatusCode)
	assert.Nil(t, p.cookie)

	replay := &portal{t: t, server: p.server}
	replay.cookie = &signedIn
	assert.Equal(t, stdhttp.StatusFound, replay.get("/dashboard").StatusCode)
}

func TestPortal_Metrics(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()
	p.get("/dashboard")

	resp := p.get("/metrics")
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	families, err := p.reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["sponsor_portal_guard_decisions_total"])
	assert.True(t, names["sponsor_portal_http_requests_total"])
}

func TestPortal_RequestIDIsULID(t *testing.T) {
	p := newPortal(t)
	defer p.server.Close()

	resp := p.get("/health")
	assert.Len(t, resp.Header.Get("X-Request-Id"), 26)
}
