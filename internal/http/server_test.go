package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/core"
	"salesdash/internal/middleware/ratelimit"
	"salesdash/internal/middleware/trace"
	"salesdash/internal/services"
	"salesdash/internal/sources/memory"
	"salesdash/internal/users"
)

var testNow = time.Date(2025, 7, 24, 10, 0, 0, 0, time.UTC)

func seedStore() *memory.Store {
	store := memory.New()
	store.Set("recent", [][]string{
		{"Sale In Cr", "Travel M", "Travel Y", "REGION", "Final Buniess", "FILE_TYPE", "FILE_SUB_TYPE", "REGION_B", "FILE_DATE", "Travel Qtr"},
		{"10", "Jul", "2025", "North", "LOLH", "FIT", "", "Delhi", "2025-07-20", "Q2"},
		{"5", "Aug", "2025", "South", "LOSH", "GIT", "", "Mumbai", "2025-07-22", "Q2"},
		{"7", "Jul", "2025", "North", "LOLH", "FIT", "", "Delhi", "2025-07-24", "Q2"},
		{"8", "Jul", "2024", "North", "LOLH", "FIT", "", "Delhi", "2024-07-10", "Q2"},
	})
	store.Set("historical", [][]string{
		{"Sale In Cr", "Travel M", "Travel Y", "REGION", "Final Buniess", "FILE_TYPE", "FILE_SUB_TYPE", "REGION_B", "Travel Qtr"},
		{"20", "Feb", "2025", "North", "LTDM", "FIT", "CRUISE", "Delhi", "Q4"},
		{"4", "Feb", "2024", "North", "LTDM", "FIT", "", "Delhi", "Q4"},
	})
	store.Set("targets", [][]string{
		{"TYPE", "ZONE", "Region", "Month", "Target Amount"},
		{"BAREA", "", "LOLH", "Jul", "40"},
		{"BAREA", "", "LOSH", "Aug", "10"},
		{"BAREA", "", "LTDM", "Feb", "20"},
		{"REGION", "", "DELHI", "Jul", "60"},
	})
	return store
}

type fakePublisher struct {
	reasons []string
	err     error
}

func (p *fakePublisher) PublishRefresh(_ context.Context, reason string) error {
	p.reasons = append(p.reasons, reason)
	return p.err
}

type fixture struct {
	server *Server
	store  *memory.Store
	pub    *fakePublisher
}

func newFixture(t *testing.T, rate ratelimit.Config) *fixture {
	t.Helper()
	store := seedStore()
	dash := services.NewDashboardService(services.Sources{
		Recent:     store.Reader("recent"),
		Historical: store.Reader("historical"),
		Targets:    store.Reader("targets"),
	}, services.Options{Clock: core.FixedClock(testNow)})

	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte("User Name,Password,Access\nAsha,secret,admin\n"), 0o600))

	pub := &fakePublisher{}
	s := NewServer(":0", Deps{
		Dashboard: dash,
		Auth:      services.NewAuthService(users.NewCSVStore(path), nil),
		Publisher: pub,
		AuthRate:  rate,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return &fixture{server: s, store: store, pub: pub}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	w := f.do(t, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get(trace.HeaderRequestID))
}

func TestReadiness(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})

	f.do(t, http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", "").Code)

	f.store.Delete("recent")
	f.do(t, http.MethodPost, "/api/refresh", "")
	f.do(t, http.MethodGet, "/api/dashboard", "")
	w := f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", decode(t, w)["status"])
}

func TestReadinessBeforeFirstLoad(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})

	w := f.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ready", body["status"])
	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "not_loaded", checks["dataset"])

	f.do(t, http.MethodGet, "/api/dashboard", "")
	checks = decode(t, f.do(t, http.MethodGet, "/readyz", ""))["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["dataset"])
}

func TestDashboardEndpoint(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	body := decode(t, f.do(t, http.MethodGet, "/api/dashboard", ""))

	assert.Equal(t, true, body["has_data"])
	assert.Equal(t, "Jul 23", body["as_of"])
	kpis := body["kpis"].([]any)
	require.Len(t, kpis, 5)
	total := kpis[0].(map[string]any)
	assert.Equal(t, core.TotalSalesLabel, total["label"])
	assert.InDelta(t, 35.0, total["current"], 1e-9)
	assert.InDelta(t, 12.0, total["previous"], 1e-9)
	assert.Len(t, body["monthly"], 12)

	filtered := decode(t, f.do(t, http.MethodGet, "/api/dashboard?business=LOLH&region=All", ""))
	total = filtered["kpis"].([]any)[0].(map[string]any)
	assert.InDelta(t, 10.0, total["current"], 1e-9)
	assert.Equal(t, "LOLH", filtered["filters"].(map[string]any)["business"])
}

func TestDashboardWithoutData(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	f.store.Delete("historical")

	w := f.do(t, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"has_data": false}, decode(t, w))
}

func TestTargetsEndpoint(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	body := decode(t, f.do(t, http.MethodGet, "/api/targets", ""))

	require.Equal(t, true, body["has_data"])
	assert.EqualValues(t, 2025, body["year"])
	total := body["kpis"].([]any)[0].(map[string]any)
	assert.InDelta(t, 70.0, total["target"], 1e-9)
	assert.InDelta(t, 50.0, total["achievement_pct"], 1e-9)
}

func TestFiltersEndpoint(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	body := decode(t, f.do(t, http.MethodGet, "/api/filters", ""))

	assert.Equal(t, []any{"All", "North", "South"}, body["regions"])
	assert.Equal(t, []any{"All", "Q2", "Q4"}, body["quarters"])
}

func TestDRREndpoint(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})

	body := decode(t, f.do(t, http.MethodGet, "/api/drr?from=2025-07-20&to=2025-07-23", ""))
	require.Equal(t, true, body["has_data"])
	assert.Len(t, body["days"], 4)
	assert.InDelta(t, 15.0, body["total"], 1e-9)
	assert.InDelta(t, 7.5, body["run_rate"], 1e-9)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/drr?from=20-07-2025", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/drr?from=2025-07-23&to=2025-07-20", "").Code)
}

func TestRefreshEndpoint(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	f.do(t, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, 1, f.store.Reads("recent"))

	body := decode(t, f.do(t, http.MethodPost, "/api/refresh", ""))
	assert.Equal(t, true, body["published"])
	assert.Equal(t, []string{"manual refresh"}, f.pub.reasons)

	f.do(t, http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, 2, f.store.Reads("recent"))

	f.pub.err = errors.New("broker down")
	body = decode(t, f.do(t, http.MethodPost, "/api/refresh", ""))
	assert.Equal(t, true, body["refreshed"])
	assert.Equal(t, false, body["published"])
}

func TestMethodRouting(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/api/refresh", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodTrace, "/healthz", "").Code)
}

func TestLoginEndpoint(t *testing.T) {
	f := newFixture(t, ratelimit.Config{RequestsPerMinute: 60, Burst: 10})

	w := f.do(t, http.MethodPost, "/api/login", `{"username":"asha","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Asha", body["username"])
	assert.Equal(t, "admin", body["access"])

	w = f.do(t, http.MethodPost, "/api/login", `{"username":"asha","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/login", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	f := newFixture(t, ratelimit.Config{RequestsPerMinute: 60, Burst: 10})

	w := f.do(t, http.MethodPost, "/api/password",
		`{"username":"Asha","current_password":"secret","new_password":"a","confirm_password":"b"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/password",
		`{"username":"Asha","current_password":"nope","new_password":"a","confirm_password":"a"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/password",
		`{"username":"Asha","current_password":"secret","new_password":"fresh","confirm_password":"fresh"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/login", `{"username":"Asha","password":"fresh"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRateLimited(t *testing.T) {
	f := newFixture(t, ratelimit.Config{RequestsPerMinute: 1, Burst: 1})

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/login", `{"username":"x","password":"y"}`).Code)
	w := f.do(t, http.MethodPost, "/api/login", `{"username":"x","password":"y"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// dashboard reads are not limited
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/filters", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, ratelimit.Config{})
	f.do(t, http.MethodGet, "/healthz", "")
	w := f.do(t, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), "suspicious_requests_total")
}
