package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/newswatch/internal/feed"
	"github.com/bilgisen/newswatch/internal/resilience"
	"github.com/bilgisen/newswatch/internal/scheduler"
)

const testAdminKey = "secret"

type stubStore struct{ err error }

func (s stubStore) Ping(context.Context) error { return s.err }

type stubReporter struct{ report *feed.CycleReport }

func (s *stubReporter) LastReport() *feed.CycleReport { return s.report }

type stubRunner struct {
	err   error
	calls int
	onRun func()
}

func (r *stubRunner) RunNow(context.Context) error {
	r.calls++
	if r.onRun != nil {
		r.onRun()
	}
	return r.err
}
func (r *stubRunner) Running() bool           { return false }
func (r *stubRunner) Runs() int64             { return int64(r.calls) }
func (r *stubRunner) Skipped() int64          { return 2 }
func (r *stubRunner) Interval() time.Duration { return 5 * time.Minute }

type stubBreaker struct{ state resilience.State }

func (b stubBreaker) State() resilience.State { return b.state }

func newTestApp(store stubStore, reports *stubReporter, runner *stubRunner) *fiber.App {
	h := NewHandlers(Deps{
		Store:        store,
		CacheEnabled: true,
		Reports:      reports,
		Runner:       runner,
		Breaker:      stubBreaker{state: resilience.StateClosed},
	})
	return NewApp(fiber.Config{}, h, testAdminKey)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(stubStore{}, &stubReporter{}, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, true, body["cache"])
	require.Equal(t, "closed", body["breaker"])
}

func TestHealthCheckStoreDown(t *testing.T) {
	app := newTestApp(stubStore{err: errors.New("no route to host")}, &stubReporter{}, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "degraded", decode(t, resp)["status"])
}

func TestStatusIncludesLastReport(t *testing.T) {
	reports := &stubReporter{report: &feed.CycleReport{CycleID: "c1", Persisted: 3}}
	app := newTestApp(stubStore{}, reports, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	require.Equal(t, float64(2), body["skipped"])
	require.Equal(t, "5m0s", body["interval"])
	last, ok := body["last_report"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "c1", last["cycle_id"])
	require.Equal(t, float64(3), last["persisted"])
}

func TestTriggerCycleRequiresKey(t *testing.T) {
	runner := &stubRunner{}
	app := newTestApp(stubStore{}, &stubReporter{}, runner)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/admin/cycle", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/cycle", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	require.Zero(t, runner.calls)
}

func TestTriggerCycle(t *testing.T) {
	reports := &stubReporter{}
	runner := &stubRunner{}
	runner.onRun = func() { reports.report = &feed.CycleReport{CycleID: "manual"} }
	app := newTestApp(stubStore{}, reports, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/cycle", nil)
	req.Header.Set("X-API-Key", testAdminKey)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, runner.calls)

	body := decode(t, resp)
	require.Equal(t, "completed", body["status"])
	require.Equal(t, "manual", body["report"].(map[string]any)["cycle_id"])
}

func TestTriggerCycleBusy(t *testing.T) {
	app := newTestApp(stubStore{}, &stubReporter{}, &stubRunner{err: scheduler.ErrBusy})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/cycle", nil)
	req.Header.Set("X-API-Key", testAdminKey)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	h := NewHandlers(Deps{
		Store:   stubStore{},
		Reports: &stubReporter{},
		Runner:  &stubRunner{},
		Breaker: stubBreaker{},
	})
	app := NewApp(fiber.Config{}, h, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/cycle", nil)
	req.Header.Set("X-API-Key", "")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(stubStore{}, &stubReporter{}, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/news", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
