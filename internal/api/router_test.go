package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplyline-sync/config"
	"supplyline-sync/internal/auth"
	"supplyline-sync/internal/db/dbtest"
	"supplyline-sync/internal/model"
	"supplyline-sync/internal/remote"
	"supplyline-sync/internal/remote/remotetest"
	"supplyline-sync/internal/repository"
	"supplyline-sync/internal/seed"
	"supplyline-sync/internal/store"
	"supplyline-sync/internal/syncer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTrigger struct {
	triggered []syncer.Type
}

func (f *fakeTrigger) SyncNow()                  { f.triggered = append(f.triggered, syncer.TypeAll) }
func (f *fakeTrigger) SyncNowType(t syncer.Type) { f.triggered = append(f.triggered, t) }
func (f *fakeTrigger) IsRunning() bool           { return false }
func (f *fakeTrigger) Statuses() []syncer.Event {
	return []syncer.Event{{Name: syncer.PeriodicWorkName, Type: syncer.TypeAll, State: syncer.StateEnqueued, Attempt: 1}}
}

type reachable bool

func (r reachable) IsConnected() bool { return bool(r) }

type fixture struct {
	router  *gin.Engine
	remote  *remotetest.Client
	trigger *fakeTrigger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := store.NewGormStore(dbtest.New(t), store.WithClock(func() time.Time { return now }))
	_, err := seed.Run(context.Background(), s)
	require.NoError(t, err)

	client := &remotetest.Client{}
	trigger := &fakeTrigger{}
	h := NewHandler(
		repository.NewToolRepository(s, client, repository.FallbackLocal),
		repository.NewChemicalRepository(s, client, repository.FallbackLocal),
		repository.NewUserRepository(s, client, auth.NewTokenManager(), repository.FallbackLocal),
		trigger,
		reachable(true),
	)
	cfg := &config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60}
	return &fixture{
		router:  NewRouter(h, cfg, prometheus.NewRegistry()),
		remote:  client,
		trigger: trigger,
	}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","backend_reachable":true}`, w.Body.String())

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/metrics", nil).Code)
}

func TestGetTools(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/tools", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tools := decode[[]model.ToolWithCheckout](t, w)
	assert.Len(t, tools, 12)

	w = f.do(http.MethodGet, "/api/tools/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CL001", decode[model.ToolWithCheckout](t, w).ToolNumber)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/tools/999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/tools/abc", nil).Code)

	w = f.do(http.MethodGet, "/api/tools/calibration/due", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[[]model.Tool](t, w))
}

func TestPostTool_SavedLocallyWhenOffline(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/tools", model.Tool{ToolNumber: "HT900", SerialNumber: "SN900", Description: "Rivet shaver", Category: "Sheetmetal", Location: "Crib C"})

	require.Equal(t, http.StatusAccepted, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "saved_local_only", body["status"])
	assert.Equal(t, "No internet connection. Please check your network settings.", body["warning"])

	tools := decode[[]model.ToolWithCheckout](t, f.do(http.MethodGet, "/api/tools", nil))
	assert.Len(t, tools, 13)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/tools", model.Tool{Description: "no numbers"}).Code)
}

func TestPostCheckout_BackendErrors(t *testing.T) {
	f := newFixture(t)
	req := gin.H{"tool_id": 1, "user_id": 1, "expected_return_date": "2025-06-04T12:00:00Z"}

	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodPost, "/api/checkouts", req).Code)

	f.remote.CreateCheckoutFunc = func(ctx context.Context, r remote.CheckoutRequest) (*model.ToolCheckout, error) {
		return nil, &remote.Error{Kind: remote.KindClient, StatusCode: http.StatusConflict, Message: "Conflict"}
	}
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/checkouts", req).Code)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/checkouts", gin.H{"tool_id": 1}).Code)
}

func TestPostCheckoutAndReturn(t *testing.T) {
	f := newFixture(t)
	f.remote.CreateCheckoutFunc = func(ctx context.Context, r remote.CheckoutRequest) (*model.ToolCheckout, error) {
		return &model.ToolCheckout{ID: 77, ToolID: r.ToolID, UserID: r.UserID, CheckoutDate: r.ExpectedReturnDate.Add(-72 * time.Hour),
			ExpectedReturnDate: r.ExpectedReturnDate, CheckedOutBy: "John Smith", IsActive: true}, nil
	}
	f.remote.ReturnToolFunc = func(ctx context.Context, r remote.ReturnRequest) (*model.ToolCheckout, error) {
		return &model.ToolCheckout{ID: r.CheckoutID, ToolID: 1, UserID: 1, CheckedOutBy: "John Smith"}, nil
	}

	w := f.do(http.MethodPost, "/api/checkouts", gin.H{"tool_id": 1, "user_id": 1, "expected_return_date": "2025-06-04T12:00:00Z"})
	require.Equal(t, http.StatusCreated, w.Code)

	tool := decode[model.ToolWithCheckout](t, f.do(http.MethodGet, "/api/tools/1", nil))
	assert.Equal(t, model.ToolCheckedOut, tool.Status)
	require.NotNil(t, tool.CheckedOutToName)
	assert.Equal(t, "John Smith", *tool.CheckedOutToName)

	w = f.do(http.MethodPost, "/api/checkouts/77/return", gin.H{"condition": "Good"})
	require.Equal(t, http.StatusOK, w.Code)

	tool = decode[model.ToolWithCheckout](t, f.do(http.MethodGet, "/api/tools/1", nil))
	assert.Equal(t, model.ToolAvailable, tool.Status)
	assert.Nil(t, tool.CheckoutID)
}

func TestPostIssuance(t *testing.T) {
	f := newFixture(t)
	before := decode[[]model.Chemical](t, f.do(http.MethodGet, "/api/chemicals", nil))
	require.NotEmpty(t, before)
	assert.Equal(t, 24.0, before[0].Quantity)

	f.remote.CreateIssuanceFunc = func(ctx context.Context, r remote.IssueRequest) (*model.ChemicalIssuance, error) {
		return &model.ChemicalIssuance{ID: 9, ChemicalID: r.ChemicalID, UserID: 1, QuantityIssued: r.Quantity,
			IssueDate: time.Now().UTC(), Location: r.Location, IssuedBy: "John Smith"}, nil
	}
	w := f.do(http.MethodPost, "/api/issuances", gin.H{"chemical_id": before[0].ID, "quantity": 4, "location": "Hangar 1"})
	require.Equal(t, http.StatusCreated, w.Code)

	after := decode[[]model.Chemical](t, f.do(http.MethodGet, "/api/chemicals", nil))
	assert.Equal(t, 20.0, after[0].Quantity)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/issuances", gin.H{"chemical_id": 1, "quantity": 0, "location": "x"}).Code)
}

func TestChemicalFilters(t *testing.T) {
	f := newFixture(t)

	low := decode[[]model.Chemical](t, f.do(http.MethodGet, "/api/chemicals/low-stock", nil))
	require.Len(t, low, 1)
	assert.Equal(t, "CH-1002", low[0].PartNumber)

	expiring := decode[[]model.Chemical](t, f.do(http.MethodGet, "/api/chemicals/expiring", nil))
	assert.NotEmpty(t, expiring)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/auth/login", gin.H{"employee_number": "EMP001", "password": "password"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Password must contain uppercase letters"}`, w.Body.String())
	assert.Zero(t, f.remote.TotalCalls())

	w = f.do(http.MethodPost, "/api/auth/login", gin.H{"employee_number": "EMP001", "password": "Password123!"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	f.remote.LoginFunc = func(ctx context.Context, r remote.LoginRequest) (*remote.LoginResponse, error) {
		user := model.User{ID: 1, EmployeeNumber: r.EmployeeNumber, Name: "John Smith", Department: model.DepartmentMaintenance, IsActive: true}
		return &remote.LoginResponse{Success: true, User: &user, Token: "tok"}, nil
	}
	w = f.do(http.MethodPost, "/api/auth/login", gin.H{"employee_number": "EMP001", "password": "Password123!"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, false, body["offline"])
	assert.Equal(t, "Login successful", body["message"])

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/api/auth/logout", nil).Code)
}

func TestSyncEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/sync?type=TOOLS", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"name":"sync_now_tools","type":"tools"}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/sync", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"name":"sync_now","type":"all"}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/sync?type=PARTS", nil).Code)
	assert.Equal(t, []syncer.Type{syncer.TypeTools, syncer.TypeAll}, f.trigger.triggered)

	w = f.do(http.MethodGet, "/api/sync/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[map[string]any](t, w)
	assert.Equal(t, false, status["running"])
	assert.Len(t, status["works"], 1)
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Tools     repository.ToolStats     `json:"tools"`
		Chemicals repository.ChemicalStats `json:"chemicals"`
		Users     repository.UserStats     `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 12, stats.Tools.Total)
	assert.Equal(t, 2, stats.Tools.CheckedOut)
	assert.Equal(t, 4, stats.Chemicals.TotalActive)
	assert.Equal(t, 5, stats.Users.TotalActive)
}
