package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"phonemarket-bot/internal/cache"
	"phonemarket-bot/internal/catalog"
	"phonemarket-bot/internal/market"
	"phonemarket-bot/internal/model"
	"phonemarket-bot/internal/repository"
	"phonemarket-bot/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return env
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	h := New("phonemarket-bot", "1.2.3")
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(decode(t, rec).Data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" || resp.Version != "1.2.3" {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestReady(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	h := New("phonemarket-bot", "1.0.0").AddCheck("database", ok).AddCheck("sessions", ok)
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	h.AddCheck("sessions", down)
	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp ReadyResponse
	if err := json.Unmarshal(decode(t, rec).Data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ready {
		t.Error("expected not ready")
	}
	if len(resp.Checks) != 3 {
		t.Fatalf("expected 3 checks, got %+v", resp.Checks)
	}
	if c := resp.Checks[2]; c.Name != "sessions" || c.Status != "error" || c.Error != "connection refused" {
		t.Errorf("unexpected sessions check: %+v", c)
	}
}

func TestStatusDegraded(t *testing.T) {
	h := New("phonemarket-bot", "1.0.0").
		AddCheck("database", pingFunc(func(context.Context) error { return errors.New("locked") }))

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var resp StatusResponse
	if err := json.Unmarshal(decode(t, rec).Data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" || resp.Checks.Database != "error" || resp.Checks.Sessions != "not_configured" {
		t.Errorf("unexpected status: %+v", resp)
	}
}

func newMarketRouter(t *testing.T) (http.Handler, *market.Service) {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })

	cat := &catalog.Catalog{
		Phones:     []catalog.Phone{{Key: "nova_s1_64", Name: "Nova S1", Price: 400, Colors: []string{"Black"}}},
		Components: []catalog.Component{{Key: "battery_std", Name: "Standard battery", Price: 60}},
	}
	cfg := market.Config{
		Generator:       market.GeneratorConfig{TotalSlots: 2, Inflation: 1},
		Cycle:           market.CyclePolicy{Location: time.UTC},
		ConfirmTimeout:  time.Minute,
		StartingBalance: 1000,
	}
	svc := market.NewService(cfg, cat, repo, session.NewStore(c, time.Hour), zerolog.Nop(), market.WithSeed(5, 6))

	h := NewMarketHandler(svc)
	r := chi.NewRouter()
	r.Get("/users/{user_id}/offers", h.GetOffers)
	r.Get("/users/{user_id}/inventory", h.GetInventory)
	r.Post("/users/{user_id}/credit", h.Credit)
	return r, svc
}

func TestMarketOffers(t *testing.T) {
	r, svc := newMarketRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42/offers", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unregistered user: expected 404, got %d", rec.Code)
	}

	if _, _, err := svc.Register(context.Background(), 42, "player"); err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42/offers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp OffersResponse
	if err := json.Unmarshal(decode(t, rec).Data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.UserID != 42 || len(resp.Offers) != 2 {
		t.Fatalf("unexpected offers response: %+v", resp)
	}
	if !resp.Offers[0].IsStolen || resp.Offers[0].SlotNumber != 1 {
		t.Errorf("expected the stolen phone in slot 1, got %+v", resp.Offers[0])
	}
	if !resp.NextRefresh.After(time.Now().Add(-time.Minute)) {
		t.Errorf("next refresh in the past: %v", resp.NextRefresh)
	}
}

func TestMarketBadUserID(t *testing.T) {
	r, _ := newMarketRouter(t)

	for _, path := range []string{"/users/abc/offers", "/users/0/inventory"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
		if env := decode(t, rec); env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("%s: unexpected error body %s", path, rec.Body.String())
		}
	}
}

func TestMarketInventoryAndCredit(t *testing.T) {
	r, svc := newMarketRouter(t)
	if _, _, err := svc.Register(context.Background(), 7, "player"); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/7/credit", strings.NewReader(`{"amount":250}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var credit struct {
		Balance int64 `json:"balance"`
	}
	if err := json.Unmarshal(decode(t, rec).Data, &credit); err != nil {
		t.Fatal(err)
	}
	if credit.Balance != 1250 {
		t.Errorf("expected balance 1250, got %d", credit.Balance)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/7/credit", strings.NewReader(`{"amount":0}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero amount: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/7/credit", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/8/credit", strings.NewReader(`{"amount":5}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user: expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/7/inventory", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var inv struct {
		User  model.User            `json:"user"`
		Items []model.InventoryItem `json:"items"`
	}
	if err := json.Unmarshal(decode(t, rec).Data, &inv); err != nil {
		t.Fatal(err)
	}
	if inv.Items == nil || len(inv.Items) != 0 {
		t.Errorf("expected an empty item list, got %+v", inv.Items)
	}
}

type fakeCleaner struct {
	deleted int64
	err     error
}

func (f fakeCleaner) RunNow(context.Context) (int64, error) { return f.deleted, f.err }

func newAdmin(t *testing.T, cleaner Cleaner) (*AdminHandler, *repository.MemoryPurchaseLog) {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	audit := repository.NewMemoryPurchaseLog(10)
	return NewAdminHandler(repo, audit, cleaner, "sqlite", "memory"), audit
}

func TestListPurchasesPaginates(t *testing.T) {
	h, audit := newAdmin(t, fakeCleaner{})
	for i := 1; i <= 3; i++ {
		rec := &model.PurchaseRecord{UserID: int64(i), ItemKey: "nova_s1_64", Price: 100}
		if err := audit.InsertPurchase(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}

	rec := httptest.NewRecorder()
	h.ListPurchases(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/purchases?page=2&limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decode(t, rec)
	if env.Meta == nil || env.Meta.Page != 2 || env.Meta.Limit != 2 || env.Meta.Total != 3 {
		t.Fatalf("unexpected meta: %+v", env.Meta)
	}
	var records []model.PurchaseRecord
	if err := json.Unmarshal(env.Data, &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].UserID != 1 {
		t.Errorf("expected the oldest record on page 2, got %+v", records)
	}

	rec = httptest.NewRecorder()
	h.ListPurchases(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/purchases?limit=1000", nil))
	if env := decode(t, rec); env.Meta.Limit != 20 || env.Meta.Page != 1 {
		t.Errorf("expected defaults for out-of-range limit, got %+v", env.Meta)
	}
}

func TestCleanup(t *testing.T) {
	h, _ := newAdmin(t, fakeCleaner{deleted: 5})
	rec := httptest.NewRecorder()
	h.Cleanup(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/cleanup", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"deleted_offers":5`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}

	h, _ = newAdmin(t, fakeCleaner{err: errors.New("disk I/O error")})
	rec = httptest.NewRecorder()
	h.Cleanup(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/cleanup", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk I/O") {
		t.Error("internal error details leaked to the client")
	}
}

func TestGetStats(t *testing.T) {
	h, _ := newAdmin(t, fakeCleaner{})
	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil))

	var stats map[string]interface{}
	if err := json.Unmarshal(decode(t, rec).Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats["db_type"] != "sqlite" || stats["audit_type"] != "memory" {
		t.Errorf("unexpected stats: %v", stats)
	}
	db, _ := stats["database"].(map[string]interface{})
	if db["status"] != "connected" {
		t.Errorf("expected connected database, got %v", stats["database"])
	}
}
