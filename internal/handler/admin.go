package handler

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"phonemarket-bot/internal/repository"
	"phonemarket-bot/pkg/response"
)

// Cleaner runs an offer cleanup pass on demand.
type Cleaner interface {
	RunNow(ctx context.Context) (int64, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	repo      repository.Repository
	purchases repository.PurchaseLogRepository
	cleaner   Cleaner
	dbType    string
	auditType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	repo repository.Repository,
	purchases repository.PurchaseLogRepository,
	cleaner Cleaner,
	dbType, auditType string,
) *AdminHandler {
	return &AdminHandler{
		repo:      repo,
		purchases: purchases,
		cleaner:   cleaner,
		dbType:    dbType,
		auditType: auditType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType
	stats["audit_type"] = h.auditType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	dbStats, err := h.repo.GetStats(ctx)
	if err == nil {
		dbStats["status"] = "connected"
		stats["database"] = dbStats
	} else {
		stats["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	if h.purchases != nil {
		if _, total, err := h.purchases.ListPurchases(ctx, 1, 0); err == nil {
			stats["purchases_logged"] = total
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// ListPurchases handles GET /api/v1/admin/purchases?page=&limit=
func (h *AdminHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	records, total, err := h.purchases.ListPurchases(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, records, page, limit, total)
}

// Cleanup handles POST /api/v1/admin/cleanup
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.cleaner.RunNow(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"deleted_offers": deleted,
	})
}
