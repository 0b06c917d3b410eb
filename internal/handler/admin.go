package handler

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"storefront-restock-api/internal/service"
	"storefront-restock-api/pkg/apierror"
	"storefront-restock-api/pkg/response"
)

// Bulk action names.
const (
	ActionSetQty        = "setQty"
	ActionResetQty      = "resetQty"
	ActionNotify        = "notify"
	ActionCreateMissing = "createMissing"
)

// AdminHandler handles the administrative inventory endpoints.
type AdminHandler struct {
	restock   *service.RestockService
	storeType string
	startTime time.Time
	logger    *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(restock *service.RestockService, storeType string, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		restock:   restock,
		storeType: storeType,
		startTime: time.Now(),
		logger:    logger.Named("admin_handler"),
	}
}

// BulkRequest is a discriminated admin action.
type BulkRequest struct {
	Action    string          `json:"action"`
	ProductID string          `json:"productId"`
	Variant   *string         `json:"variant"`
	Qty       json.RawMessage `json:"qty"`
}

// Bulk handles POST /api/v1/admin/inventory
func (h *AdminHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	ctx := r.Context()
	switch req.Action {
	case ActionSetQty:
		qty, err := parseQty(req.Qty)
		if err != nil {
			response.Error(w, apierror.ValidationError("invalid request",
				apierror.FieldError{Field: "qty", Message: err.Error()}))
			return
		}
		res, err := h.restock.SetQty(ctx, service.SourceBulk, req.ProductID, req.Variant, qty)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		response.OK(w, WriteResponse{OK: true, WriteResult: res})

	case ActionResetQty:
		res, err := h.restock.ResetQty(ctx, service.SourceBulk, req.ProductID, req.Variant)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		response.OK(w, WriteResponse{OK: true, WriteResult: res})

	case ActionNotify:
		res, err := h.restock.Notify(ctx, req.ProductID, req.Variant)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		response.OK(w, map[string]interface{}{
			"ok":         true,
			"productId":  res.ProductID,
			"variant":    res.Variant,
			"matched":    res.Matched,
			"emailed":    res.Emailed,
			"sendErrors": res.SendErrors,
			"deleted":    res.Deleted,
		})

	case ActionCreateMissing:
		res, err := h.restock.CreateMissing(ctx)
		if err != nil {
			writeServiceError(w, h.logger, err)
			return
		}
		response.OK(w, map[string]interface{}{
			"ok":       true,
			"declared": res.Declared,
			"created":  res.Created,
			"errors":   res.Errors,
		})

	default:
		response.Error(w, apierror.ValidationError("invalid request",
			apierror.FieldError{Field: "action", Message: "must be one of setQty, resetQty, notify, createMissing"}))
	}
}

// Reconcile handles GET /api/v1/admin/inventory
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rows, err := h.restock.Reconcile(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	missing := 0
	for _, row := range rows {
		if row.MissingInventory {
			missing++
		}
	}

	response.List(w, map[string]interface{}{
		"rows":    rows,
		"missing": missing,
	}, len(rows))
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	storeStats, err := h.restock.Stats(r.Context())
	if err == nil {
		storeStats["status"] = "connected"
		stats["store"] = storeStats
	} else {
		stats["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
