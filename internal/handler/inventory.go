package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront-restock-api/internal/service"
	"storefront-restock-api/pkg/apierror"
	"storefront-restock-api/pkg/response"
)

// InventoryHandler handles the single-item and public inventory endpoints.
type InventoryHandler struct {
	restock *service.RestockService
	logger  *zap.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(restock *service.RestockService, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{
		restock: restock,
		logger:  logger.Named("inventory_handler"),
	}
}

// SetQtyRequest is the single-item update body.
type SetQtyRequest struct {
	ProductID string          `json:"productId"`
	Variant   *string         `json:"variant"`
	Qty       json.RawMessage `json:"qty"`
}

// WriteResponse wraps a write result with the ok flag.
type WriteResponse struct {
	OK bool `json:"ok"`
	*service.WriteResult
}

// SetQty handles POST /api/v1/inventory
func (h *InventoryHandler) SetQty(w http.ResponseWriter, r *http.Request) {
	var req SetQtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	qty, err := parseQty(req.Qty)
	if err != nil {
		response.Error(w, apierror.ValidationError("invalid request",
			apierror.FieldError{Field: "qty", Message: err.Error()}))
		return
	}

	res, err := h.restock.SetQty(r.Context(), service.SourceSingle, req.ProductID, req.Variant, qty)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	response.OK(w, WriteResponse{OK: true, WriteResult: res})
}

// GetStock handles GET /api/v1/inventory/{productId}?variant=
func (h *InventoryHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var v *string
	if r.URL.Query().Has("variant") {
		q := r.URL.Query().Get("variant")
		v = &q
	}

	res, err := h.restock.Stock(r.Context(), productID, v)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	response.OK(w, res)
}

// SubscribeRequest is the "notify me" body.
type SubscribeRequest struct {
	ProductID string  `json:"productId"`
	Variant   *string `json:"variant"`
	Email     string  `json:"email"`
}

// Subscribe handles POST /api/v1/subscriptions
func (h *InventoryHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	sub, err := h.restock.Subscribe(r.Context(), req.ProductID, req.Variant, req.Email)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	response.Created(w, map[string]interface{}{
		"id":        sub.ID,
		"productId": sub.ProductID,
		"variant":   variantOrNil(sub.Variant),
		"createdAt": sub.CreatedAt,
	})
}

func variantOrNil(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
