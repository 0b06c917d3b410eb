package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"storefront-restock-api/internal/service"
	"storefront-restock-api/pkg/apierror"
	"storefront-restock-api/pkg/response"
)

// writeServiceError maps service errors onto API errors. Unknown errors are
// logged and reported as 500.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.Error(w, apierror.ValidationError("invalid request",
			apierror.FieldError{Field: ve.Field, Message: ve.Message}))
	case errors.Is(err, service.ErrInStock):
		response.Error(w, apierror.Conflict("this item is currently in stock"))
	case errors.Is(err, service.ErrUnknownProduct):
		response.Error(w, apierror.NotFound("product not found"))
	default:
		logger.Error("request failed", zap.Error(err))
		response.Error(w, err)
	}
}
