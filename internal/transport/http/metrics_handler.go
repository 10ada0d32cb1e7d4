package http

import (
	"net/http"

	apierrors "claimsledger/internal/errors"
)

// MetricsHandler exposes the Prometheus registry fed by the OTel exporter
type MetricsHandler struct {
	exposition   http.Handler
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler creates a metrics handler. A nil exposition handler
// means metrics are disabled and the endpoint answers 404.
func NewMetricsHandler(exposition http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(nil, false)
	}
	return &MetricsHandler{exposition: exposition, errorHandler: errorHandler}
}

// Enabled reports whether an exposition handler is configured
func (h *MetricsHandler) Enabled() bool {
	return h.exposition != nil
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		h.errorHandler.NotFound(w, r)
		return
	}
	h.exposition.ServeHTTP(w, r)
}
