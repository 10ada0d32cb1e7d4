package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "claimsledger/internal/errors"
	"claimsledger/internal/identifier"
	"claimsledger/internal/middleware"
	api "claimsledger/pkg/contracts/api/v1"
)

type contextKey string

const operatorIDKey contextKey = "operator-cnpj"

// LedgerHandler serves operator, expense and statistics queries with
// RFC 7807 errors
type LedgerHandler struct {
	service      LedgerServiceInterface
	validator    *middleware.QueryValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(service LedgerServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *LedgerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &LedgerHandler{
		service:      service,
		validator:    middleware.NewQueryValidator(),
		logger:       logger.With(slog.String("component", "ledger_handler")),
		errorHandler: errorHandler,
	}
}

// Routes registers the ledger routes on r
func (h *LedgerHandler) Routes(r chi.Router) {
	r.Get("/estatisticas", h.GetStatistics)

	r.Route("/operadoras", func(r chi.Router) {
		r.Get("/", h.ListOperators)

		r.Route("/{cnpj}", func(r chi.Router) {
			r.Use(h.OperatorCtx)
			r.Get("/", h.GetOperator)
			r.Get("/despesas", h.GetExpenses)
		})
	})
}

// OperatorCtx validates the {cnpj} path parameter and stores its digits
// in the request context.
func (h *LedgerHandler) OperatorCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "cnpj")
		digits := identifier.Digits(raw)
		if len(digits) != identifier.Length {
			h.errorHandler.HandleError(w, r, apierrors.InvalidIdentifierError(raw))
			return
		}
		ctx := context.WithValue(r.Context(), operatorIDKey, digits)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func operatorID(ctx context.Context) string {
	id, _ := ctx.Value(operatorIDKey).(string)
	return id
}

// ListOperators handles GET /api/operadoras
func (h *LedgerHandler) ListOperators(w http.ResponseWriter, r *http.Request) {
	req := api.NewOperatorListRequest()
	if err := h.validator.Bind(r.URL.Query(), &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	page, err := h.service.ListOperators(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

// GetOperator handles GET /api/operadoras/{cnpj}
func (h *LedgerHandler) GetOperator(w http.ResponseWriter, r *http.Request) {
	op, err := h.service.GetOperator(r.Context(), operatorID(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, op)
}

// GetExpenses handles GET /api/operadoras/{cnpj}/despesas
func (h *LedgerHandler) GetExpenses(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.Expenses(r.Context(), operatorID(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if history == nil {
		history = []api.Expense{}
	}
	render.JSON(w, r, history)
}

// GetStatistics handles GET /api/estatisticas
func (h *LedgerHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}
