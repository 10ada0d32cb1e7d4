package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "claimsledger/internal/errors"
	"claimsledger/internal/testutil"
	api "claimsledger/pkg/contracts/api/v1"
)

// MockLedgerService is a mock implementation of LedgerServiceInterface
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) ListOperators(ctx context.Context, req api.OperatorListRequest) (api.OperatorPage, error) {
	args := m.Called(req)
	return args.Get(0).(api.OperatorPage), args.Error(1)
}

func (m *MockLedgerService) GetOperator(ctx context.Context, cnpj string) (api.Operator, error) {
	args := m.Called(cnpj)
	return args.Get(0).(api.Operator), args.Error(1)
}

func (m *MockLedgerService) Expenses(ctx context.Context, cnpj string) ([]api.Expense, error) {
	args := m.Called(cnpj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Expense), args.Error(1)
}

func (m *MockLedgerService) Statistics(ctx context.Context) (api.Statistics, error) {
	args := m.Called()
	return args.Get(0).(api.Statistics), args.Error(1)
}

func newLedgerRouter(t *testing.T, svc LedgerServiceInterface) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewLedgerHandler(svc, logger, apierrors.NewErrorHandler(logger, false))
	r := chi.NewRouter()
	r.Route("/api", h.Routes)
	return r
}

func serve(t *testing.T, handler http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestLedgerHandler_ListOperators(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantReq    *api.OperatorListRequest
		wantStatus int
		wantField  string
	}{
		{
			name:       "defaults",
			target:     "/api/operadoras",
			wantReq:    &api.OperatorListRequest{Page: 1, Limit: 10},
			wantStatus: http.StatusOK,
		},
		{
			name:       "explicit page and search",
			target:     "/api/operadoras?page=3&limit=25&q=unimed",
			wantReq:    &api.OperatorListRequest{Page: 3, Limit: 25, Query: "unimed"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "limit above maximum",
			target:     "/api/operadoras?limit=101",
			wantStatus: http.StatusBadRequest,
			wantField:  "limit",
		},
		{
			name:       "page zero",
			target:     "/api/operadoras?page=0",
			wantStatus: http.StatusBadRequest,
			wantField:  "page",
		},
		{
			name:       "page not a number",
			target:     "/api/operadoras?page=abc",
			wantStatus: http.StatusBadRequest,
			wantField:  "page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLedgerService)
			if tt.wantReq != nil {
				svc.On("ListOperators", *tt.wantReq).Return(api.OperatorPage{
					Data:       []api.Operator{{CNPJ: "11444777000161", RazaoSocial: "Alfa Saude"}},
					Total:      1,
					Page:       tt.wantReq.Page,
					Limit:      tt.wantReq.Limit,
					TotalPages: 1,
				}, nil)
			}

			rec, body := serve(t, newLedgerRouter(t, svc), tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantField != "" {
				assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
				details, ok := body["details"].([]interface{})
				require.True(t, ok)
				require.NotEmpty(t, details)
				assert.Equal(t, tt.wantField, details[0].(map[string]interface{})["field"])
				svc.AssertNotCalled(t, "ListOperators", mock.Anything)
				return
			}
			assert.EqualValues(t, 1, body["total"])
			assert.EqualValues(t, tt.wantReq.Page, body["page"])
			svc.AssertExpectations(t)
		})
	}
}

func TestLedgerHandler_OperatorRoutes(t *testing.T) {
	const cnpj = "11444777000161"

	tests := []struct {
		name       string
		target     string
		setup      func(*MockLedgerService)
		wantStatus int
		wantType   string
	}{
		{
			name:   "operator found",
			target: "/api/operadoras/" + cnpj,
			setup: func(m *MockLedgerService) {
				m.On("GetOperator", cnpj).Return(api.Operator{CNPJ: cnpj, UF: "SP"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "punctuation is stripped",
			target: "/api/operadoras/11.444.777.0001-61",
			setup: func(m *MockLedgerService) {
				m.On("GetOperator", cnpj).Return(api.Operator{CNPJ: cnpj}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "short identifier",
			target:     "/api/operadoras/1234",
			setup:      func(*MockLedgerService) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeIdentifier,
		},
		{
			name:       "short identifier on expenses",
			target:     "/api/operadoras/abc/despesas",
			setup:      func(*MockLedgerService) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apierrors.TypeIdentifier,
		},
		{
			name:   "unknown operator",
			target: "/api/operadoras/" + cnpj,
			setup: func(m *MockLedgerService) {
				m.On("GetOperator", cnpj).Return(api.Operator{}, apierrors.NewNotFoundError("operadora"))
			},
			wantStatus: http.StatusNotFound,
			wantType:   apierrors.TypeNotFound,
		},
		{
			name:   "ledger not loaded",
			target: "/api/operadoras/" + cnpj,
			setup: func(m *MockLedgerService) {
				m.On("GetOperator", cnpj).Return(api.Operator{}, apierrors.NewStorageError("ledger artifacts not loaded", nil))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantType:   apierrors.TypeDataMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLedgerService)
			tt.setup(svc)

			rec, body := serve(t, newLedgerRouter(t, svc), tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, body["type"])
			} else {
				assert.Equal(t, cnpj, body["cnpj"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestLedgerHandler_GetExpenses(t *testing.T) {
	const cnpj = "11444777000161"

	svc := new(MockLedgerService)
	svc.On("Expenses", cnpj).Return([]api.Expense{
		{Ano: 2023, Trimestre: 4, Valor: 1300.5},
		{Ano: 2024, Trimestre: 1, Valor: 1500},
	}, nil).Once()
	svc.On("Expenses", "99999999000199").Return(nil, nil).Once()

	router := newLedgerRouter(t, svc)

	rec, _ := serve(t, router, "/api/operadoras/"+cnpj+"/despesas")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []api.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, []api.Expense{
		{Ano: 2023, Trimestre: 4, Valor: 1300.5},
		{Ano: 2024, Trimestre: 1, Valor: 1500},
	}, history)

	rec, _ = serve(t, router, "/api/operadoras/99999999000199/despesas")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	svc.AssertExpectations(t)
}

func TestLedgerHandler_GetStatistics(t *testing.T) {
	svc := new(MockLedgerService)
	svc.On("Statistics").Return(api.Statistics{
		TotalDespesas:     4780.5,
		MediaPorOperadora: 1593.5,
		TopOperadoras:     []api.TopOperator{{CNPJ: "11444777000161", TotalDespesas: 2800.5}},
		PorUF:             []api.RegionBreakdown{{UF: "SP", TotalDespesas: 2800.5, QtdOperadoras: 1, MediaPorOperadora: 2800.5}},
	}, nil)

	rec, body := serve(t, newLedgerRouter(t, svc), "/api/estatisticas")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4780.5, body["total_despesas"])
	assert.Len(t, body["top_5_operadoras"], 1)
	assert.Len(t, body["por_uf"], 1)
	svc.AssertExpectations(t)
}
