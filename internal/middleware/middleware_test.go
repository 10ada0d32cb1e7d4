package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "claimsledger/internal/errors"
	"claimsledger/internal/testutil"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated when absent"},
		{name: "incoming kept", incoming: "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			assert.Equal(t, got, seen)
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, got)
				return
			}
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	h := NewRateLimiter(0.001, 1, logger).Handler(okHandler)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/estatisticas", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/estatisticas", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", second.Header().Get("Content-Type"))

	var p Problem
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &p))
	assert.Equal(t, "/errors/rate-limit", p.Type)
	assert.True(t, capture.ContainsMessage("rate limit exceeded"))
}

func TestTimeout(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	Timeout(5*time.Millisecond, logger)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/operadoras", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "/errors/timeout", p.Type)
}

func TestTimeoutPassesFastHandlers(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rec := httptest.NewRecorder()
	Timeout(time.Second, logger)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "http://localhost:5173", wantStatus: http.StatusOK, wantOrigin: "http://localhost:5173"},
		{name: "other origin", method: http.MethodGet, origin: "http://evil.example", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:5173", wantStatus: http.StatusNoContent, wantOrigin: "http://localhost:5173"},
	}

	h := CORS(CORSConfig{
		AllowedOrigins: []string{"http://localhost:5173"},
		ExposedHeaders: []string{RequestIDHeader},
	})(okHandler)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/operadoras", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, RequestIDHeader, rec.Header().Get("Access-Control-Expose-Headers"))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

type listQuery struct {
	Page  int    `query:"page" validate:"min=1"`
	Limit int    `query:"limit" validate:"min=1,max=100"`
	Term  string `query:"q" validate:"max=5"`
	Skip  string `query:"-"`
}

func TestQueryValidatorBind(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		want      listQuery
		wantField string
	}{
		{name: "defaults kept", query: "", want: listQuery{Page: 1, Limit: 10}},
		{name: "values bound", query: "page=2&limit=50&q=%20alfa%20", want: listQuery{Page: 2, Limit: 50, Term: "alfa"}},
		{name: "ignored tag", query: "Skip=x", want: listQuery{Page: 1, Limit: 10}},
		{name: "not an integer", query: "page=dois", wantField: "page"},
		{name: "limit above max", query: "limit=101", wantField: "limit"},
		{name: "page below min", query: "page=0", wantField: "page"},
		{name: "term too long", query: "q=abcdefg", wantField: "q"},
	}

	v := NewQueryValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got := listQuery{Page: 1, Limit: 10}
			err = v.Bind(values, &got)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			details, isList := apiErr.Details.([]apierrors.ValidationError)
			require.True(t, isList)
			require.NotEmpty(t, details)
			assert.Equal(t, tt.wantField, details[0].Field)
		})
	}
}

func TestQueryValidatorRejectsNonPointer(t *testing.T) {
	err := NewQueryValidator().Bind(url.Values{}, listQuery{})
	assert.Error(t, err)
}
