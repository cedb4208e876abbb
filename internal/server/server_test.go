package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solroute/swapd/internal/domain"
	"github.com/solroute/swapd/internal/executor"
	"github.com/solroute/swapd/internal/server/handler"
	"github.com/solroute/swapd/internal/service"
)

type stubOrders struct{}

func (stubOrders) Submit(_ context.Context, _ service.SubmitRequest) (domain.Order, error) {
	return domain.Order{ID: "ord-1", Status: domain.OrderStatusPending}, nil
}

func (stubOrders) Cancel(_ context.Context, _ string) error { return nil }

func (stubOrders) Get(_ context.Context, id string) (domain.Order, error) {
	return domain.Order{ID: id, Status: domain.OrderStatusPending, CreatedAt: time.Now()}, nil
}

func (stubOrders) ListRecent(_ context.Context, _ int) ([]domain.Order, error) {
	return nil, nil
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	handlers := Handlers{
		Health: handler.NewHealthHandler("memory", logger),
		Orders: handler.NewOrderHandler(stubOrders{}, logger),
	}
	return NewServer(cfg, handlers, nil, executor.NewLocalLimiter(), logger)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0})

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/health", "", http.StatusOK},
		{http.MethodGet, "/api/orders", "", http.StatusOK},
		{http.MethodPost, "/api/orders", `{"inputToken":"SOL","outputToken":"USDC","amount":1}`, http.StatusCreated},
		{http.MethodGet, "/api/orders/ord-1", "", http.StatusOK},
		{http.MethodDelete, "/api/orders/ord-1", "", http.StatusOK},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
		{http.MethodPut, "/api/orders", "", http.StatusMethodNotAllowed},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			var body *strings.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCORSHeadersAndPreflight(t *testing.T) {
	srv := newTestServer(t, Config{
		Port:        0,
		CORSOrigins: []string{"http://localhost:5173"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	// Disallowed origin gets no CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	srv := newTestServer(t, Config{
		Port:       0,
		RateLimit:  2,
		RateWindow: time.Minute,
	})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/orders",
			strings.NewReader(`{"inputToken":"SOL","outputToken":"USDC","amount":1}`))
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, post())
	assert.Equal(t, http.StatusCreated, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	// Reads are never limited.
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
