package http

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	statex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/state"
	v1 "github.com/tanpawarit/Chative-Bike-Shop-Assistant/internal/transport/http/v1"
)

type stubService struct{}

func (stubService) CreateSession(context.Context) (*statex.SessionState, error) {
	return nil, nil
}

func (stubService) Session(context.Context, string) (*statex.SessionState, error) {
	return nil, nil
}

func (stubService) DestroySession(context.Context, string) error {
	return nil
}

func (stubService) HandleMessage(context.Context, string, string) (v1.Turn, error) {
	return nil, nil
}

func TestServerRateLimitsPerClient(t *testing.T) {
	t.Parallel()

	e := NewServer(stubService{}, Config{RateLimit: 1, RateBurst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(nethttp.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{nethttp.StatusOK, nethttp.StatusOK, nethttp.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(nethttp.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, nethttp.StatusOK, rec.Code)
}

func TestServerWithoutRateLimit(t *testing.T) {
	t.Parallel()

	e := NewServer(stubService{}, Config{})
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/healthz", nil))
		require.Equal(t, nethttp.StatusOK, rec.Code)
	}
}
