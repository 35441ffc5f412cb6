package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestChecker_Check(t *testing.T) {
	testCases := []struct {
		name    string
		checker *Checker
		wantErr bool
	}{
		{"no dependencies", NewChecker(nil, nil, nil), false},
		{"all healthy", NewChecker(&mockPinger{}, &mockPolicyChecker{}, nil), false},
		{"db down", NewChecker(&mockPinger{pingErr: errors.New("refused")}, &mockPolicyChecker{}, nil), true},
		{"policy broken", NewChecker(&mockPinger{}, &mockPolicyChecker{healthErr: errors.New("eval")}, nil), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.checker.Check(context.Background()); (err != nil) != tc.wantErr {
				t.Errorf("Check err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestChecker_HTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testCases := []struct {
		name    string
		checker *Checker
		want    int
	}{
		{"ok", NewChecker(&mockPinger{}, nil, nil), http.StatusOK},
		{"unavailable", NewChecker(&mockPinger{pingErr: errors.New("refused")}, nil, nil), http.StatusServiceUnavailable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/healthz", tc.checker.HTTP)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestChecker_Sync(t *testing.T) {
	hs := health.NewServer()
	pinger := &mockPinger{}
	c := NewChecker(pinger, nil, nil)

	c.Sync(context.Background(), hs)
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}

	pinger.pingErr = errors.New("refused")
	c.Sync(context.Background(), hs)
	resp, err = hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
}
