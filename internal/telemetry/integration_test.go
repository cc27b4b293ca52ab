package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTelemetryIntegration exercises the middleware and instruments together
// against the real route shapes.
func TestTelemetryIntegration(t *testing.T) {
	apiTelemetry := NewReservationApiTelemetry()
	ctx := context.Background()
	require.NoError(t, apiTelemetry.InitializeTelemetry(ctx))

	middleware := NewTelemetryMiddleware(apiTelemetry)

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})
	failingHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	router := mux.NewRouter()
	router.Use(middleware.Middleware)
	router.HandleFunc("/v1/reservations", testHandler).Methods("POST")
	router.HandleFunc("/v1/reservations/confirm", failingHandler).Methods("POST")
	router.HandleFunc("/v1/availability/{productId}", testHandler).Methods("GET")

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{
			name:           "Reserve",
			method:         "POST",
			path:           "/v1/reservations",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Confirm conflict",
			method:         "POST",
			path:           "/v1/reservations/confirm",
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Availability",
			method:         "GET",
			path:           "/v1/availability/prod-001",
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.expectedStatus, rec.Code)
		})
	}
}

func TestGetEndpointFromPath(t *testing.T) {
	cases := map[string]string{
		"/v1/reservations":           "/v1/reservations",
		"/v1/reservations/validate":  "/v1/reservations/validate",
		"/v1/reservations/confirm":   "/v1/reservations/confirm",
		"/v1/reservations/release":   "/v1/reservations/release",
		"/v1/reservations/res-42":    "/v1/reservations/{reservationId}",
		"/v1/availability/prod-001":  "/v1/availability/{productId}",
		"/v1/admin/audit":            "/v1/admin/audit",
		"/v1/admin/sweep":            "/v1/admin/sweep",
		"/health":                    "/health",
		"/something/else":            "/something/else",
	}
	for path, want := range cases {
		assert.Equal(t, want, GetEndpointFromPath(path), path)
	}
}

func TestNormalizeClientIP(t *testing.T) {
	assert.Equal(t, "unknown", NormalizeClientIP(""))
	assert.Equal(t, "invalid", NormalizeClientIP("not-an-ip"))
	assert.Equal(t, "internal", NormalizeClientIP("10.1.2.3"))
	assert.Equal(t, "internal", NormalizeClientIP("192.168.0.7"))
	assert.Equal(t, "localhost", NormalizeClientIP("127.0.0.1"))
	assert.Equal(t, "external", NormalizeClientIP("8.8.8.8"))
}
