package telemetry

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TelemetryMiddleware wraps HTTP handlers to automatically collect telemetry
type TelemetryMiddleware struct {
	telemetry *ReservationApiTelemetry
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for load balancers/proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	// Fall back to RemoteAddr
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// NewTelemetryMiddleware creates a new telemetry middleware
func NewTelemetryMiddleware(telemetry *ReservationApiTelemetry) *TelemetryMiddleware {
	return &TelemetryMiddleware{
		telemetry: telemetry,
	}
}

// Middleware returns the HTTP middleware function
func (tm *TelemetryMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // Default to 200
		}

		metrics := tm.extractMetricsFromRequest(r)

		next.ServeHTTP(wrapper, r)

		metrics.StatusCode = wrapper.statusCode
		metrics.Duration = time.Since(start)

		ctx := r.Context()
		if channel := GetChannel(ctx); channel != "" {
			metrics.Channel = channel
		}

		if wrapper.statusCode >= 400 {
			metrics.ErrorMessage = tm.getErrorMessage(wrapper.statusCode)
			tm.telemetry.RegisterRequestError(ctx, metrics)
		} else {
			tm.telemetry.RegisterRequestReceived(ctx, metrics)
		}

		// Always record duration
		tm.telemetry.RegisterRequestDuration(ctx, metrics)
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(data []byte) (int, error) {
	return w.ResponseWriter.Write(data)
}

// extractMetricsFromRequest extracts telemetry data from the HTTP request
func (tm *TelemetryMiddleware) extractMetricsFromRequest(r *http.Request) RequestMetrics {
	// Extract client IP and normalize it for low cardinality
	clientIP := getClientIP(r)

	return RequestMetrics{
		Method:       r.Method,
		Endpoint:     GetEndpointFromPath(r.URL.Path),
		ClientIP:     clientIP, // Raw IP for logging
		ClientIPType: NormalizeClientIP(clientIP),
	}
}

// getErrorMessage returns a human-readable error message for the status code
func (tm *TelemetryMiddleware) getErrorMessage(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "Bad Request"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusMethodNotAllowed:
		return "Method Not Allowed"
	case http.StatusConflict:
		return "Conflict"
	case http.StatusUnprocessableEntity:
		return "Unprocessable Entity"
	case http.StatusInternalServerError:
		return "Internal Server Error"
	case http.StatusBadGateway:
		return "Bad Gateway"
	case http.StatusServiceUnavailable:
		return "Service Unavailable"
	case http.StatusGatewayTimeout:
		return "Gateway Timeout"
	default:
		return "HTTP Error " + strconv.Itoa(statusCode)
	}
}

type channelContextKey struct{}

// SetChannel stores the resolved sales channel for attribution on request
// metrics. Channel values come from a small fixed set, so cardinality stays
// bounded.
func SetChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelContextKey{}, channel)
}

// GetChannel retrieves the sales channel from context
func GetChannel(ctx context.Context) string {
	if channel, ok := ctx.Value(channelContextKey{}).(string); ok {
		return channel
	}
	return ""
}
