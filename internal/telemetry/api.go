package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"inventory-reservation-api/internal/reservation"
)

// ReservationApiTelemetry provides telemetry for the reservation API: HTTP
// request instruments plus the business counters the reservation engine
// records through the reservation.Metrics interface.
type ReservationApiTelemetry struct {
	meter metric.Meter

	// Request counters
	requestCounter metric.Int64Counter

	// Error counters
	errorCounter metric.Int64Counter

	// Duration histograms
	durationHistogram metric.Float64Histogram

	// Reservation lifecycle counters
	createdCounter   metric.Int64Counter
	confirmedCounter metric.Int64Counter
	releasedCounter  metric.Int64Counter
	expiredCounter   metric.Int64Counter

	// Shortfall and duplicate-hold counters
	blockedCounter   metric.Int64Counter
	duplicateCounter metric.Int64Counter
}

// RequestMetrics contains the telemetry data for a request
type RequestMetrics struct {
	Method       string
	Endpoint     string
	StatusCode   int
	Duration     time.Duration
	ErrorMessage string
	// Client information with controlled cardinality
	ClientIP     string // Raw IP for logging, will be normalized for metrics
	ClientIPType string // Normalized IP type: "internal", "external", "unknown"
	// Business metrics
	Channel string // Sales channel when the handler resolved one
}

// NewReservationApiTelemetry creates a new instance of ReservationApiTelemetry
func NewReservationApiTelemetry() *ReservationApiTelemetry {
	return &ReservationApiTelemetry{}
}

// InitializeTelemetry sets up all the telemetry instruments for the reservation API
func (t *ReservationApiTelemetry) InitializeTelemetry(ctx context.Context) error {
	slog.Info("Initializing reservation API telemetry")

	// Get the global meter provider
	t.meter = otel.Meter("inventory-reservation-api")

	var err error

	t.requestCounter, err = t.meter.Int64Counter(
		"reservation_api_requests_total",
		metric.WithDescription("Total number of API requests to reservation endpoints"),
		metric.WithUnit("1"),
	)
	if err != nil {
		slog.Error("Failed to create request counter", "error", err)
		return fmt.Errorf("failed to create request counter: %w", err)
	}

	t.errorCounter, err = t.meter.Int64Counter(
		"reservation_api_errors_total",
		metric.WithDescription("Total number of API errors from reservation endpoints"),
		metric.WithUnit("1"),
	)
	if err != nil {
		slog.Error("Failed to create error counter", "error", err)
		return fmt.Errorf("failed to create error counter: %w", err)
	}

	t.durationHistogram, err = t.meter.Float64Histogram(
		"reservation_api_request_duration_seconds",
		metric.WithDescription("Duration of API requests to reservation endpoints"),
		metric.WithUnit("s"),
	)
	if err != nil {
		slog.Error("Failed to create duration histogram", "error", err)
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	t.createdCounter, err = t.meter.Int64Counter(
		"reservations_created_total",
		metric.WithDescription("Total number of stock reservations created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		slog.Error("Failed to create reservation counter", "error", err)
		return fmt.Errorf("failed to create reservation counter: %w", err)
	}

	t.confirmedCounter, err = t.meter.Int64Counter(
		"reservations_confirmed_total",
		metric.WithDescription("Total number of reservations confirmed into sales"),
		metric.WithUnit("1"),
	)
	if err != nil {
		slog.Error("Failed to create confirmation counter", "error", err)
		return fmt.Errorf("failed to create confirmation counter: %w", err)
	}

	t.releasedCounter, err = t.meter.Int64Counter(
		"reservations_released_total",
		metric.WithDescription("Total number of reservations released back to stock"),
		metric.WithUnit("1"),
	)
	if err != nil {
		slog.Error("Failed to create release counter", "error", err)
		return fmt.Errorf("failed to create release counter: %w", err)
	}

	t.expiredCounter, err = t.meter.Int64Counter(
		"reservations_expired_total",
		metric.WithDescription("Total number of reservations expired by the sweeper"),
		metric.WithUnit("1"),
	)
	if err != nil {
		slog.Error("Failed to create expiry counter", "error", err)
		return fmt.Errorf("failed to create expiry counter: %w", err)
	}

	t.blockedCounter, err = t.meter.Int64Counter(
		"stock_blocked_total",
		metric.WithDescription("Total number of line items rejected for insufficient stock"),
		metric.WithUnit("1"),
	)
	if err != nil {
		slog.Error("Failed to create blocked-stock counter", "error", err)
		return fmt.Errorf("failed to create blocked-stock counter: %w", err)
	}

	t.duplicateCounter, err = t.meter.Int64Counter(
		"duplicate_holds_total",
		metric.WithDescription("Total number of reservation attempts rejected as duplicate active holds"),
		metric.WithUnit("1"),
	)
	if err != nil {
		slog.Error("Failed to create duplicate-hold counter", "error", err)
		return fmt.Errorf("failed to create duplicate-hold counter: %w", err)
	}

	slog.Info("Reservation API telemetry initialized successfully")
	return nil
}

// ReservationsCreated records newly created holds, attributed by channel.
func (t *ReservationApiTelemetry) ReservationsCreated(ctx context.Context, n int, channel reservation.Channel) {
	if t.createdCounter == nil || n <= 0 {
		return
	}
	t.createdCounter.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("channel", string(channel)),
	))
}

// ReservationsConfirmed records holds converted into completed sales.
func (t *ReservationApiTelemetry) ReservationsConfirmed(ctx context.Context, n int) {
	if t.confirmedCounter == nil || n <= 0 {
		return
	}
	t.confirmedCounter.Add(ctx, int64(n))
}

// ReservationsReleased records holds returned to stock, attributed by reason.
func (t *ReservationApiTelemetry) ReservationsReleased(ctx context.Context, n int, reason string) {
	if t.releasedCounter == nil || n <= 0 {
		return
	}
	if reason == "" {
		reason = "manual"
	}
	t.releasedCounter.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// ReservationsExpired records holds lapsed by the background sweeper.
func (t *ReservationApiTelemetry) ReservationsExpired(ctx context.Context, n int64) {
	if t.expiredCounter == nil || n <= 0 {
		return
	}
	t.expiredCounter.Add(ctx, n)
}

// StockBlocked records line items that failed the effective-stock check.
func (t *ReservationApiTelemetry) StockBlocked(ctx context.Context, n int) {
	if t.blockedCounter == nil || n <= 0 {
		return
	}
	t.blockedCounter.Add(ctx, int64(n))
}

// DuplicateHolds records reservation attempts rejected by the active-hold
// unique index.
func (t *ReservationApiTelemetry) DuplicateHolds(ctx context.Context, n int) {
	if t.duplicateCounter == nil || n <= 0 {
		return
	}
	t.duplicateCounter.Add(ctx, int64(n))
}

// RegisterRequestReceived records a successful API request
func (t *ReservationApiTelemetry) RegisterRequestReceived(ctx context.Context, metrics RequestMetrics) {
	if t.requestCounter == nil {
		slog.Warn("Request counter not initialized")
		return
	}

	// Low-cardinality attributes only to prevent metric explosion
	attrs := []attribute.KeyValue{
		attribute.String("method", metrics.Method),
		attribute.String("endpoint", metrics.Endpoint),
		attribute.Int("status_code", metrics.StatusCode),
	}
	if metrics.ClientIPType != "" {
		attrs = append(attrs, attribute.String("client_ip_type", metrics.ClientIPType))
	}
	if metrics.Channel != "" {
		attrs = append(attrs, attribute.String("channel", metrics.Channel))
	}

	t.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	slog.Debug("Recorded successful API request",
		"method", metrics.Method,
		"endpoint", metrics.Endpoint,
		"status_code", metrics.StatusCode,
		"client_ip", metrics.ClientIP,
		"client_ip_type", metrics.ClientIPType,
		"duration_ms", metrics.Duration.Milliseconds(),
	)
}

// RegisterRequestError records a failed API request
func (t *ReservationApiTelemetry) RegisterRequestError(ctx context.Context, metrics RequestMetrics) {
	if t.errorCounter == nil {
		slog.Warn("Error counter not initialized")
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", metrics.Method),
		attribute.String("endpoint", metrics.Endpoint),
		attribute.Int("status_code", metrics.StatusCode),
		attribute.String("error_type", categorizeError(metrics.ErrorMessage)),
	}
	if metrics.ClientIPType != "" {
		attrs = append(attrs, attribute.String("client_ip_type", metrics.ClientIPType))
	}
	if metrics.Channel != "" {
		attrs = append(attrs, attribute.String("channel", metrics.Channel))
	}

	t.errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	slog.Warn("Recorded API request error",
		"method", metrics.Method,
		"endpoint", metrics.Endpoint,
		"status_code", metrics.StatusCode,
		"client_ip", metrics.ClientIP,
		"client_ip_type", metrics.ClientIPType,
		"error", metrics.ErrorMessage,
	)
}

// RegisterRequestDuration records the duration of an API request
func (t *ReservationApiTelemetry) RegisterRequestDuration(ctx context.Context, metrics RequestMetrics) {
	if t.durationHistogram == nil {
		slog.Warn("Duration histogram not initialized")
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", metrics.Method),
		attribute.String("endpoint", metrics.Endpoint),
		attribute.Int("status_code", metrics.StatusCode),
	}
	if metrics.ClientIPType != "" {
		attrs = append(attrs, attribute.String("client_ip_type", metrics.ClientIPType))
	}

	t.durationHistogram.Record(ctx, metrics.Duration.Seconds(), metric.WithAttributes(attrs...))
}

// categorizeError groups similar errors to prevent high cardinality
func categorizeError(errorMessage string) string {
	if errorMessage == "" {
		return "unknown"
	}

	switch {
	case strings.Contains(errorMessage, "not found"):
		return "not_found"
	case strings.Contains(errorMessage, "invalid"):
		return "invalid_request"
	case strings.Contains(errorMessage, "unauthorized"):
		return "unauthorized"
	case strings.Contains(errorMessage, "forbidden"):
		return "forbidden"
	case strings.Contains(errorMessage, "timeout"):
		return "timeout"
	case strings.Contains(errorMessage, "internal"):
		return "internal_error"
	case strings.Contains(errorMessage, "bad request"):
		return "bad_request"
	case strings.Contains(errorMessage, "conflict"):
		return "conflict"
	default:
		return "other"
	}
}

// GetEndpointFromPath normalizes the endpoint path for telemetry
func GetEndpointFromPath(path string) string {
	switch {
	case path == "/v1/reservations",
		path == "/v1/reservations/validate",
		path == "/v1/reservations/confirm",
		path == "/v1/reservations/release",
		path == "/v1/admin/audit",
		path == "/v1/admin/sweep",
		path == "/health":
		return path
	case strings.HasPrefix(path, "/v1/availability/"):
		// Parameterized paths like /v1/availability/prod-123
		return "/v1/availability/{productId}"
	case strings.HasPrefix(path, "/v1/reservations/"):
		return "/v1/reservations/{reservationId}"
	default:
		return path
	}
}

// NormalizeClientIP categorizes client IPs to control cardinality
func NormalizeClientIP(clientIP string) string {
	if clientIP == "" {
		return "unknown"
	}

	ip := net.ParseIP(clientIP)
	if ip == nil {
		return "invalid"
	}

	if isPrivateIP(ip) {
		return "internal"
	}
	if ip.IsLoopback() {
		return "localhost"
	}
	return "external"
}

// isPrivateIP checks if an IP address is in a private network range
func isPrivateIP(ip net.IP) bool {
	privateRanges := []string{
		"10.0.0.0/8",     // RFC1918
		"172.16.0.0/12",  // RFC1918
		"192.168.0.0/16", // RFC1918
		"169.254.0.0/16", // RFC3927 (link-local)
		"fc00::/7",       // RFC4193 (IPv6 unique local)
		"fe80::/10",      // RFC4291 (IPv6 link-local)
	}

	for _, rangeStr := range privateRanges {
		_, network, err := net.ParseCIDR(rangeStr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}

	return false
}
