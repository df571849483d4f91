package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record
// JSON-RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method and error code.",
			}, []string{"module", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "padipay",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a JSON-RPC request. A zero code means
// success.
func (m *moduleMetrics) Observe(module, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// LedgerMetrics tracks ledger calls and the payment flow.
type LedgerMetrics struct {
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	height       prometheus.Gauge
	payments     *prometheus.CounterVec
	volume       *prometheus.CounterVec
	fees         *prometheus.CounterVec
	claims       *prometheus.CounterVec
}

// Ledger returns the lazily-initialised ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "ledger",
				Name:      "calls_total",
				Help:      "Ledger calls segmented by call name and outcome.",
			}, []string{"call", "outcome"}),
			callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "padipay",
				Subsystem: "ledger",
				Name:      "call_duration_seconds",
				Help:      "Latency of ledger calls including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"call"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "padipay",
				Subsystem: "ledger",
				Name:      "height",
				Help:      "Height of the last committed ledger call.",
			}),
			payments: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "payments",
				Name:      "sent_total",
				Help:      "Payments sent segmented by asset and delivery mode.",
			}, []string{"asset", "mode"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "payments",
				Name:      "volume_total",
				Help:      "Gross payment volume in base units segmented by asset.",
			}, []string{"asset"}),
			fees: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "payments",
				Name:      "fees_total",
				Help:      "Fees collected in base units segmented by asset.",
			}, []string{"asset"}),
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "padipay",
				Subsystem: "escrow",
				Name:      "claims_total",
				Help:      "Escrow claims segmented by asset.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.calls,
			ledgerRegistry.callDuration,
			ledgerRegistry.height,
			ledgerRegistry.payments,
			ledgerRegistry.volume,
			ledgerRegistry.fees,
			ledgerRegistry.claims,
		)
	})
	return ledgerRegistry
}

// ObserveCall records a ledger call outcome and latency.
func (m *LedgerMetrics) ObserveCall(call string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "committed"
	if err != nil {
		outcome = "rolled_back"
	}
	m.calls.WithLabelValues(call, outcome).Inc()
	m.callDuration.WithLabelValues(call).Observe(duration.Seconds())
}

// SetHeight publishes the committed height.
func (m *LedgerMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

// RecordPayment counts a sent payment.
func (m *LedgerMetrics) RecordPayment(asset string, escrowed bool, gross, fee *big.Int) {
	if m == nil {
		return
	}
	mode := "delivered"
	if escrowed {
		mode = "escrowed"
	}
	label := labelAsset(asset)
	m.payments.WithLabelValues(label, mode).Inc()
	m.volume.WithLabelValues(label).Add(bigToFloat(gross))
	m.fees.WithLabelValues(label).Add(bigToFloat(fee))
}

// RecordClaim counts a claimed escrow balance.
func (m *LedgerMetrics) RecordClaim(asset string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(labelAsset(asset)).Inc()
}

func labelAsset(asset string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(asset))
	if trimmed == "" {
		return "UNKNOWN"
	}
	return trimmed
}

func bigToFloat(value *big.Int) float64 {
	if value == nil || value.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Float).SetInt(value).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
