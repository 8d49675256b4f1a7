// Package metrics holds the Prometheus instruments for key registration,
// encryption and decryption.
package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation labels
const (
	OpChallenge = "challenge"
	OpRegister  = "register"
	OpEncrypt   = "encrypt"
	OpDecrypt   = "decrypt"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is a set of instruments registered on one registry.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	keysRegistered    prometheus.Counter
	errorsTotal       *prometheus.CounterVec
	messageBytes      *prometheus.HistogramVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messagecrypto_operations_total",
				Help: "Total number of protocol operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "messagecrypto_operation_duration_seconds",
				Help:    "Protocol operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		keysRegistered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "messagecrypto_keys_registered_total",
				Help: "Total number of public keys registered",
			},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messagecrypto_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type"},
		),
		messageBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "messagecrypto_message_bytes",
				Help:    "Plaintext size in bytes",
				Buckets: prometheus.ExponentialBuckets(16, 4, 6),
			},
			[]string{"operation"},
		),
	}
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the instruments registered on the default Prometheus
// registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Observe records one operation that started at start and ended with err.
// A nil receiver records nothing.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.operationsTotal.WithLabelValues(op, outcome).Inc()
	m.operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveMessage records the plaintext size of an encrypt or decrypt.
func (m *Metrics) ObserveMessage(op string, size int) {
	if m == nil {
		return
	}
	m.messageBytes.WithLabelValues(op).Observe(float64(size))
}

// KeyRegistered counts a stored public key.
func (m *Metrics) KeyRegistered() {
	if m == nil {
		return
	}
	m.keysRegistered.Inc()
}

// Error counts an error of the given type.
func (m *Metrics) Error(errType string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(errType).Inc()
}

// OperationsTotal returns the operations counter for op and outcome.
func (m *Metrics) OperationsTotal(op, outcome string) prometheus.Counter {
	return m.operationsTotal.WithLabelValues(op, outcome)
}

// KeysRegisteredTotal returns the registration counter.
func (m *Metrics) KeysRegisteredTotal() prometheus.Counter {
	return m.keysRegistered
}

// ErrorsTotal returns the error counter for errType.
func (m *Metrics) ErrorsTotal(errType string) prometheus.Counter {
	return m.errorsTotal.WithLabelValues(errType)
}

// ErrorKind names a sentinel error for the errors_total type label.
type ErrorKind struct {
	Name string
	Err  error
}

// ErrorType returns the name of the first kind err matches, or "other".
func ErrorType(err error, kinds ...ErrorKind) string {
	for _, k := range kinds {
		if errors.Is(err, k.Err) {
			return k.Name
		}
	}
	return "other"
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
