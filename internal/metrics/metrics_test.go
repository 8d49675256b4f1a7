package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe(OpEncrypt, time.Now(), nil)
	m.Observe(OpEncrypt, time.Now(), nil)
	m.Observe(OpDecrypt, time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpEncrypt, OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpDecrypt, OutcomeFailure)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpDecrypt, OutcomeSuccess)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.operationDuration))
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.KeyRegistered()
	m.Error("authentication")
	m.Error("authentication")
	m.ObserveMessage(OpEncrypt, 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.keysRegistered))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("authentication")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.messageBytes))

	count, err := testutil.GatherAndCount(reg, "messagecrypto_keys_registered_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe(OpEncrypt, time.Now(), nil)
		m.ObserveMessage(OpEncrypt, 1)
		m.KeyRegistered()
		m.Error("x")
	})
}

func TestErrorType(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	kinds := []ErrorKind{{"a", errA}, {"b", errB}}

	assert.Equal(t, "a", ErrorType(fmt.Errorf("wrapped: %w", errA), kinds...))
	assert.Equal(t, "b", ErrorType(errB, kinds...))
	assert.Equal(t, "other", ErrorType(errors.New("c"), kinds...))
	assert.Equal(t, "other", ErrorType(errA))
}

func TestDefaultAndHandler(t *testing.T) {
	m := Default()
	require.NotNil(t, m)
	assert.Same(t, m, Default())

	m.KeyRegistered()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "messagecrypto_keys_registered_total")
}
