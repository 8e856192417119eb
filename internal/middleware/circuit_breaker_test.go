package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breakerRouter(cb *CircuitBreaker, status *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/offer", CircuitBreakerMiddleware(cb), func(c *gin.Context) {
		c.Status(*status)
	})
	return router
}

func hit(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/offer", nil))
	return w
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(3, 1, time.Minute)
	status := http.StatusBadGateway
	router := breakerRouter(cb, &status)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusBadGateway, hit(router).Code)
	}
	require.Equal(t, CircuitOpen, cb.State())

	// Open circuit sheds load with the retry envelope.
	w := hit(router)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "CIRCUIT_OPEN")
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(2, 1, time.Minute)
	status := http.StatusBadRequest
	router := breakerRouter(cb, &status)

	for i := 0; i < 5; i++ {
		hit(router)
	}
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, 2, 10*time.Millisecond)
	status := http.StatusInternalServerError
	router := breakerRouter(cb, &status)

	hit(router)
	require.Equal(t, CircuitOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// First probe passes through and succeeds.
	status = http.StatusOK
	assert.Equal(t, http.StatusOK, hit(router).Code)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// Second success closes the circuit.
	hit(router)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, 2, 10*time.Millisecond)
	status := http.StatusBadGateway
	router := breakerRouter(cb, &status)

	hit(router)
	require.Equal(t, CircuitOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// Probe fails, circuit re-opens immediately.
	hit(router)
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestBreakerReportsStateChanges(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(1, 1, time.Minute)
	var transitions []string
	cb.OnStateChange = func(from, to CircuitState) {
		transitions = append(transitions, from.String()+">"+to.String())
	}

	cb.RecordFailure()
	require.Equal(t, []string{"closed>open"}, transitions)
}
