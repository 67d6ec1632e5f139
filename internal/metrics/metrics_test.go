package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveToolCall(t *testing.T) {
	before := testutil.ToFloat64(ToolCallsTotal.WithLabelValues("metrics_test_tool", "ok"))

	ObserveToolCall("metrics_test_tool", "ok", 15*time.Millisecond)
	ObserveToolCall("metrics_test_tool", "ok", 5*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(ToolCallsTotal.WithLabelValues("metrics_test_tool", "ok")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	counter := httpRequestsTotal.WithLabelValues("204", http.MethodGet, "/items/:id")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveToolCall("metrics_handler_tool", "ValidationError", time.Millisecond)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `store_tool_calls_total{kind="ValidationError",tool="metrics_handler_tool"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
