package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/safar/store-mcp/internal/analytics"
	"github.com/safar/store-mcp/internal/catalog"
	"github.com/safar/store-mcp/internal/config"
	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/export"
	"github.com/safar/store-mcp/internal/health"
	"github.com/safar/store-mcp/internal/purchase"
	"github.com/safar/store-mcp/internal/recommend"
	"github.com/safar/store-mcp/internal/store"
	"github.com/safar/store-mcp/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool                  `json:"success"`
	Data    map[string]any        `json:"data"`
	Error   *appErrors.Descriptor `json:"error"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	st := store.NewMemory()

	d := tools.NewDispatcher(logger)
	require.NoError(t, tools.RegisterAll(d, tools.Services{
		Catalog:   catalog.NewService(st, logger),
		Purchases: purchase.NewService(st, logger),
		Recommender: recommend.NewEngine(st, config.RecommendationConfig{
			CategoryWeight: 3, PriceWeight: 1, StockBonus: 0.5, DefaultLimit: 10, MaxLimit: 100,
		}, logger),
		Analytics: analytics.NewService(st, logger),
		Exporter:  export.NewExporter(st, "", logger),
	}))

	h, err := health.NewHealthHandler(&config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}}, st)
	require.NoError(t, err)

	return NewRouter(d, h, logger)
}

func call(t *testing.T, router *gin.Engine, tool, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/"+tool, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var out envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return resp, out
}

func TestListTools(t *testing.T) {
	router := setupRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil))

	require.Equal(t, http.StatusOK, resp.Code)

	var out struct {
		Tools []tools.Definition `json:"tools"`
		Count int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, len(out.Tools), out.Count)
	assert.NotEmpty(t, out.Tools)
	assert.NotEmpty(t, resp.Header().Get("X-Request-ID"))
}

func TestPurchaseOverHTTP(t *testing.T) {
	router := setupRouter(t)

	resp, user := call(t, router, "create_user", `{"name":"Ana","email":"ana@example.com","age":29}`)
	require.Equal(t, http.StatusOK, resp.Code)
	userID := user.Data["id"].(string)

	resp, product := call(t, router, "create_product", `{"name":"Calça Jeans","price":79.90,"stock_quantity":10}`)
	require.Equal(t, http.StatusOK, resp.Code)
	productID := product.Data["id"].(string)
	assert.Equal(t, "79.9", product.Data["price"])

	payload, err := json.Marshal(map[string]any{"user_id": userID, "product_id": productID, "quantity": 3})
	require.NoError(t, err)

	resp, receipt := call(t, router, "register_purchase", string(payload))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "239.7", receipt.Data["total"])
	assert.Equal(t, float64(7), receipt.Data["remaining_stock"])

	payload, err = json.Marshal(map[string]any{"user_id": userID, "product_id": productID, "quantity": 11})
	require.NoError(t, err)

	resp, rejected := call(t, router, "register_purchase", string(payload))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.False(t, rejected.Success)
	assert.Equal(t, appErrors.ErrCodeInsufficientStock, rejected.Error.Kind)
	assert.Equal(t, "Insufficient stock for product 'Calça Jeans': requested 11, available 7", rejected.Error.Message)
}

func TestCallToolErrors(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name   string
		tool   string
		body   string
		status int
		kind   string
	}{
		{"unknown tool", "fly", `{}`, http.StatusBadRequest, appErrors.ErrCodeValidation},
		{"malformed body", "list_users", `[1,2]`, http.StatusBadRequest, appErrors.ErrCodeValidation},
		{"missing user", "get_user", `{"user_id":"nobody"}`, http.StatusNotFound, appErrors.ErrCodeNotFound},
		{"bad argument", "create_product", `{"name":"Saia","price":"cheap"}`, http.StatusBadRequest, appErrors.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := call(t, router, tt.tool, tt.body)

			assert.Equal(t, tt.status, resp.Code)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.kind, out.Error.Kind)
		})
	}
}

func TestEmptyBodyMeansNoArguments(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/list_users", bytes.NewReader(nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, "abc-123", resp.Header().Get("X-Request-ID"))
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	router := setupRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	// one tool call so the tool counters have a sample
	call(t, router, "list_users", `{}`)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil).WithContext(context.Background()))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "store_tool_calls_total")
	assert.Contains(t, resp.Body.String(), "http_requests_total")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(appErrors.ErrCodeStoreUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(appErrors.ErrCodeInternal))
	assert.Equal(t, http.StatusInternalServerError, StatusFor("SomethingElse"))
}
