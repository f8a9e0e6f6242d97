package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/assistant-bot/internal/api/dto"
	"github.com/unifiedui/assistant-bot/internal/api/handlers"
	"github.com/unifiedui/assistant-bot/internal/mocks"
	"github.com/unifiedui/assistant-bot/internal/testutils"
)

func newHealthRouter(cacheErr, docDBErr error) (*mocks.MockCacheClient, *mocks.MockDocDBClient, *handlers.HealthHandler) {
	mockCache := new(mocks.MockCacheClient)
	mockDocDB := mocks.NewMockDocDBClient()
	mockCache.On("Ping", mock.Anything).Return(cacheErr)
	mockDocDB.On("Ping", mock.Anything).Return(docDBErr)

	handler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"cache": mockCache,
		"docdb": mockDocDB,
	})
	return mockCache, mockDocDB, handler
}

func TestHealthHandler_Health_AllHealthy(t *testing.T) {
	mockCache, mockDocDB, handler := newHealthRouter(nil, nil)
	router := testutils.SetupTestRouter()
	router.GET("/health", handler.Health)

	w := testutils.PerformRequest(router, "GET", "/health", nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)
	var response dto.HealthResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "healthy", response.Components["cache"])
	assert.Equal(t, "healthy", response.Components["docdb"])
	mockCache.AssertExpectations(t)
	mockDocDB.AssertExpectations(t)
}

func TestHealthHandler_Health_CacheUnhealthy(t *testing.T) {
	_, _, handler := newHealthRouter(assert.AnError, nil)
	router := testutils.SetupTestRouter()
	router.GET("/health", handler.Health)

	w := testutils.PerformRequest(router, "GET", "/health", nil, nil)

	testutils.AssertStatusCode(t, http.StatusServiceUnavailable, w)
	var response dto.HealthResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "unhealthy", response.Status)
	assert.Equal(t, "unhealthy", response.Components["cache"])
	assert.Equal(t, "healthy", response.Components["docdb"])
}

func TestHealthHandler_Health_NilComponentsIgnored(t *testing.T) {
	handler := handlers.NewHealthHandler(map[string]handlers.Pinger{"cache": nil})
	router := testutils.SetupTestRouter()
	router.GET("/health", handler.Health)

	w := testutils.PerformRequest(router, "GET", "/health", nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)
}

func TestHealthHandler_Ready(t *testing.T) {
	_, _, handler := newHealthRouter(nil, nil)
	router := testutils.SetupTestRouter()
	router.GET("/ready", handler.Ready)

	w := testutils.PerformRequest(router, "GET", "/ready", nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)
}

func TestHealthHandler_Ready_DocDBDown(t *testing.T) {
	_, _, handler := newHealthRouter(nil, assert.AnError)
	router := testutils.SetupTestRouter()
	router.GET("/ready", handler.Ready)

	w := testutils.PerformRequest(router, "GET", "/ready", nil, nil)

	testutils.AssertStatusCode(t, http.StatusServiceUnavailable, w)
	var response map[string]string
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "docdb unavailable", response["reason"])
}

func TestHealthHandler_Live(t *testing.T) {
	handler := handlers.NewHealthHandler(nil)
	router := testutils.SetupTestRouter()
	router.GET("/live", handler.Live)

	w := testutils.PerformRequest(router, "GET", "/live", nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)
}
