package handlers_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/assistant-bot/internal/api/dto"
	"github.com/unifiedui/assistant-bot/internal/api/handlers"
	"github.com/unifiedui/assistant-bot/internal/config"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/mocks"
	"github.com/unifiedui/assistant-bot/internal/services/access"
	"github.com/unifiedui/assistant-bot/internal/services/features"
	"github.com/unifiedui/assistant-bot/internal/testutils"
)

const alice = "@alice-finances.gouv.fr:agent.finances.tchap.gouv.fr"

type sessionCount int

func (s sessionCount) Count() int { return int(s) }

func newAllowListRouter(t *testing.T, store *mocks.MockUsersCollection) *gin.Engine {
	t.Helper()
	gate, err := access.NewGate(store, access.Config{
		Enabled:        true,
		TTL:            time.Hour,
		AllowedDomains: []string{"finances.gouv.fr"},
		DomainPattern:  config.DefaultDomainPattern,
	})
	require.NoError(t, err)

	handler := handlers.NewAllowListHandler(gate, sessionCount(3))
	router := testutils.SetupTestRouter()
	router.GET("/allowlist", handler.GetStats)
	router.POST("/allowlist/refresh", handler.Refresh)
	router.GET("/allowlist/users/:userId", handler.GetUser)
	return router
}

func TestAllowListHandler_RefreshAndStats(t *testing.T) {
	store := new(mocks.MockUsersCollection)
	store.On("FetchRecords", mock.Anything, mock.Anything).Return([]*models.AllowListEntry{
		{ID: "1", User: alice, Status: models.StatusAllowed, QuestionCount: 12},
		{ID: "2", User: "@bob-interieur.gouv.fr:agent.tchap.gouv.fr", Status: models.StatusPending},
	}, nil)
	router := newAllowListRouter(t, store)

	w := testutils.PerformRequest(router, "POST", "/allowlist/refresh", nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)
	var stats dto.AllowListStatsResponse
	testutils.ParseJSONResponse(t, w, &stats)
	assert.True(t, stats.Enabled)
	assert.Equal(t, 1, stats.Allowed)
	assert.Equal(t, 1, stats.NotAllowed)
	assert.Equal(t, 3, stats.Sessions)
	assert.False(t, stats.RefreshedAt.IsZero())

	w = testutils.PerformRequest(router, "GET", "/allowlist", nil, nil)
	testutils.AssertStatusCode(t, http.StatusOK, w)
	store.AssertNumberOfCalls(t, "FetchRecords", 1)
}

func TestAllowListHandler_RefreshFailure(t *testing.T) {
	store := new(mocks.MockUsersCollection)
	store.On("FetchRecords", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	router := newAllowListRouter(t, store)

	w := testutils.PerformRequest(router, "POST", "/allowlist/refresh", nil, nil)

	testutils.AssertStatusCode(t, http.StatusBadGateway, w)
	var response dto.ErrorResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "UPSTREAM_ERROR", response.Code)
}

func TestAllowListHandler_GetUser(t *testing.T) {
	store := new(mocks.MockUsersCollection)
	store.On("FetchRecords", mock.Anything, mock.Anything).Return([]*models.AllowListEntry{
		{ID: "1", User: alice, Status: models.StatusAllowed, Domain: "finances.gouv.fr", QuestionCount: 12},
	}, nil)
	router := newAllowListRouter(t, store)
	testutils.PerformRequest(router, "POST", "/allowlist/refresh", nil, nil)

	w := testutils.PerformRequest(router, "GET", "/allowlist/users/"+url.PathEscape(alice), nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)
	var response dto.UserStatusResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, alice, response.User)
	assert.True(t, response.Allowed)
	assert.Equal(t, "allowed", response.Status)
	assert.Equal(t, 12, response.QuestionCount)
}

func TestAllowListHandler_GetUser_Unknown(t *testing.T) {
	router := newAllowListRouter(t, new(mocks.MockUsersCollection))

	w := testutils.PerformRequest(router, "GET", "/allowlist/users/"+url.PathEscape("@nobody-x.fr:tchap.gouv.fr"), nil, nil)

	testutils.AssertStatusCode(t, http.StatusNotFound, w)
}

func TestAllowListHandler_GetUser_Invalid(t *testing.T) {
	router := newAllowListRouter(t, new(mocks.MockUsersCollection))

	w := testutils.PerformRequest(router, "GET", "/allowlist/users/not-a-user", nil, nil)

	testutils.AssertStatusCode(t, http.StatusBadRequest, w)
}

func TestFeaturesHandler_ListFeatures(t *testing.T) {
	registry := features.NewRegistry()
	noop := func(ctx context.Context, req *features.Request) error { return nil }
	registry.Register(features.Descriptor{Name: "help", Group: "basic", Kind: models.KindText, Triggers: []string{"aide"}, Help: "aide", Handler: noop})
	registry.Register(features.Descriptor{Name: "heure", Group: "utils", Kind: models.KindText, Triggers: []string{"heure"}, Tier: features.TierAdvanced, Handler: noop})
	registry.ActivateGroup("basic")

	router := testutils.SetupTestRouter()
	router.GET("/features", handlers.NewFeaturesHandler(registry).ListFeatures)

	w := testutils.PerformRequest(router, "GET", "/features", nil, nil)

	testutils.AssertStatusCode(t, http.StatusOK, w)
	var response dto.ListFeaturesResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, []string{"basic"}, response.ActiveGroups)
	require.Len(t, response.Features, 2)
	assert.Equal(t, "help", response.Features[0].Name)
	assert.True(t, response.Features[0].Active)
	assert.False(t, response.Features[1].Active)
	assert.True(t, response.Features[1].Advanced)
}
