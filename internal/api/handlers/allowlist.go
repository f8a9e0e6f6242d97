package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/assistant-bot/internal/api/dto"
	"github.com/unifiedui/assistant-bot/internal/api/middleware"
	domainerrors "github.com/unifiedui/assistant-bot/internal/domain/errors"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/services/access"
)

// AllowList is the part of the access gate exposed to operators.
type AllowList interface {
	Stats() access.Stats
	Lookup(sender string) (models.AllowListEntry, bool)
	IsAllowed(ctx context.Context, sender string, refresh bool) (access.Decision, error)
	ForceRefresh(ctx context.Context) error
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Count() int
}

// AllowListHandler handles allow-list inspection endpoints.
type AllowListHandler struct {
	allowList AllowList
	sessions  SessionCounter
}

// NewAllowListHandler creates a new AllowListHandler.
func NewAllowListHandler(allowList AllowList, sessions SessionCounter) *AllowListHandler {
	return &AllowListHandler{
		allowList: allowList,
		sessions:  sessions,
	}
}

// GetStats handles GET /allowlist.
// @Summary Allow-list statistics
// @Description Returns the size and age of the cached allow-list snapshot
// @Tags AllowList
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AllowListStatsResponse "Snapshot statistics"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /api/v1/assistant-bot/allowlist [get]
func (h *AllowListHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats())
}

// Refresh handles POST /allowlist/refresh.
// @Summary Reload the allow-list
// @Description Reloads the allow-list from the document store, ignoring the TTL
// @Tags AllowList
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AllowListStatsResponse "Snapshot statistics"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 502 {object} dto.ErrorResponse "Document store unavailable"
// @Router /api/v1/assistant-bot/allowlist/refresh [post]
func (h *AllowListHandler) Refresh(c *gin.Context) {
	if err := h.allowList.ForceRefresh(c.Request.Context()); err != nil {
		middleware.HandleError(c, domainerrors.NewUpstreamError("allow-list", err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, h.stats())
}

// GetUser handles GET /allowlist/users/:userId.
// @Summary User access status
// @Description Returns the cached allow-list record and access decision of a Matrix user
// @Tags AllowList
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Matrix user id (URL encoded)"
// @Success 200 {object} dto.UserStatusResponse "Access status"
// @Failure 400 {object} dto.ErrorResponse "Invalid user id"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Unknown user"
// @Router /api/v1/assistant-bot/allowlist/users/{userId} [get]
func (h *AllowListHandler) GetUser(c *gin.Context) {
	userID := c.Param("userId")
	if !strings.HasPrefix(userID, "@") || !strings.Contains(userID, ":") {
		middleware.HandleError(c, domainerrors.NewValidationError("invalid Matrix user id", userID))
		return
	}

	record, known := h.allowList.Lookup(userID)
	if !known {
		middleware.HandleError(c, domainerrors.NewNotFoundError("allow-list user", userID))
		return
	}

	decision, err := h.allowList.IsAllowed(c.Request.Context(), userID, false)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserStatusResponse{
		User:          userID,
		Allowed:       decision.Allowed,
		Reason:        decision.Reason,
		Status:        string(record.Status),
		Domain:        record.Domain,
		QuestionCount: record.QuestionCount,
		LastActivity:  record.LastActivity,
	})
}

func (h *AllowListHandler) stats() dto.AllowListStatsResponse {
	stats := h.allowList.Stats()
	response := dto.AllowListStatsResponse{
		Enabled:     stats.Enabled,
		Allowed:     stats.Allowed,
		NotAllowed:  stats.NotAllowed,
		RefreshedAt: stats.RefreshedAt,
	}
	if h.sessions != nil {
		response.Sessions = h.sessions.Count()
	}
	return response
}
