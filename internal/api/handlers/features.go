package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/assistant-bot/internal/api/dto"
	"github.com/unifiedui/assistant-bot/internal/services/features"
)

// FeaturesHandler exposes the feature registry.
type FeaturesHandler struct {
	registry *features.Registry
}

// NewFeaturesHandler creates a new FeaturesHandler.
func NewFeaturesHandler(registry *features.Registry) *FeaturesHandler {
	return &FeaturesHandler{registry: registry}
}

// ListFeatures handles GET /features.
// @Summary List features
// @Description Returns every registered feature with its activation state
// @Tags Features
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ListFeaturesResponse "Registered features"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /api/v1/assistant-bot/features [get]
func (h *FeaturesHandler) ListFeatures(c *gin.Context) {
	all := h.registry.All()
	response := dto.ListFeaturesResponse{
		Features:     make([]dto.FeatureResponse, 0, len(all)),
		ActiveGroups: h.registry.ActiveGroups(),
	}

	for _, d := range all {
		response.Features = append(response.Features, dto.FeatureResponse{
			Name:        d.Name,
			Group:       d.Group,
			Kind:        string(d.Kind),
			Triggers:    d.Triggers,
			Help:        d.Help,
			Advanced:    d.Tier == features.TierAdvanced,
			DirectOnly:  d.DirectOnly,
			NeedsAccess: d.NeedsAccess,
			Active:      h.registry.IsActive(d.Group),
		})
	}

	c.JSON(http.StatusOK, response)
}
