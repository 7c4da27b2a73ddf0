package handlers

import (
	"errors"
	"net/http"

	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// SettingsHandler holds the store settings service.
type SettingsHandler struct {
	settingsService services.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(ss services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: ss}
}

// GetStoreSettings returns the single store settings row, or 404 when none
// has been saved yet.
func (h *SettingsHandler) GetStoreSettings(c *gin.Context) {
	settings, err := h.settingsService.GetStoreSettings(c.Request.Context())
	if errors.Is(err, services.ErrStoreSettingsNotFound) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Store settings are not configured.", err.Error()))
		return
	}
	if err != nil {
		respondServiceError(c, err, "Failed to fetch store settings.")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateStoreSettings creates or replaces the store settings.
func (h *SettingsHandler) UpdateStoreSettings(c *gin.Context) {
	var req services.UpdateStoreSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateStoreSettings")
		return
	}

	settings, err := h.settingsService.UpdateStoreSettings(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Failed to save store settings.")
		return
	}
	c.JSON(http.StatusOK, settings)
}
