package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/services"
)

type SettingsController struct {
	settings *services.SettingsService
}

func NewSettingsController(settings *services.SettingsService) *SettingsController {
	return &SettingsController{settings: settings}
}

// Get returns the platform settings, creating defaults on first access.
func (sc *SettingsController) Get(c *gin.Context) {
	settings, err := sc.settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", settings)
}

func (sc *SettingsController) Update(c *gin.Context) {
	var req services.SettingsUpdate
	if !bindJSON(c, &req) {
		return
	}
	actor := actorFrom(c)
	logEntry := logger.WithUser(actor.ID)
	logEntry.Debug("Settings update received")

	settings, err := sc.settings.Update(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	logEntry.Info("Platform settings updated")
	respondSuccess(c, http.StatusOK, "Settings updated", settings)
}
