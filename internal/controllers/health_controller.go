package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/db"
)

const Version = "1.0.0"

type HealthController struct {
	database *db.Database
}

func NewHealthController(database *db.Database) *HealthController {
	return &HealthController{database: database}
}

// Health pings the database; it answers 503 when the ping fails.
func (hc *HealthController) Health(c *gin.Context) {
	dbStatus := "ok"
	var dbError string

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := hc.database.Ping(ctx); err != nil {
		dbStatus = "error"
		dbError = err.Error()
	}

	overallStatus := "ok"
	statusCode := http.StatusOK
	if dbStatus != "ok" {
		overallStatus = "error"
		statusCode = http.StatusServiceUnavailable
	}

	database := gin.H{"status": dbStatus}
	if dbError != "" && !redactInternal {
		database["error"] = dbError
	}
	c.JSON(statusCode, gin.H{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
		"services":  gin.H{"database": database},
	})
}
