package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthControllerI interface {
	IsRunning(ctx *gin.Context)
}

type healthController struct {
	startedAt time.Time
}

var HealthController HealthControllerI = &healthController{startedAt: time.Now()}

// IsRunning answers the keep-alive ping of the hosting platform
func (h *healthController) IsRunning(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Server is running",
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}
