package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/opuofficial/chat-application-server/internal/configuration"
	"github.com/opuofficial/chat-application-server/internal/handler"
	"github.com/opuofficial/chat-application-server/internal/hub"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(router *gin.Engine, container *configuration.Container) {
	monitorService := hub.NewMonitorService(container.Hub)
	monitorHandler := handler.NewMonitorHandler(monitorService)

	monitorGroup := router.Group("/api/monitor")
	{
		monitorGroup.GET("/stats", monitorHandler.GetHubStats)
	}
}
