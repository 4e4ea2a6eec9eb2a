package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/opuofficial/chat-application-server/internal/auth"
	"github.com/opuofficial/chat-application-server/internal/configuration"
)

func UserRouters(router *gin.Engine, container *configuration.Container) {
	userRoute := router.Group("/api/user")
	userRoute.Use(auth.Middleware(container.Verifier))
	{
		userRoute.GET("/conversations", container.UserHandler.GetConversations)
		userRoute.GET("/messages/:recipientId", container.UserHandler.GetMessages)
		userRoute.GET("/profile/:userId", container.UserHandler.GetProfile)
		userRoute.GET("/search", container.UserHandler.SearchUsers)
	}
}
