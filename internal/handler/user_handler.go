package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opuofficial/chat-application-server/internal/auth"
	"github.com/opuofficial/chat-application-server/internal/service"
)

type UserHandler interface {
	GetConversations(c *gin.Context)
	GetMessages(c *gin.Context)
	GetProfile(c *gin.Context)
	SearchUsers(c *gin.Context)
}

type userHandler struct {
	service service.ChatService
}

func NewUserHandler(service service.ChatService) UserHandler {
	return &userHandler{
		service: service,
	}
}

func (h *userHandler) GetConversations(c *gin.Context) {
	userID := auth.UserID(c)

	conversations, err := h.service.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, conversations)
}

func (h *userHandler) GetMessages(c *gin.Context) {
	userID := auth.UserID(c)
	recipientID := c.Param("recipientId")
	if recipientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "recipientId is required"})
		return
	}

	messages, err := h.service.GetHistory(c.Request.Context(), userID, recipientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"messages": messages,
	})
}

func (h *userHandler) GetProfile(c *gin.Context) {
	userID := c.Param("userId")

	profile, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profile,
	})
}

func (h *userHandler) SearchUsers(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Search keyword is required."})
		return
	}

	users, err := h.service.SearchUsers(c.Request.Context(), keyword, auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error searching users."})
		return
	}

	if len(users) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No users found."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Users found.",
		"users":   users,
	})
}
