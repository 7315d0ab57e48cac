package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat_relay/internal/service"
	pkgerrors "chat_relay/pkg/errors"
	"chat_relay/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

type CreateChatRequest struct {
	BookingID    string   `json:"bookingId" binding:"required"`
	Participants []string `json:"participants" binding:"required"`
}

// CreateChat is idempotent: posting an existing bookingId returns the chat
// created the first time.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chatService.CreateChat(c.Request.Context(), req.BookingID, req.Participants)
	if err != nil {
		c.JSON(pkgerrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, chat)
}

func (h *ChatHandler) GetUserChats(c *gin.Context) {
	userID := c.Param("userId")

	chats, err := h.chatService.GetUserChats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(pkgerrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, chats)
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	chatID := c.Param("chatId")

	messages, err := h.chatService.GetMessages(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(pkgerrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	list, err := h.chatService.ListChats(c.Request.Context(), page, perPage)
	if err != nil {
		c.JSON(pkgerrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *ChatHandler) GetChatDetails(c *gin.Context) {
	bookingID := c.Param("bookingId")

	details, err := h.chatService.GetChatDetails(c.Request.Context(), bookingID)
	if err != nil {
		c.JSON(pkgerrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, details)
}
