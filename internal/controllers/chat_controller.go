package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/middleware"
	"github.com/utleieskade/backend/internal/services"
)

type ChatController struct {
	chat *services.ChatService
}

func NewChatController(chat *services.ChatService) *ChatController {
	return &ChatController{chat: chat}
}

type StartConversationRequest struct {
	ParticipantID string `json:"participantId" binding:"required"`
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

func (chc *ChatController) Conversations(c *gin.Context) {
	convs, err := chc.chat.Conversations(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", convs)
}

func (chc *ChatController) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if !bindJSON(c, &req) {
		return
	}
	conv, err := chc.chat.Start(c.Request.Context(), middleware.CurrentUserID(c), req.ParticipantID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", conv)
}

func (chc *ChatController) Messages(c *gin.Context) {
	page, err := chc.chat.Messages(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

func (chc *ChatController) Send(c *gin.Context) {
	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := chc.chat.Send(c.Request.Context(), middleware.CurrentUserID(c), req.ReceiverID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Message sent", msg)
}

func (chc *ChatController) MarkRead(c *gin.Context) {
	count, err := chc.chat.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", gin.H{"updated": count})
}
