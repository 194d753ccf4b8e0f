package handler

import (
	"net/http"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/conversation"

	"github.com/gin-gonic/gin"
)

// newConversation is returned by ConversationWith when the users have not
// talked yet.
const newConversation = "new"

type createConversationRequest struct {
	UserID string `json:"user_id"`
}

type conversationIDResponse struct {
	ConversationID string `json:"conversation_id"`
}

type markReadRequest struct {
	MessageIDs []string `json:"message_ids"`
}

type setTypingRequest struct {
	IsTyping *bool `json:"is_typing" binding:"required"`
}

func (h *Handler) CreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.Handle(c, apperrors.Wrap(err, apperrors.InvalidRequest, "malformed request body"))
		return
	}

	id, err := h.Conversations.CreateOrFindConversation(c.Request.Context(), currentUser(c).ID, req.UserID)
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.JSON(http.StatusOK, conversationIDResponse{ConversationID: id})
}

func (h *Handler) ListConversations(c *gin.Context) {
	summaries, err := h.Conversations.ListConversations(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *Handler) GetConversation(c *gin.Context) {
	view, err := h.Conversations.GetConversation(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) ConversationWith(c *gin.Context) {
	id, err := h.Conversations.FindDirectConversation(c.Request.Context(), currentUser(c).ID, c.Param("userId"))
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	if id == "" {
		id = newConversation
	}
	c.JSON(http.StatusOK, conversationIDResponse{ConversationID: id})
}

func (h *Handler) PostMessage(c *gin.Context) {
	var req conversation.PostMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.Handle(c, apperrors.Wrap(err, apperrors.InvalidRequest, "malformed request body"))
		return
	}

	result, err := h.Conversations.PostMessage(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.Handle(c, apperrors.Wrap(err, apperrors.InvalidRequest, "malformed request body"))
		return
	}

	receipts, err := h.Conversations.MarkRead(c.Request.Context(), currentUser(c).ID, c.Param("id"), req.MessageIDs)
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.JSON(http.StatusOK, receipts)
}

func (h *Handler) SetTyping(c *gin.Context) {
	var req setTypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.Handle(c, apperrors.Wrap(err, apperrors.InvalidRequest, "is_typing is required"))
		return
	}

	user := currentUser(c)
	conversationID := c.Param("id")
	if !h.requireParticipant(c, conversationID, user.ID) {
		return
	}

	if err := h.Presence.SetTyping(c.Request.Context(), user.ID, conversationID, *req.IsTyping, user.Profile.Snapshot()); err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetTyping(c *gin.Context) {
	conversationID := c.Param("id")
	if !h.requireParticipant(c, conversationID, currentUser(c).ID) {
		return
	}

	snapshot, err := h.Presence.Snapshot(c.Request.Context(), conversationID)
	if err != nil {
		h.errors.Handle(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) requireParticipant(c *gin.Context, conversationID, userID string) bool {
	ok, err := h.Conversations.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		h.errors.Handle(c, err)
		return false
	}
	if !ok {
		h.errors.Handle(c, apperrors.NewForbidden("not a participant of this conversation"))
		return false
	}
	return true
}
