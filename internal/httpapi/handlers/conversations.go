package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/common"
)

type createConversationReq struct {
	UserID uint64 `json:"user_id" binding:"required"`
}

// CreateConversation is get-or-create: repeated calls for the same pair, in
// either order, return the same conversation.
func (h *Handler) CreateConversation(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.FailFields(c, http.StatusUnprocessableEntity, 42200, "validation failed",
			[]chat.FieldError{{Field: "user_id", Message: "user_id is required"}})
		return
	}

	detail, err := h.ChatSvc.GetOrCreateConversation(c.Request.Context(), uid, req.UserID)
	if err != nil {
		failChatError(c, "CreateConversation", uid, err)
		return
	}
	common.Created(c, detail)
}

func (h *Handler) ListConversations(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	perPage, _ := strconv.Atoi(c.Query("per_page"))
	items, next, err := h.ChatSvc.GetUserConversations(
		c.Request.Context(), uid, c.Query("search"), perPage, c.Query("cursor"))
	if err != nil {
		failChatError(c, "ListConversations", uid, err)
		return
	}

	common.OK(c, gin.H{
		"data": items,
		"pagination": gin.H{
			"next_cursor": next,
		},
	})
}

type markReadReq struct {
	MessageID *uint64 `json:"message_id"`
}

func (h *Handler) MarkConversationRead(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid conversation id")
		return
	}

	var req markReadReq
	_ = c.ShouldBindJSON(&req) // empty body means "read everything"

	unread, err := h.ChatSvc.MarkAsRead(c.Request.Context(), chat.MarkReadInput{
		ConversationID: convID,
		UserID:         uid,
		MessageID:      req.MessageID,
	})
	if err != nil {
		failChatError(c, "MarkConversationRead", uid, err)
		return
	}

	common.OK(c, gin.H{"unread_count": unread})
}
