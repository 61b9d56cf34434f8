package handler

import (
	"io"
	"net/http"

	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/logic"
	"github.com/gin-gonic/gin"
)

// CommentHandler 评论与聊天
type CommentHandler struct {
	commentLogic *logic.CommentLogic
	chatLogic    *logic.ChatLogic
	auth         auth.Provider
}

func NewCommentHandler(commentLogic *logic.CommentLogic, chatLogic *logic.ChatLogic, provider auth.Provider) *CommentHandler {
	return &CommentHandler{commentLogic: commentLogic, chatLogic: chatLogic, auth: provider}
}

// AddComment 发表评论
func (h *CommentHandler) AddComment(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.commentLogic.AddComment(c.Request.Context(), s, c.Param("id"), req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "评论已发布", result)
}

// ListComments 评论列表
func (h *CommentHandler) ListComments(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	comments, err := h.commentLogic.ListComments(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", comments)
}

// DeleteComment 删除评论
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	if err := h.commentLogic.DeleteComment(c.Request.Context(), s, c.Param("id"), c.Param("commentId")); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "评论已删除", nil)
}

// PostMessage 发送聊天消息
func (h *CommentHandler) PostMessage(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	msg, err := h.chatLogic.PostMessage(c.Request.Context(), s, c.Param("id"), req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "", msg)
}

// ListMessages 聊天记录
func (h *CommentHandler) ListMessages(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	msgs, err := h.chatLogic.ListMessages(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", msgs)
}

// StreamMessages 以 SSE 推送聊天记录
func (h *CommentHandler) StreamMessages(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ch, cancel, err := h.chatLogic.Subscribe(ctx, s, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msgs, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("chat", msgs)
			return true
		}
	})
}
