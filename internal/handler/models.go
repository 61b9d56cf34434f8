package handler

import (
	"github.com/blues/tracker/internal/model"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// ContentRequest 评论与聊天消息
type ContentRequest struct {
	Content string `json:"content" binding:"required"`
}

// MemberRoleRequest 修改成员角色
type MemberRoleRequest struct {
	Role model.TeamRole `json:"role" binding:"required"`
}

// RespondInvitationRequest 处理邀请
type RespondInvitationRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// CountResponse 计数响应
type CountResponse struct {
	Count int64 `json:"count"`
}
