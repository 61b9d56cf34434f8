package handler

import (
	"net/http"

	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/logic"
	"github.com/blues/tracker/internal/model"
	"github.com/gin-gonic/gin"
)

type TeamHandler struct {
	teamLogic *logic.TeamLogic
	auth      auth.Provider
}

func NewTeamHandler(teamLogic *logic.TeamLogic, provider auth.Provider) *TeamHandler {
	return &TeamHandler{teamLogic: teamLogic, auth: provider}
}

// CreateTeam 创建团队
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	var input logic.TeamInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	team, err := h.teamLogic.CreateTeam(c.Request.Context(), s, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "团队创建成功", team)
}

// ListTeams 当前用户的团队
func (h *TeamHandler) ListTeams(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	teams, err := h.teamLogic.ListTeams(c.Request.Context(), s)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", teams)
}

// GetTeam 团队详情
func (h *TeamHandler) GetTeam(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	team, err := h.teamLogic.GetTeam(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", team)
}

// UpdateTeam 更新团队
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	var patch logic.TeamPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	team, err := h.teamLogic.UpdateTeam(c.Request.Context(), s, c.Param("id"), patch)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "团队更新成功", team)
}

// DeleteTeam 删除团队
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	if err := h.teamLogic.DeleteTeam(c.Request.Context(), s, c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "团队已删除", nil)
}

// AddMember 添加成员
func (h *TeamHandler) AddMember(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	var member model.TeamMember
	if err := c.ShouldBindJSON(&member); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	team, err := h.teamLogic.AddMember(c.Request.Context(), s, c.Param("id"), member)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "成员已添加", team)
}

// UpdateMemberRole 修改成员角色
func (h *TeamHandler) UpdateMemberRole(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	var req MemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	team, err := h.teamLogic.UpdateMemberRole(c.Request.Context(), s, c.Param("id"), c.Param("uid"), req.Role)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "角色已更新", team)
}

// RemoveMember 移除成员
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	team, err := h.teamLogic.RemoveMember(c.Request.Context(), s, c.Param("id"), c.Param("uid"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "成员已移除", team)
}

// InviteMember 邀请成员
func (h *TeamHandler) InviteMember(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	var input logic.InviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := h.teamLogic.InviteMember(c.Request.Context(), s, c.Param("id"), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "邀请已发送", inv)
}

// ListInvitations 待处理的邀请
func (h *TeamHandler) ListInvitations(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	invs, err := h.teamLogic.ListInvitations(c.Request.Context(), s)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", invs)
}

// RespondInvitation 接受或拒绝邀请
func (h *TeamHandler) RespondInvitation(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	var req RespondInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := h.teamLogic.RespondInvitation(c.Request.Context(), s, c.Param("id"), *req.Accept)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "邀请已处理", inv)
}
