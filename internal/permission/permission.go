// Package permission 团队角色权限判定
package permission

import (
	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
)

// roleRank 角色等级，数值越大权限越高
var roleRank = map[model.TeamRole]int{
	model.TeamRoleAdmin:  3,
	model.TeamRoleEditor: 2,
	model.TeamRoleMember: 2,
	model.TeamRoleViewer: 1,
}

// Rank 返回角色等级，未知角色为 0
func Rank(role model.TeamRole) int {
	return roleRank[role]
}

// HasPermission 判断用户在团队中是否拥有不低于 required 的角色。
// 团队创建者（AdminId）无论成员列表如何都视为管理员；不在成员列表中的用户一律拒绝。
func HasPermission(team *model.TeamModel, userId string, required model.TeamRole) bool {
	if team == nil || userId == "" {
		return false
	}
	if userId == team.AdminId {
		return true
	}
	member, ok := team.FindMember(userId)
	if !ok {
		return false
	}
	return Rank(member.Role) >= Rank(required)
}

// IsAdmin 管理员判定：role==admin 或者是团队创建者
func IsAdmin(team *model.TeamModel, userId string) bool {
	return HasPermission(team, userId, model.TeamRoleAdmin)
}

// IsMember 是否属于团队（任意角色）
func IsMember(team *model.TeamModel, userId string) bool {
	return HasPermission(team, userId, model.TeamRoleViewer)
}

// Require 权限不足时返回 PermissionDenied
func Require(team *model.TeamModel, userId string, required model.TeamRole) error {
	if HasPermission(team, userId, required) {
		return nil
	}
	teamName := ""
	if team != nil {
		teamName = team.Name
	}
	return apperr.PermissionDenied("用户 %s 在团队 %q 中需要 %s 权限", userId, teamName, required)
}
