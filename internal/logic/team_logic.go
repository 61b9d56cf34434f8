package logic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/permission"
	"github.com/blues/tracker/internal/store"
	"gorm.io/datatypes"
)

// TeamInput 创建团队的参数
type TeamInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Email       string `json:"email"` // 创建者邮箱
}

// TeamPatch 团队部分更新
type TeamPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// InviteInput 邀请参数
type InviteInput struct {
	InviteeId    string         `json:"inviteeId"`
	InviteeName  string         `json:"inviteeName"`
	InviteeEmail string         `json:"inviteeEmail"`
	Role         model.TeamRole `json:"role"`
}

// TeamLogic 团队业务逻辑
type TeamLogic struct {
	store store.Store
	now   func() time.Time
}

// NewTeamLogic 创建团队业务逻辑
func NewTeamLogic(s store.Store) *TeamLogic {
	return &TeamLogic{store: s, now: time.Now}
}

// CreateTeam 创建团队，创建者成为管理员
func (l *TeamLogic) CreateTeam(ctx context.Context, s *auth.Session, input TeamInput) (*model.TeamModel, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Validation("团队名称不能为空")
	}

	now := l.now()
	team := &model.TeamModel{
		Id:          newId(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Name:        name,
		Description: input.Description,
		AdminId:     s.Uid(),
		Members: datatypes.JSONSlice[model.TeamMember]{{
			Uid:         s.Uid(),
			DisplayName: s.User.DisplayName,
			Email:       input.Email,
			PhotoURL:    s.User.PhotoURL,
			Role:        model.TeamRoleAdmin,
		}},
	}
	if err := l.store.CreateTeam(ctx, team); err != nil {
		return nil, apperr.Store("create team", err)
	}
	logger.Info("Team %s (%s) created by %s", team.Name, team.Id, s.Uid())
	return team, nil
}

// GetTeam 获取团队，仅成员可见
func (l *TeamLogic) GetTeam(ctx context.Context, s *auth.Session, id string) (*model.TeamModel, error) {
	team, err := l.store.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := permission.Require(team, s.Uid(), model.TeamRoleViewer); err != nil {
		return nil, err
	}
	return team, nil
}

// ListTeams 当前用户所属的团队
func (l *TeamLogic) ListTeams(ctx context.Context, s *auth.Session) ([]model.TeamModel, error) {
	teams, err := l.store.ListTeamsForUser(ctx, s.Uid())
	if err != nil {
		return nil, apperr.Store("list teams", err)
	}
	return teams, nil
}

// UpdateTeam 修改名称与描述，需要管理员
func (l *TeamLogic) UpdateTeam(ctx context.Context, s *auth.Session, id string, patch TeamPatch) (*model.TeamModel, error) {
	if _, err := l.adminTeam(ctx, s, id); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("团队名称不能为空")
		}
		updates["name"] = name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("没有要更新的字段")
	}
	updates["updated_at"] = l.now()

	if err := l.store.UpdateTeam(ctx, id, updates); err != nil {
		return nil, apperr.Store("update team", err)
	}
	return l.store.GetTeam(ctx, id)
}

// DeleteTeam 删除团队，团队课题不级联删除
func (l *TeamLogic) DeleteTeam(ctx context.Context, s *auth.Session, id string) error {
	if _, err := l.adminTeam(ctx, s, id); err != nil {
		return err
	}
	if err := l.store.DeleteTeam(ctx, id); err != nil {
		return apperr.Store("delete team", err)
	}
	logger.Info("Team %s deleted by %s", id, s.Uid())
	return nil
}

// AddMember 直接添加成员
func (l *TeamLogic) AddMember(ctx context.Context, s *auth.Session, teamId string, member model.TeamMember) (*model.TeamModel, error) {
	team, err := l.adminTeam(ctx, s, teamId)
	if err != nil {
		return nil, err
	}
	if member.Uid == "" {
		return nil, apperr.Validation("成员 uid 不能为空")
	}
	if !member.Role.Valid() {
		return nil, apperr.Validation("无效的角色: %s", member.Role)
	}
	if _, exists := team.FindMember(member.Uid); exists {
		return nil, apperr.Validation("用户已是团队成员: %s", member.Uid)
	}

	members := append(cloneMembers(team.Members), member)
	return l.saveMembers(ctx, teamId, members)
}

// UpdateMemberRole 修改成员角色，创建者的角色不能修改
func (l *TeamLogic) UpdateMemberRole(ctx context.Context, s *auth.Session, teamId, uid string, role model.TeamRole) (*model.TeamModel, error) {
	team, err := l.adminTeam(ctx, s, teamId)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperr.Validation("无效的角色: %s", role)
	}
	if uid == team.AdminId {
		return nil, apperr.Validation("不能修改团队创建者的角色")
	}

	members := cloneMembers(team.Members)
	found := false
	for i := range members {
		if members[i].Uid == uid {
			members[i].Role = role
			found = true
		}
	}
	if !found {
		return nil, apperr.NotFound("成员不存在: %s", uid)
	}
	return l.saveMembers(ctx, teamId, members)
}

// RemoveMember 移除成员。管理员可以移除他人，成员可以退出团队，创建者不能被移除。
func (l *TeamLogic) RemoveMember(ctx context.Context, s *auth.Session, teamId, uid string) (*model.TeamModel, error) {
	team, err := l.store.GetTeam(ctx, teamId)
	if err != nil {
		return nil, err
	}
	if uid != s.Uid() {
		if err := permission.Require(team, s.Uid(), model.TeamRoleAdmin); err != nil {
			return nil, err
		}
	}
	if uid == team.AdminId {
		return nil, apperr.Validation("不能移除团队创建者")
	}
	if _, ok := team.FindMember(uid); !ok {
		return nil, apperr.NotFound("成员不存在: %s", uid)
	}

	members := make([]model.TeamMember, 0, len(team.Members))
	for _, m := range team.Members {
		if m.Uid != uid {
			members = append(members, m)
		}
	}
	return l.saveMembers(ctx, teamId, members)
}

// InviteMember 创建邀请并通知被邀请人
func (l *TeamLogic) InviteMember(ctx context.Context, s *auth.Session, teamId string, input InviteInput) (*model.TeamInvitationModel, error) {
	team, err := l.adminTeam(ctx, s, teamId)
	if err != nil {
		return nil, err
	}
	if input.InviteeId == "" {
		return nil, apperr.Validation("被邀请人不能为空")
	}
	role := input.Role
	if role == "" {
		role = model.TeamRoleMember
	}
	if !role.Valid() {
		return nil, apperr.Validation("无效的角色: %s", role)
	}
	if _, exists := team.FindMember(input.InviteeId); exists {
		return nil, apperr.Validation("用户已是团队成员: %s", input.InviteeId)
	}

	now := l.now()
	inv := &model.TeamInvitationModel{
		Id:           newId(),
		CreatedAt:    now,
		UpdatedAt:    now,
		TeamId:       team.Id,
		TeamName:     team.Name,
		InviterId:    s.Uid(),
		InviterName:  s.User.DisplayName,
		InviteeId:    input.InviteeId,
		InviteeName:  input.InviteeName,
		InviteeEmail: input.InviteeEmail,
		Role:         role,
		Status:       model.InvitationStatusPending,
	}
	if err := l.store.CreateInvitation(ctx, inv); err != nil {
		return nil, apperr.Store("create invitation", err)
	}

	sendNotification(ctx, l.store, &model.NotificationModel{
		RecipientId: inv.InviteeId,
		SenderId:    s.Uid(),
		SenderName:  s.User.DisplayName,
		Type:        model.NotificationTypeTeamInvite,
		Content:     fmt.Sprintf("%sさんがあなたをチーム「%s」に招待しました", s.User.DisplayName, team.Name),
		TeamId:      team.Id,
	}, now)
	return inv, nil
}

// ListInvitations 当前用户待处理的邀请
func (l *TeamLogic) ListInvitations(ctx context.Context, s *auth.Session) ([]model.TeamInvitationModel, error) {
	invs, err := l.store.ListPendingInvitations(ctx, s.Uid())
	if err != nil {
		return nil, apperr.Store("list invitations", err)
	}
	return invs, nil
}

// RespondInvitation 接受或拒绝邀请，接受时加入团队
func (l *TeamLogic) RespondInvitation(ctx context.Context, s *auth.Session, invitationId string, accept bool) (*model.TeamInvitationModel, error) {
	inv, err := l.store.GetInvitation(ctx, invitationId)
	if err != nil {
		return nil, err
	}
	if inv.InviteeId != s.Uid() {
		return nil, apperr.PermissionDenied("只有被邀请人可以处理邀请")
	}
	if inv.Status != model.InvitationStatusPending {
		return nil, apperr.Validation("邀请已处理: %s", inv.Status)
	}

	status := model.InvitationStatusDeclined
	if accept {
		status = model.InvitationStatusAccepted
		team, err := l.store.GetTeam(ctx, inv.TeamId)
		if err != nil {
			return nil, err
		}
		if _, exists := team.FindMember(s.Uid()); !exists {
			name := inv.InviteeName
			if name == "" {
				name = s.User.DisplayName
			}
			members := append(cloneMembers(team.Members), model.TeamMember{
				Uid:         s.Uid(),
				DisplayName: name,
				Email:       inv.InviteeEmail,
				PhotoURL:    s.User.PhotoURL,
				Role:        inv.Role,
			})
			if _, err := l.saveMembers(ctx, team.Id, members); err != nil {
				return nil, err
			}
		}
	}

	if err := l.store.UpdateInvitationStatus(ctx, inv.Id, status); err != nil {
		return nil, apperr.Store("update invitation", err)
	}
	inv.Status = status
	logger.Info("Invitation %s %s by %s", inv.Id, status, s.Uid())
	return inv, nil
}

func (l *TeamLogic) adminTeam(ctx context.Context, s *auth.Session, id string) (*model.TeamModel, error) {
	team, err := l.store.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := permission.Require(team, s.Uid(), model.TeamRoleAdmin); err != nil {
		return nil, err
	}
	return team, nil
}

func (l *TeamLogic) saveMembers(ctx context.Context, teamId string, members []model.TeamMember) (*model.TeamModel, error) {
	if err := l.store.UpdateTeam(ctx, teamId, map[string]interface{}{
		"members":    datatypes.JSONSlice[model.TeamMember](members),
		"updated_at": l.now(),
	}); err != nil {
		return nil, apperr.Store("update team members", err)
	}
	return l.store.GetTeam(ctx, teamId)
}

func cloneMembers(members []model.TeamMember) []model.TeamMember {
	return append([]model.TeamMember(nil), members...)
}
