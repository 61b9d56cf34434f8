package model

import (
	"time"

	"gorm.io/datatypes"
)

// TeamModel 团队
type TeamModel struct {
	Id        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name        string                          `json:"name" gorm:"not null"`
	Description string                          `json:"description" gorm:"type:text"`
	AdminId     string                          `json:"adminId" gorm:"type:varchar(128);not null"` // 创建者，永久拥有管理员权限
	Members     datatypes.JSONSlice[TeamMember] `json:"members"`
}

// TeamMember 团队成员
type TeamMember struct {
	Uid         string   `json:"uid"`
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email"`
	PhotoURL    string   `json:"photoURL,omitempty"`
	Role        TeamRole `json:"role"`
}

// TeamRole 团队角色
type TeamRole string

const (
	TeamRoleAdmin  TeamRole = "admin"  // 管理员
	TeamRoleEditor TeamRole = "editor" // 编辑者
	TeamRoleMember TeamRole = "member" // 成员，等同于编辑者
	TeamRoleViewer TeamRole = "viewer" // 只读
)

// Valid 是否为已知角色
func (r TeamRole) Valid() bool {
	switch r {
	case TeamRoleAdmin, TeamRoleEditor, TeamRoleMember, TeamRoleViewer:
		return true
	}
	return false
}

// FindMember 按 uid 查找成员
func (t *TeamModel) FindMember(uid string) (TeamMember, bool) {
	for _, m := range t.Members {
		if m.Uid == uid {
			return m, true
		}
	}
	return TeamMember{}, false
}

// MemberIds 所有成员的 uid
func (t *TeamModel) MemberIds() []string {
	ids := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.Uid)
	}
	return ids
}

// TableName 自定义表名
func (TeamModel) TableName() string {
	return "team"
}

// TeamInvitationModel 团队邀请
type TeamInvitationModel struct {
	Id        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	TeamId       string           `json:"teamId" gorm:"type:varchar(36);not null;index"`
	TeamName     string           `json:"teamName"`
	InviterId    string           `json:"inviterId" gorm:"type:varchar(128);not null"`
	InviterName  string           `json:"inviterName"`
	InviteeId    string           `json:"inviteeId" gorm:"type:varchar(128);not null;index"`
	InviteeName  string           `json:"inviteeName"`
	InviteeEmail string           `json:"inviteeEmail"`
	Role         TeamRole         `json:"role" gorm:"type:varchar(16)"`
	Status       InvitationStatus `json:"status" gorm:"type:varchar(16);default:'pending'"`
}

// InvitationStatus 邀请状态
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"  // 待处理
	InvitationStatusAccepted InvitationStatus = "accepted" // 已接受
	InvitationStatusDeclined InvitationStatus = "declined" // 已拒绝
)

// TableName 自定义表名
func (TeamInvitationModel) TableName() string {
	return "team_invitation"
}
