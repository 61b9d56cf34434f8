// Package store 定义业务层使用的数据存储接口。
// memory 子包提供进程内实现，repository 包提供 gorm/PostgreSQL 实现。
package store

import (
	"context"

	"github.com/blues/tracker/internal/model"
)

// CancelFunc 释放订阅
type CancelFunc func()

// ScopeFilter 课题列表范围：TeamId 非空时为团队课题，否则为 CreatorId 的个人课题
type ScopeFilter struct {
	TeamId    string
	CreatorId string
}

// Personal 个人课题范围
func Personal(uid string) ScopeFilter {
	return ScopeFilter{CreatorId: uid}
}

// Team 团队课题范围
func Team(teamId string) ScopeFilter {
	return ScopeFilter{TeamId: teamId}
}

// Matches 判断课题是否属于该范围
func (f ScopeFilter) Matches(i *model.IssueModel) bool {
	if f.TeamId != "" {
		return !i.IsPersonal() && *i.TeamId == f.TeamId
	}
	return i.IsPersonal() && i.CreatedBy.Uid == f.CreatorId
}

// IssueStore 课题存储。updates 的 key 为列名，例如 progress、assignee_uid
type IssueStore interface {
	CreateIssue(ctx context.Context, issue *model.IssueModel) error
	GetIssue(ctx context.Context, id string) (*model.IssueModel, error)
	UpdateIssue(ctx context.Context, id string, updates map[string]interface{}) error
	// UpdateIssueIfProgress 仅当课题当前进度等于 progress 时更新，返回是否已写入
	UpdateIssueIfProgress(ctx context.Context, id string, progress int, updates map[string]interface{}) (bool, error)
	DeleteIssue(ctx context.Context, id string) error
	ListIssues(ctx context.Context, scope ScopeFilter) ([]model.IssueModel, error)
	ListAllIssues(ctx context.Context) ([]model.IssueModel, error)
	NextIssueNumber(ctx context.Context) (int64, error)
	SubscribeIssues(ctx context.Context, scope ScopeFilter) (<-chan []model.IssueModel, CancelFunc, error)
}

// TeamStore 团队存储。updates 的 key 为 name、description、members、updated_at
type TeamStore interface {
	CreateTeam(ctx context.Context, team *model.TeamModel) error
	GetTeam(ctx context.Context, id string) (*model.TeamModel, error)
	UpdateTeam(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteTeam(ctx context.Context, id string) error
	ListTeamsForUser(ctx context.Context, uid string) ([]model.TeamModel, error)
}

// InvitationStore 团队邀请存储
type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv *model.TeamInvitationModel) error
	GetInvitation(ctx context.Context, id string) (*model.TeamInvitationModel, error)
	ListPendingInvitations(ctx context.Context, inviteeId string) ([]model.TeamInvitationModel, error)
	UpdateInvitationStatus(ctx context.Context, id string, status model.InvitationStatus) error
}

// CommentStore 评论存储
type CommentStore interface {
	CreateComment(ctx context.Context, c *model.CommentModel) error
	GetComment(ctx context.Context, id string) (*model.CommentModel, error)
	ListComments(ctx context.Context, issueId string) ([]model.CommentModel, error)
	DeleteComment(ctx context.Context, id string) error
}

// NotificationStore 通知存储
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *model.NotificationModel) error
	ListNotifications(ctx context.Context, recipientId string) ([]model.NotificationModel, error)
	MarkNotificationRead(ctx context.Context, id, recipientId string) error
	MarkAllNotificationsRead(ctx context.Context, recipientId string) (int64, error)
	CountUnreadNotifications(ctx context.Context, recipientId string) (int64, error)
}

// ChatStore 课题聊天存储
type ChatStore interface {
	CreateChatMessage(ctx context.Context, m *model.ChatMessageModel) error
	ListChatMessages(ctx context.Context, issueId string) ([]model.ChatMessageModel, error)
	SubscribeChat(ctx context.Context, issueId string) (<-chan []model.ChatMessageModel, CancelFunc, error)
}

// Store 聚合所有存储接口
type Store interface {
	IssueStore
	TeamStore
	InvitationStore
	CommentStore
	NotificationStore
	ChatStore
}
