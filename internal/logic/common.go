package logic

import (
	"context"
	"errors"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/permission"
	"github.com/blues/tracker/internal/store"
	"github.com/google/uuid"
)

// issueAction 课题操作类型，决定所需权限
type issueAction int

const (
	actionView issueAction = iota
	actionEdit
	actionDelete
)

func newId() string {
	return uuid.NewString()
}

// loadTeam 获取课题所属团队，个人课题返回 nil
func loadTeam(ctx context.Context, teams store.TeamStore, item *model.IssueModel) (*model.TeamModel, error) {
	if item.IsPersonal() {
		return nil, nil
	}
	team, err := teams.GetTeam(ctx, *item.TeamId)
	if err != nil {
		return nil, err
	}
	return team, nil
}

// authorizeIssue 按操作检查当前用户对课题的权限。
// 个人课题只有创建者可以修改和删除；团队课题修改需要 editor，删除需要 admin。
// 非公开课题只对创建者、负责人和团队成员可见。
func authorizeIssue(ctx context.Context, teams store.TeamStore, uid string, item *model.IssueModel, action issueAction) error {
	team, err := loadTeam(ctx, teams, item)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	switch action {
	case actionView:
		if !item.IsPrivate || item.CreatedBy.Uid == uid || item.Assignee.Uid == uid {
			return nil
		}
		if permission.IsMember(team, uid) {
			return nil
		}
		return apperr.PermissionDenied("没有查看该课题的权限")
	case actionEdit:
		if item.IsPersonal() {
			return requireOwner(item, uid)
		}
		return permission.Require(team, uid, model.TeamRoleEditor)
	case actionDelete:
		if item.IsPersonal() {
			return requireOwner(item, uid)
		}
		return permission.Require(team, uid, model.TeamRoleAdmin)
	}
	return apperr.PermissionDenied("未知操作")
}

func requireOwner(item *model.IssueModel, uid string) error {
	if item.CreatedBy.Uid != uid {
		return apperr.PermissionDenied("只有创建者可以修改个人课题")
	}
	return nil
}

// sendNotification 写入通知，失败只记录日志
func sendNotification(ctx context.Context, notifications store.NotificationStore, n *model.NotificationModel, now time.Time) {
	if n.Id == "" {
		n.Id = newId()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if err := notifications.CreateNotification(ctx, n); err != nil {
		logger.Warn("Failed to create %s notification for %s: %v", n.Type, n.RecipientId, err)
	}
}
