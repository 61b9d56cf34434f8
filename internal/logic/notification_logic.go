package logic

import (
	"context"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/store"
)

// NotificationLogic 通知业务逻辑
type NotificationLogic struct {
	store store.NotificationStore
}

// NewNotificationLogic 创建通知业务逻辑
func NewNotificationLogic(s store.NotificationStore) *NotificationLogic {
	return &NotificationLogic{store: s}
}

// ListNotifications 当前用户的通知，最新的在前
func (l *NotificationLogic) ListNotifications(ctx context.Context, s *auth.Session) ([]model.NotificationModel, error) {
	list, err := l.store.ListNotifications(ctx, s.Uid())
	if err != nil {
		return nil, apperr.Store("list notifications", err)
	}
	return list, nil
}

// MarkRead 标记单条已读
func (l *NotificationLogic) MarkRead(ctx context.Context, s *auth.Session, id string) error {
	return apperr.Store("mark notification read", l.store.MarkNotificationRead(ctx, id, s.Uid()))
}

// MarkAllRead 全部标记已读，返回更新条数
func (l *NotificationLogic) MarkAllRead(ctx context.Context, s *auth.Session) (int64, error) {
	n, err := l.store.MarkAllNotificationsRead(ctx, s.Uid())
	if err != nil {
		return 0, apperr.Store("mark all notifications read", err)
	}
	return n, nil
}

// UnreadCount 未读数量
func (l *NotificationLogic) UnreadCount(ctx context.Context, s *auth.Session) (int64, error) {
	n, err := l.store.CountUnreadNotifications(ctx, s.Uid())
	if err != nil {
		return 0, apperr.Store("count unread notifications", err)
	}
	return n, nil
}
