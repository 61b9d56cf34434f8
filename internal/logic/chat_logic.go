package logic

import (
	"context"
	"strings"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/store"
)

// ChatLogic 课题聊天
type ChatLogic struct {
	store store.Store
	now   func() time.Time
}

// NewChatLogic 创建聊天业务逻辑
func NewChatLogic(s store.Store) *ChatLogic {
	return &ChatLogic{store: s, now: time.Now}
}

func (l *ChatLogic) authorize(ctx context.Context, s *auth.Session, issueId string) error {
	item, err := l.store.GetIssue(ctx, issueId)
	if err != nil {
		return err
	}
	return authorizeIssue(ctx, l.store, s.Uid(), item, actionView)
}

// PostMessage 发送消息
func (l *ChatLogic) PostMessage(ctx context.Context, s *auth.Session, issueId, content string) (*model.ChatMessageModel, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("消息内容不能为空")
	}
	if err := l.authorize(ctx, s, issueId); err != nil {
		return nil, err
	}

	msg := &model.ChatMessageModel{
		Id:         newId(),
		CreatedAt:  l.now(),
		IssueId:    issueId,
		SenderId:   s.Uid(),
		SenderName: s.User.DisplayName,
		Content:    content,
	}
	if err := l.store.CreateChatMessage(ctx, msg); err != nil {
		return nil, apperr.Store("create chat message", err)
	}
	return msg, nil
}

// ListMessages 聊天记录，按时间升序
func (l *ChatLogic) ListMessages(ctx context.Context, s *auth.Session, issueId string) ([]model.ChatMessageModel, error) {
	if err := l.authorize(ctx, s, issueId); err != nil {
		return nil, err
	}
	msgs, err := l.store.ListChatMessages(ctx, issueId)
	if err != nil {
		return nil, apperr.Store("list chat messages", err)
	}
	return msgs, nil
}

// Subscribe 订阅聊天记录
func (l *ChatLogic) Subscribe(ctx context.Context, s *auth.Session, issueId string) (<-chan []model.ChatMessageModel, store.CancelFunc, error) {
	if err := l.authorize(ctx, s, issueId); err != nil {
		return nil, nil, err
	}
	ch, cancel, err := l.store.SubscribeChat(ctx, issueId)
	if err != nil {
		return nil, nil, apperr.Store("subscribe chat", err)
	}
	return ch, cancel, nil
}
