package mention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/model"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Mode 通知分发方式
type Mode string

const (
	ModeSequential Mode = "sequential" // 逐个发送
	ModeConcurrent Mode = "concurrent" // 协程池并发发送
)

// NotificationCreator 通知写入接口，由 store.NotificationStore 实现
type NotificationCreator interface {
	CreateNotification(ctx context.Context, n *model.NotificationModel) error
}

// MentionContext 提及发生的上下文
type MentionContext struct {
	IssueId   string
	CommentId string
	TeamId    string
	Author    model.UserRef
	Content   string // 评论原文
}

// Failure 单个接收者的发送失败
type Failure struct {
	RecipientId string
	Err         error
}

// DispatchReport 分发结果
type DispatchReport struct {
	Sent   []string
	Failed []Failure
}

// Dispatcher 为每个被提及用户创建一条 mention 通知。
// 单个用户失败只记录日志，不影响其余用户，也不回滚已保存的评论。
type Dispatcher struct {
	creator  NotificationCreator
	mode     Mode
	poolSize int
	now      func() time.Time
}

// NewDispatcher 创建分发器，poolSize 只在并发模式下使用
func NewDispatcher(creator NotificationCreator, mode Mode, poolSize int) *Dispatcher {
	if mode != ModeConcurrent {
		mode = ModeSequential
	}
	if poolSize <= 0 {
		poolSize = 8
	}
	return &Dispatcher{
		creator:  creator,
		mode:     mode,
		poolSize: poolSize,
		now:      time.Now,
	}
}

// MentionContent 通知正文：作者名 + 评论原文
func MentionContent(authorName, text string) string {
	return fmt.Sprintf("%sさんがあなたをメンションしました: %s", authorName, text)
}

// Dispatch 向每个去重后的用户发送通知
func (d *Dispatcher) Dispatch(ctx context.Context, mentioned []model.UserRef, mc MentionContext) DispatchReport {
	recipients := distinct(mentioned)
	results := make([]error, len(recipients))

	if d.mode == ModeConcurrent && len(recipients) > 1 {
		d.dispatchConcurrent(ctx, recipients, mc, results)
	} else {
		for i, user := range recipients {
			results[i] = d.send(ctx, user, mc)
		}
	}

	report := DispatchReport{Sent: []string{}, Failed: []Failure{}}
	for i, user := range recipients {
		if results[i] != nil {
			logger.Error("Failed to send mention notification to %s for comment %s: %v",
				user.Uid, mc.CommentId, results[i])
			report.Failed = append(report.Failed, Failure{RecipientId: user.Uid, Err: results[i]})
			continue
		}
		report.Sent = append(report.Sent, user.Uid)
	}

	logger.Debug("Dispatched %d mention notifications for comment %s (%d failed)",
		len(report.Sent), mc.CommentId, len(report.Failed))
	return report
}

func (d *Dispatcher) dispatchConcurrent(ctx context.Context, recipients []model.UserRef, mc MentionContext, results []error) {
	size := d.poolSize
	if len(recipients) < size {
		size = len(recipients)
	}

	pool, err := ants.NewPool(size)
	if err != nil {
		logger.Warn("Failed to create notification pool, falling back to sequential: %v", err)
		for i, user := range recipients {
			results[i] = d.send(ctx, user, mc)
		}
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, user := range recipients {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = d.send(ctx, user, mc)
		}); err != nil {
			wg.Done()
			results[i] = fmt.Errorf("submit notification task: %w", err)
		}
	}
	wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, user model.UserRef, mc MentionContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := &model.NotificationModel{
		Id:          uuid.NewString(),
		CreatedAt:   d.now(),
		RecipientId: user.Uid,
		SenderId:    mc.Author.Uid,
		SenderName:  mc.Author.DisplayName,
		Type:        model.NotificationTypeMention,
		Content:     MentionContent(mc.Author.DisplayName, mc.Content),
		IssueId:     mc.IssueId,
		CommentId:   mc.CommentId,
		TeamId:      mc.TeamId,
	}
	return d.creator.CreateNotification(ctx, n)
}

func distinct(users []model.UserRef) []model.UserRef {
	seen := make(map[string]struct{}, len(users))
	out := make([]model.UserRef, 0, len(users))
	for _, u := range users {
		if u.Uid == "" {
			continue
		}
		if _, ok := seen[u.Uid]; ok {
			continue
		}
		seen[u.Uid] = struct{}{}
		out = append(out, u)
	}
	return out
}
