// Package repository 基于 gorm/PostgreSQL 的存储实现
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const issueCounterName = "issue"

// Repository 实现 store.Store
type Repository struct {
	db           *gorm.DB
	pollInterval time.Duration
}

var _ store.Store = (*Repository)(nil)

// New 创建仓储，pollInterval 为订阅的轮询间隔
func New(db *gorm.DB, pollInterval time.Duration) *Repository {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Repository{db: db, pollInterval: pollInterval}
}

// wrap 把 gorm 错误映射为业务错误
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s: 记录不存在", op)
	}
	return apperr.Store(op, err)
}

func (r *Repository) updates(ctx context.Context, op string, m interface{}, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(m).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return wrap(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("%s: %s 不存在", op, id)
	}
	return nil
}

func (r *Repository) delete(ctx context.Context, op string, m interface{}, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(m)
	if result.Error != nil {
		return wrap(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("%s: %s 不存在", op, id)
	}
	return nil
}

// CreateIssue 创建课题
func (r *Repository) CreateIssue(ctx context.Context, issue *model.IssueModel) error {
	return wrap("create issue", r.db.WithContext(ctx).Create(issue).Error)
}

// GetIssue 获取课题
func (r *Repository) GetIssue(ctx context.Context, id string) (*model.IssueModel, error) {
	var issue model.IssueModel
	if err := r.db.WithContext(ctx).First(&issue, "id = ?", id).Error; err != nil {
		return nil, wrap("get issue", err)
	}
	return &issue, nil
}

// UpdateIssue 部分更新课题
func (r *Repository) UpdateIssue(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.updates(ctx, "update issue", &model.IssueModel{}, id, updates)
}

// UpdateIssueIfProgress 条件更新，进度已变化时不写入
func (r *Repository) UpdateIssueIfProgress(ctx context.Context, id string, progress int, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.IssueModel{}).
		Where("id = ? AND progress = ?", id, progress).
		Updates(updates)
	if result.Error != nil {
		return false, wrap("update issue if progress", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteIssue 删除课题
func (r *Repository) DeleteIssue(ctx context.Context, id string) error {
	return r.delete(ctx, "delete issue", &model.IssueModel{}, id)
}

// ListIssues 按范围列出课题
func (r *Repository) ListIssues(ctx context.Context, scope store.ScopeFilter) ([]model.IssueModel, error) {
	query := r.db.WithContext(ctx).Model(&model.IssueModel{})
	if scope.TeamId != "" {
		query = query.Where("team_id = ?", scope.TeamId)
	} else {
		query = query.Where("(team_id IS NULL OR team_id = '') AND created_by_uid = ?", scope.CreatorId)
	}

	var issues []model.IssueModel
	if err := query.Order("created_at ASC").Find(&issues).Error; err != nil {
		return nil, wrap("list issues", err)
	}
	return issues, nil
}

// ListAllIssues 列出全部课题，定时任务使用
func (r *Repository) ListAllIssues(ctx context.Context) ([]model.IssueModel, error) {
	var issues []model.IssueModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&issues).Error; err != nil {
		return nil, wrap("list all issues", err)
	}
	return issues, nil
}

// NextIssueNumber 在事务中对计数器行加锁后递增。
// 不同实例之间也保证唯一，但课题创建失败时序号会被跳过。
func (r *Repository) NextIssueNumber(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter := model.IssueCounterModel{Name: issueCounterName}
		if err := ensureCounter(tx, &counter).Error; err != nil {
			return err
		}
		if err := lockCounter(tx, &counter).Error; err != nil {
			return err
		}
		next = counter.Value + 1
		return bumpCounter(tx, next).Error
	})
	if err != nil {
		return 0, wrap("next issue number", err)
	}
	return next, nil
}

// ensureCounter 计数器行不存在时插入
func ensureCounter(tx *gorm.DB, counter *model.IssueCounterModel) *gorm.DB {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(counter)
}

// lockCounter 行锁读取计数器，事务结束前其他编号分配阻塞
func lockCounter(tx *gorm.DB, counter *model.IssueCounterModel) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(counter, "name = ?", issueCounterName)
}

func bumpCounter(tx *gorm.DB, next int64) *gorm.DB {
	return tx.Model(&model.IssueCounterModel{}).Where("name = ?", issueCounterName).Update("value", next)
}

// SubscribeIssues 轮询方式订阅课题快照
func (r *Repository) SubscribeIssues(ctx context.Context, scope store.ScopeFilter) (<-chan []model.IssueModel, store.CancelFunc, error) {
	ch, cancel := store.Poll(ctx, r.pollInterval,
		func(ctx context.Context) ([]model.IssueModel, error) { return r.ListIssues(ctx, scope) },
		issueFingerprint,
	)
	return ch, cancel, nil
}

func issueFingerprint(issues []model.IssueModel) string {
	var b strings.Builder
	for _, i := range issues {
		b.WriteString(i.Id)
		b.WriteByte('@')
		b.WriteString(strconv.FormatInt(i.UpdatedAt.UnixNano(), 10))
		b.WriteByte(';')
	}
	return b.String()
}

// CreateTeam 创建团队
func (r *Repository) CreateTeam(ctx context.Context, team *model.TeamModel) error {
	return wrap("create team", r.db.WithContext(ctx).Create(team).Error)
}

// GetTeam 获取团队
func (r *Repository) GetTeam(ctx context.Context, id string) (*model.TeamModel, error) {
	var team model.TeamModel
	if err := r.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, wrap("get team", err)
	}
	return &team, nil
}

// UpdateTeam 部分更新团队
func (r *Repository) UpdateTeam(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.updates(ctx, "update team", &model.TeamModel{}, id, updates)
}

// DeleteTeam 删除团队
func (r *Repository) DeleteTeam(ctx context.Context, id string) error {
	return r.delete(ctx, "delete team", &model.TeamModel{}, id)
}

// ListTeamsForUser 用户为创建者或成员的团队，成员判断使用 jsonb 包含查询
func (r *Repository) ListTeamsForUser(ctx context.Context, uid string) ([]model.TeamModel, error) {
	containment, err := json.Marshal([]map[string]string{{"uid": uid}})
	if err != nil {
		return nil, apperr.Store("list teams", err)
	}

	var teams []model.TeamModel
	if err := teamsForUser(r.db.WithContext(ctx), uid, string(containment), &teams).Error; err != nil {
		return nil, wrap("list teams", err)
	}
	return teams, nil
}

// teamsForUser 管理员或 members 数组包含该 uid 的团队
func teamsForUser(tx *gorm.DB, uid, containment string, teams *[]model.TeamModel) *gorm.DB {
	return tx.Where("admin_id = ? OR members @> ?::jsonb", uid, containment).
		Order("created_at ASC").
		Find(teams)
}

// CreateInvitation 创建邀请
func (r *Repository) CreateInvitation(ctx context.Context, inv *model.TeamInvitationModel) error {
	return wrap("create invitation", r.db.WithContext(ctx).Create(inv).Error)
}

// GetInvitation 获取邀请
func (r *Repository) GetInvitation(ctx context.Context, id string) (*model.TeamInvitationModel, error) {
	var inv model.TeamInvitationModel
	if err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, wrap("get invitation", err)
	}
	return &inv, nil
}

// ListPendingInvitations 待处理邀请
func (r *Repository) ListPendingInvitations(ctx context.Context, inviteeId string) ([]model.TeamInvitationModel, error) {
	var invs []model.TeamInvitationModel
	if err := r.db.WithContext(ctx).
		Where("invitee_id = ? AND status = ?", inviteeId, model.InvitationStatusPending).
		Order("created_at DESC").
		Find(&invs).Error; err != nil {
		return nil, wrap("list invitations", err)
	}
	return invs, nil
}

// UpdateInvitationStatus 更新邀请状态
func (r *Repository) UpdateInvitationStatus(ctx context.Context, id string, status model.InvitationStatus) error {
	return r.updates(ctx, "update invitation", &model.TeamInvitationModel{}, id, map[string]interface{}{
		"status": status,
	})
}

// CreateComment 创建评论
func (r *Repository) CreateComment(ctx context.Context, c *model.CommentModel) error {
	return wrap("create comment", r.db.WithContext(ctx).Create(c).Error)
}

// GetComment 获取评论
func (r *Repository) GetComment(ctx context.Context, id string) (*model.CommentModel, error) {
	var c model.CommentModel
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, wrap("get comment", err)
	}
	return &c, nil
}

// ListComments 课题评论
func (r *Repository) ListComments(ctx context.Context, issueId string) ([]model.CommentModel, error) {
	var comments []model.CommentModel
	if err := r.db.WithContext(ctx).
		Where("issue_id = ?", issueId).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, wrap("list comments", err)
	}
	return comments, nil
}

// DeleteComment 删除评论
func (r *Repository) DeleteComment(ctx context.Context, id string) error {
	return r.delete(ctx, "delete comment", &model.CommentModel{}, id)
}

// CreateNotification 创建通知
func (r *Repository) CreateNotification(ctx context.Context, n *model.NotificationModel) error {
	return wrap("create notification", r.db.WithContext(ctx).Create(n).Error)
}

// ListNotifications 接收者的通知
func (r *Repository) ListNotifications(ctx context.Context, recipientId string) ([]model.NotificationModel, error) {
	var list []model.NotificationModel
	if err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientId).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, wrap("list notifications", err)
	}
	return list, nil
}

// MarkNotificationRead 标记已读
func (r *Repository) MarkNotificationRead(ctx context.Context, id, recipientId string) error {
	result := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("id = ? AND recipient_id = ?", id, recipientId).
		Update("read", true)
	if result.Error != nil {
		return wrap("mark notification read", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("通知不存在: %s", id)
	}
	return nil
}

// MarkAllNotificationsRead 全部标记已读
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, recipientId string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("recipient_id = ? AND read = ?", recipientId, false).
		Update("read", true)
	if result.Error != nil {
		return 0, wrap("mark all notifications read", result.Error)
	}
	return result.RowsAffected, nil
}

// CountUnreadNotifications 未读数量
func (r *Repository) CountUnreadNotifications(ctx context.Context, recipientId string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("recipient_id = ? AND read = ?", recipientId, false).
		Count(&count).Error; err != nil {
		return 0, wrap("count unread notifications", err)
	}
	return count, nil
}

// CreateChatMessage 追加聊天消息
func (r *Repository) CreateChatMessage(ctx context.Context, m *model.ChatMessageModel) error {
	return wrap("create chat message", r.db.WithContext(ctx).Create(m).Error)
}

// ListChatMessages 课题聊天记录
func (r *Repository) ListChatMessages(ctx context.Context, issueId string) ([]model.ChatMessageModel, error) {
	var msgs []model.ChatMessageModel
	if err := r.db.WithContext(ctx).
		Where("issue_id = ?", issueId).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, wrap("list chat messages", err)
	}
	return msgs, nil
}

// SubscribeChat 轮询方式订阅聊天
func (r *Repository) SubscribeChat(ctx context.Context, issueId string) (<-chan []model.ChatMessageModel, store.CancelFunc, error) {
	ch, cancel := store.Poll(ctx, r.pollInterval,
		func(ctx context.Context) ([]model.ChatMessageModel, error) { return r.ListChatMessages(ctx, issueId) },
		func(msgs []model.ChatMessageModel) string {
			if len(msgs) == 0 {
				return "0"
			}
			return strconv.Itoa(len(msgs)) + ":" + msgs[len(msgs)-1].Id
		},
	)
	return ch, cancel, nil
}
