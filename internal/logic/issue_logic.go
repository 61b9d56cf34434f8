package logic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/issue"
	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/permission"
	"github.com/blues/tracker/internal/store"
	"gorm.io/datatypes"
)

// IssueInput 创建课题的参数
type IssueInput struct {
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	CompletionCriteria string              `json:"completionCriteria"`
	Solution           string              `json:"solution"`
	Priority           model.IssuePriority `json:"priority"`
	Progress           int                 `json:"progress"`
	DueDate            *time.Time          `json:"dueDate"`
	OccurrenceDate     *time.Time          `json:"occurrenceDate"`
	Assignee           model.UserRef       `json:"assignee"`
	TeamId             string              `json:"teamId"`
	IsPrivate          bool                `json:"isPrivate"`
}

// IssuePatch 部分更新，nil 字段保持不变
type IssuePatch struct {
	Title              *string              `json:"title"`
	Description        *string              `json:"description"`
	CompletionCriteria *string              `json:"completionCriteria"`
	Solution           *string              `json:"solution"`
	Priority           *model.IssuePriority `json:"priority"`
	Progress           *int                 `json:"progress"`
	DueDate            *time.Time           `json:"dueDate"`
	ClearDueDate       bool                 `json:"clearDueDate"`
	OccurrenceDate     *time.Time           `json:"occurrenceDate"`
	Assignee           *model.UserRef       `json:"assignee"`
	IsPrivate          *bool                `json:"isPrivate"`
}

// IssueList 列表视图：筛选结果加汇总
type IssueList struct {
	issue.Result
	Summary issue.Summary `json:"summary"`
}

// IssueLogic 课题业务逻辑
type IssueLogic struct {
	store store.Store
	now   func() time.Time
}

// NewIssueLogic 创建课题业务逻辑
func NewIssueLogic(s store.Store) *IssueLogic {
	return &IssueLogic{store: s, now: time.Now}
}

// CreateIssue 创建课题
func (l *IssueLogic) CreateIssue(ctx context.Context, s *auth.Session, input IssueInput) (*model.IssueModel, error) {
	// 验证课题数据
	if err := l.validateIssue(input); err != nil {
		return nil, err
	}

	var teamId *string
	if input.TeamId != "" {
		team, err := l.store.GetTeam(ctx, input.TeamId)
		if err != nil {
			return nil, err
		}
		if err := permission.Require(team, s.Uid(), model.TeamRoleEditor); err != nil {
			return nil, err
		}
		id := input.TeamId
		teamId = &id
	}

	seq, err := l.store.NextIssueNumber(ctx)
	if err != nil {
		return nil, apperr.Store("next issue number", err)
	}

	now := l.now()
	priority := input.Priority
	if priority == "" {
		priority = model.IssuePriorityMedium
	}
	item := &model.IssueModel{
		Id:                 newId(),
		IssueNumber:        issue.FormatIssueNumber(seq),
		CreatedAt:          now,
		UpdatedAt:          now,
		Title:              strings.TrimSpace(input.Title),
		Description:        input.Description,
		CompletionCriteria: input.CompletionCriteria,
		Solution:           input.Solution,
		Status:             issue.DeriveStatus(input.Progress),
		Priority:           priority,
		Progress:           input.Progress,
		DueDate:            input.DueDate,
		OccurrenceDate:     input.OccurrenceDate,
		Assignee:           input.Assignee,
		CreatedBy:          s.User,
		TeamId:             teamId,
		IsPrivate:          input.IsPrivate,
		Watchers:           datatypes.JSONSlice[string]{},
	}
	if err := l.store.CreateIssue(ctx, item); err != nil {
		return nil, apperr.Store("create issue", err)
	}

	logger.Info("Issue %s created by %s", item.IssueNumber, s.Uid())
	l.notifyAssigned(ctx, s, item, item.Assignee)
	return item, nil
}

func (l *IssueLogic) validateIssue(input IssueInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return apperr.Validation("标题不能为空")
	}
	if input.Priority != "" && !input.Priority.Valid() {
		return apperr.Validation("无效的优先级: %s", input.Priority)
	}
	return issue.ValidateProgress(input.Progress)
}

// GetIssue 获取课题详情，附带评论
func (l *IssueLogic) GetIssue(ctx context.Context, s *auth.Session, id string) (*model.IssueModel, error) {
	item, err := l.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeIssue(ctx, l.store, s.Uid(), item, actionView); err != nil {
		return nil, err
	}

	comments, err := l.store.ListComments(ctx, id)
	if err != nil {
		return nil, apperr.Store("list comments", err)
	}
	item.Comments = comments
	return item, nil
}

// UpdateIssue 部分更新课题。进度变化时重新推导状态，最后写入者生效。
func (l *IssueLogic) UpdateIssue(ctx context.Context, s *auth.Session, id string, patch IssuePatch) (*model.IssueModel, error) {
	item, err := l.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeIssue(ctx, l.store, s.Uid(), item, actionEdit); err != nil {
		return nil, err
	}

	updates, err := patchUpdates(patch)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("没有要更新的字段")
	}
	updates["updated_at"] = l.now()

	if err := l.store.UpdateIssue(ctx, id, updates); err != nil {
		return nil, apperr.Store("update issue", err)
	}

	updated, err := l.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Assignee != nil && patch.Assignee.Uid != item.Assignee.Uid {
		l.notifyAssigned(ctx, s, updated, *patch.Assignee)
	}
	return updated, nil
}

// patchUpdates 把允许修改的字段转换为列更新
func patchUpdates(patch IssuePatch) (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperr.Validation("标题不能为空")
		}
		updates["title"] = title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.CompletionCriteria != nil {
		updates["completion_criteria"] = *patch.CompletionCriteria
	}
	if patch.Solution != nil {
		updates["solution"] = *patch.Solution
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, apperr.Validation("无效的优先级: %s", *patch.Priority)
		}
		updates["priority"] = *patch.Priority
	}
	if patch.Progress != nil {
		if err := issue.ValidateProgress(*patch.Progress); err != nil {
			return nil, err
		}
		updates["progress"] = *patch.Progress
		updates["status"] = issue.DeriveStatus(*patch.Progress)
	}
	if patch.ClearDueDate {
		updates["due_date"] = nil
	} else if patch.DueDate != nil {
		updates["due_date"] = *patch.DueDate
	}
	if patch.OccurrenceDate != nil {
		updates["occurrence_date"] = *patch.OccurrenceDate
	}
	if patch.Assignee != nil {
		updates["assignee_uid"] = patch.Assignee.Uid
		updates["assignee_display_name"] = patch.Assignee.DisplayName
		updates["assignee_photo_url"] = patch.Assignee.PhotoURL
	}
	if patch.IsPrivate != nil {
		updates["is_private"] = *patch.IsPrivate
	}
	return updates, nil
}

// DeleteIssue 删除课题
func (l *IssueLogic) DeleteIssue(ctx context.Context, s *auth.Session, id string) error {
	item, err := l.store.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeIssue(ctx, l.store, s.Uid(), item, actionDelete); err != nil {
		return err
	}
	if err := l.store.DeleteIssue(ctx, id); err != nil {
		return apperr.Store("delete issue", err)
	}
	logger.Info("Issue %s deleted by %s", item.IssueNumber, s.Uid())
	return nil
}

// ArchiveIssue 归档课题
func (l *IssueLogic) ArchiveIssue(ctx context.Context, s *auth.Session, id string) (*model.IssueModel, error) {
	now := l.now()
	return l.setArchived(ctx, s, id, map[string]interface{}{
		"is_archived": true,
		"archived_at": now,
		"updated_at":  now,
	})
}

// UnarchiveIssue 取消归档
func (l *IssueLogic) UnarchiveIssue(ctx context.Context, s *auth.Session, id string) (*model.IssueModel, error) {
	return l.setArchived(ctx, s, id, map[string]interface{}{
		"is_archived": false,
		"archived_at": nil,
		"updated_at":  l.now(),
	})
}

func (l *IssueLogic) setArchived(ctx context.Context, s *auth.Session, id string, updates map[string]interface{}) (*model.IssueModel, error) {
	item, err := l.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeIssue(ctx, l.store, s.Uid(), item, actionEdit); err != nil {
		return nil, err
	}
	if err := l.store.UpdateIssue(ctx, id, updates); err != nil {
		return nil, apperr.Store("archive issue", err)
	}
	return l.store.GetIssue(ctx, id)
}

// Watch 关注或取消关注课题
func (l *IssueLogic) Watch(ctx context.Context, s *auth.Session, id string, watch bool) (*model.IssueModel, error) {
	item, err := l.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeIssue(ctx, l.store, s.Uid(), item, actionView); err != nil {
		return nil, err
	}
	if item.HasWatcher(s.Uid()) == watch {
		return item, nil
	}

	watchers := make(datatypes.JSONSlice[string], 0, len(item.Watchers)+1)
	for _, w := range item.Watchers {
		if w != s.Uid() {
			watchers = append(watchers, w)
		}
	}
	if watch {
		watchers = append(watchers, s.Uid())
	}

	if err := l.store.UpdateIssue(ctx, id, map[string]interface{}{
		"watchers":   watchers,
		"updated_at": l.now(),
	}); err != nil {
		return nil, apperr.Store("watch issue", err)
	}
	return l.store.GetIssue(ctx, id)
}

// ListIssues 合并个人课题与所属团队课题，筛选排序后附带汇总
func (l *IssueLogic) ListIssues(ctx context.Context, s *auth.Session, filter issue.Filter) (*IssueList, error) {
	merged, err := l.scopeIssues(ctx, s)
	if err != nil {
		return nil, err
	}
	list := l.view(merged, filter, l.now())
	return &list, nil
}

// Summary 当前用户范围内未归档课题的汇总
func (l *IssueLogic) Summary(ctx context.Context, s *auth.Session) (*issue.Summary, error) {
	merged, err := l.scopeIssues(ctx, s)
	if err != nil {
		return nil, err
	}
	summary := issue.Summarize(activeIssues(merged), l.now())
	return &summary, nil
}

// Subscribe 订阅列表视图，任一范围的数据变化都会推送新的 IssueList
func (l *IssueLogic) Subscribe(ctx context.Context, s *auth.Session, filter issue.Filter) (<-chan IssueList, store.CancelFunc, error) {
	scopes, err := l.scopes(ctx, s)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	cancels := make([]store.CancelFunc, 0, len(scopes))
	release := func() {
		cancel()
		for _, c := range cancels {
			c()
		}
	}

	type snapshot struct {
		idx    int
		issues []model.IssueModel
	}
	snapshots := make(chan snapshot)

	for idx, scope := range scopes {
		ch, c, err := l.store.SubscribeIssues(ctx, scope)
		if err != nil {
			release()
			return nil, nil, apperr.Store("subscribe issues", err)
		}
		cancels = append(cancels, c)

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case issues, ok := <-ch:
					if !ok {
						return
					}
					select {
					case snapshots <- snapshot{idx: idx, issues: issues}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	out := make(chan IssueList, 1)
	go func() {
		defer close(out)
		latest := make([][]model.IssueModel, len(scopes))
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapshots:
				latest[snap.idx] = snap.issues
				store.Offer(out, l.view(issue.MergeScopes(latest...), filter, l.now()))
			}
		}
	}()

	return out, release, nil
}

// scopes 个人范围加上用户所属的每个团队
func (l *IssueLogic) scopes(ctx context.Context, s *auth.Session) ([]store.ScopeFilter, error) {
	teams, err := l.store.ListTeamsForUser(ctx, s.Uid())
	if err != nil {
		return nil, apperr.Store("list teams", err)
	}
	scopes := make([]store.ScopeFilter, 0, len(teams)+1)
	scopes = append(scopes, store.Personal(s.Uid()))
	for _, t := range teams {
		scopes = append(scopes, store.Team(t.Id))
	}
	return scopes, nil
}

func (l *IssueLogic) scopeIssues(ctx context.Context, s *auth.Session) ([]model.IssueModel, error) {
	scopes, err := l.scopes(ctx, s)
	if err != nil {
		return nil, err
	}
	lists := make([][]model.IssueModel, 0, len(scopes))
	for _, scope := range scopes {
		issues, err := l.store.ListIssues(ctx, scope)
		if err != nil {
			return nil, apperr.Store("list issues", err)
		}
		lists = append(lists, issues)
	}
	return issue.MergeScopes(lists...), nil
}

func (l *IssueLogic) view(issues []model.IssueModel, filter issue.Filter, now time.Time) IssueList {
	return IssueList{
		Result:  issue.FilterAndSort(issues, filter),
		Summary: issue.Summarize(activeIssues(issues), now),
	}
}

func activeIssues(issues []model.IssueModel) []model.IssueModel {
	out := make([]model.IssueModel, 0, len(issues))
	for _, i := range issues {
		if !i.IsArchived {
			out = append(out, i)
		}
	}
	return out
}

// notifyAssigned 负责人不是操作者本人时发送 taskAssigned 通知
func (l *IssueLogic) notifyAssigned(ctx context.Context, s *auth.Session, item *model.IssueModel, assignee model.UserRef) {
	if assignee.IsZero() || assignee.Uid == s.Uid() {
		return
	}
	teamId := ""
	if item.TeamId != nil {
		teamId = *item.TeamId
	}
	sendNotification(ctx, l.store, &model.NotificationModel{
		RecipientId: assignee.Uid,
		SenderId:    s.Uid(),
		SenderName:  s.User.DisplayName,
		Type:        model.NotificationTypeTaskAssigned,
		Content:     fmt.Sprintf("%sさんがあなたに課題「%s」を割り当てました", s.User.DisplayName, item.Title),
		IssueId:     item.Id,
		TeamId:      teamId,
	}, l.now())
}
