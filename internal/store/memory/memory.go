// Package memory 进程内存储实现，写入后立即向订阅者推送最新快照。
// 用于开发模式（database.driver=memory）和测试。
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/store"
)

type issueSub struct {
	scope store.ScopeFilter
	ch    chan []model.IssueModel
}

type chatSub struct {
	issueId string
	ch      chan []model.ChatMessageModel
}

// Store 内存存储，并发安全
type Store struct {
	mu sync.RWMutex

	issues        map[string]model.IssueModel
	teams         map[string]model.TeamModel
	invitations   map[string]model.TeamInvitationModel
	comments      map[string]model.CommentModel
	notifications map[string]model.NotificationModel
	chat          map[string][]model.ChatMessageModel // issueId -> messages
	issueSeq      int64

	nextSubId int
	issueSubs map[int]*issueSub
	chatSubs  map[int]*chatSub
}

var _ store.Store = (*Store)(nil)

// New 创建空的内存存储
func New() *Store {
	return &Store{
		issues:        make(map[string]model.IssueModel),
		teams:         make(map[string]model.TeamModel),
		invitations:   make(map[string]model.TeamInvitationModel),
		comments:      make(map[string]model.CommentModel),
		notifications: make(map[string]model.NotificationModel),
		chat:          make(map[string][]model.ChatMessageModel),
		issueSubs:     make(map[int]*issueSub),
		chatSubs:      make(map[int]*chatSub),
	}
}

// CreateIssue 保存新课题
func (s *Store) CreateIssue(_ context.Context, issue *model.IssueModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.issues[issue.Id]; exists {
		return apperr.Validation("课题已存在: %s", issue.Id)
	}
	s.issues[issue.Id] = cloneIssue(*issue)
	s.publishIssuesLocked()
	return nil
}

// GetIssue 获取课题
func (s *Store) GetIssue(_ context.Context, id string) (*model.IssueModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, apperr.NotFound("课题不存在: %s", id)
	}
	out := cloneIssue(issue)
	return &out, nil
}

// UpdateIssue 部分更新课题
func (s *Store) UpdateIssue(_ context.Context, id string, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return apperr.NotFound("课题不存在: %s", id)
	}
	if err := applyIssueUpdates(&issue, updates); err != nil {
		return err
	}
	s.issues[id] = issue
	s.publishIssuesLocked()
	return nil
}

// UpdateIssueIfProgress 进度比较与写入在同一把锁内完成
func (s *Store) UpdateIssueIfProgress(_ context.Context, id string, progress int, updates map[string]interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return false, apperr.NotFound("课题不存在: %s", id)
	}
	if issue.Progress != progress {
		return false, nil
	}
	if err := applyIssueUpdates(&issue, updates); err != nil {
		return false, err
	}
	s.issues[id] = issue
	s.publishIssuesLocked()
	return true, nil
}

// DeleteIssue 删除课题，评论与通知不级联删除
func (s *Store) DeleteIssue(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issues[id]; !ok {
		return apperr.NotFound("课题不存在: %s", id)
	}
	delete(s.issues, id)
	s.publishIssuesLocked()
	return nil
}

// ListIssues 按范围列出课题，按创建时间升序
func (s *Store) ListIssues(_ context.Context, scope store.ScopeFilter) ([]model.IssueModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listIssuesLocked(func(i *model.IssueModel) bool { return scope.Matches(i) }), nil
}

// ListAllIssues 列出全部课题
func (s *Store) ListAllIssues(_ context.Context) ([]model.IssueModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listIssuesLocked(func(*model.IssueModel) bool { return true }), nil
}

// NextIssueNumber 分配下一个课题序号
func (s *Store) NextIssueNumber(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issueSeq++
	return s.issueSeq, nil
}

// SubscribeIssues 订阅范围内的课题快照，订阅时立即推送一次
func (s *Store) SubscribeIssues(ctx context.Context, scope store.ScopeFilter) (<-chan []model.IssueModel, store.CancelFunc, error) {
	s.mu.Lock()
	id := s.nextSubId
	s.nextSubId++
	sub := &issueSub{scope: scope, ch: make(chan []model.IssueModel, 1)}
	s.issueSubs[id] = sub
	store.Offer(sub.ch, s.listIssuesLocked(func(i *model.IssueModel) bool { return scope.Matches(i) }))
	s.mu.Unlock()

	cancel := s.cancelOnDone(ctx, func() {
		if sub, ok := s.issueSubs[id]; ok {
			delete(s.issueSubs, id)
			close(sub.ch)
		}
	})
	return sub.ch, cancel, nil
}

func (s *Store) listIssuesLocked(match func(*model.IssueModel) bool) []model.IssueModel {
	out := make([]model.IssueModel, 0)
	for _, issue := range s.issues {
		if match(&issue) {
			out = append(out, cloneIssue(issue))
		}
	}
	slices.SortFunc(out, func(a, b model.IssueModel) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.IssueNumber, b.IssueNumber)
	})
	return out
}

func (s *Store) publishIssuesLocked() {
	for _, sub := range s.issueSubs {
		scope := sub.scope
		store.Offer(sub.ch, s.listIssuesLocked(func(i *model.IssueModel) bool { return scope.Matches(i) }))
	}
}

// cancelOnDone 返回幂等的取消函数，ctx 结束时自动取消
func (s *Store) cancelOnDone(ctx context.Context, release func()) store.CancelFunc {
	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			s.mu.Lock()
			release()
			s.mu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return cancel
}

// CreateTeam 保存团队
func (s *Store) CreateTeam(_ context.Context, team *model.TeamModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.teams[team.Id]; exists {
		return apperr.Validation("团队已存在: %s", team.Id)
	}
	s.teams[team.Id] = cloneTeam(*team)
	return nil
}

// GetTeam 获取团队
func (s *Store) GetTeam(_ context.Context, id string) (*model.TeamModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	team, ok := s.teams[id]
	if !ok {
		return nil, apperr.NotFound("团队不存在: %s", id)
	}
	out := cloneTeam(team)
	return &out, nil
}

// UpdateTeam 部分更新团队
func (s *Store) UpdateTeam(_ context.Context, id string, updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	team, ok := s.teams[id]
	if !ok {
		return apperr.NotFound("团队不存在: %s", id)
	}
	if err := applyTeamUpdates(&team, updates); err != nil {
		return err
	}
	s.teams[id] = team
	return nil
}

// DeleteTeam 删除团队
func (s *Store) DeleteTeam(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return apperr.NotFound("团队不存在: %s", id)
	}
	delete(s.teams, id)
	return nil
}

// ListTeamsForUser 用户作为成员或创建者的团队
func (s *Store) ListTeamsForUser(_ context.Context, uid string) ([]model.TeamModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TeamModel, 0)
	for _, team := range s.teams {
		if _, member := team.FindMember(uid); member || team.AdminId == uid {
			out = append(out, cloneTeam(team))
		}
	}
	slices.SortFunc(out, func(a, b model.TeamModel) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// CreateInvitation 保存邀请
func (s *Store) CreateInvitation(_ context.Context, inv *model.TeamInvitationModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invitations[inv.Id] = *inv
	return nil
}

// GetInvitation 获取邀请
func (s *Store) GetInvitation(_ context.Context, id string) (*model.TeamInvitationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invitations[id]
	if !ok {
		return nil, apperr.NotFound("邀请不存在: %s", id)
	}
	return &inv, nil
}

// ListPendingInvitations 待处理的邀请
func (s *Store) ListPendingInvitations(_ context.Context, inviteeId string) ([]model.TeamInvitationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TeamInvitationModel, 0)
	for _, inv := range s.invitations {
		if inv.InviteeId == inviteeId && inv.Status == model.InvitationStatusPending {
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b model.TeamInvitationModel) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// UpdateInvitationStatus 更新邀请状态
func (s *Store) UpdateInvitationStatus(_ context.Context, id string, status model.InvitationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[id]
	if !ok {
		return apperr.NotFound("邀请不存在: %s", id)
	}
	inv.Status = status
	inv.UpdatedAt = time.Now()
	s.invitations[id] = inv
	return nil
}

// CreateComment 保存评论
func (s *Store) CreateComment(_ context.Context, c *model.CommentModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *c
	saved.Mentions = slices.Clone(c.Mentions)
	s.comments[c.Id] = saved
	return nil
}

// GetComment 获取评论
func (s *Store) GetComment(_ context.Context, id string) (*model.CommentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, apperr.NotFound("评论不存在: %s", id)
	}
	return &c, nil
}

// ListComments 课题下的评论，按时间升序
func (s *Store) ListComments(_ context.Context, issueId string) ([]model.CommentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CommentModel, 0)
	for _, c := range s.comments {
		if c.IssueId == issueId {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b model.CommentModel) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// DeleteComment 删除评论
func (s *Store) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return apperr.NotFound("评论不存在: %s", id)
	}
	delete(s.comments, id)
	return nil
}

// CreateNotification 保存通知
func (s *Store) CreateNotification(_ context.Context, n *model.NotificationModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.Id] = *n
	return nil
}

// ListNotifications 接收者的通知，最新的在前
func (s *Store) ListNotifications(_ context.Context, recipientId string) ([]model.NotificationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.NotificationModel, 0)
	for _, n := range s.notifications {
		if n.RecipientId == recipientId {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b model.NotificationModel) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// MarkNotificationRead 标记已读，只能操作自己的通知
func (s *Store) MarkNotificationRead(_ context.Context, id, recipientId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.RecipientId != recipientId {
		return apperr.NotFound("通知不存在: %s", id)
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

// MarkAllNotificationsRead 全部标记已读，返回更新条数
func (s *Store) MarkAllNotificationsRead(_ context.Context, recipientId string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, n := range s.notifications {
		if n.RecipientId == recipientId && !n.Read {
			n.Read = true
			s.notifications[id] = n
			count++
		}
	}
	return count, nil
}

// CountUnreadNotifications 未读数量
func (s *Store) CountUnreadNotifications(_ context.Context, recipientId string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, n := range s.notifications {
		if n.RecipientId == recipientId && !n.Read {
			count++
		}
	}
	return count, nil
}

// CreateChatMessage 追加聊天消息
func (s *Store) CreateChatMessage(_ context.Context, m *model.ChatMessageModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chat[m.IssueId] = append(s.chat[m.IssueId], *m)
	for _, sub := range s.chatSubs {
		if sub.issueId == m.IssueId {
			store.Offer(sub.ch, slices.Clone(s.chat[m.IssueId]))
		}
	}
	return nil
}

// ListChatMessages 课题聊天记录，按追加顺序
func (s *Store) ListChatMessages(_ context.Context, issueId string) ([]model.ChatMessageModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.chat[issueId])
	if out == nil {
		out = []model.ChatMessageModel{}
	}
	return out, nil
}

// SubscribeChat 订阅课题聊天
func (s *Store) SubscribeChat(ctx context.Context, issueId string) (<-chan []model.ChatMessageModel, store.CancelFunc, error) {
	s.mu.Lock()
	id := s.nextSubId
	s.nextSubId++
	sub := &chatSub{issueId: issueId, ch: make(chan []model.ChatMessageModel, 1)}
	s.chatSubs[id] = sub
	initial := slices.Clone(s.chat[issueId])
	if initial == nil {
		initial = []model.ChatMessageModel{}
	}
	store.Offer(sub.ch, initial)
	s.mu.Unlock()

	cancel := s.cancelOnDone(ctx, func() {
		if sub, ok := s.chatSubs[id]; ok {
			delete(s.chatSubs, id)
			close(sub.ch)
		}
	})
	return sub.ch, cancel, nil
}
