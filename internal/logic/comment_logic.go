package logic

import (
	"context"
	"strings"
	"time"

	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/mention"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/permission"
	"github.com/blues/tracker/internal/store"
	"gorm.io/datatypes"
)

// CommentResult 评论及提及通知的发送结果
type CommentResult struct {
	Comment  *model.CommentModel    `json:"comment"`
	Notified []string               `json:"notified"`
	Failed   []string               `json:"failed,omitempty"`
	Report   mention.DispatchReport `json:"-"`
}

// CommentLogic 评论业务逻辑
type CommentLogic struct {
	store      store.Store
	dispatcher *mention.Dispatcher
	now        func() time.Time
}

// NewCommentLogic 创建评论业务逻辑
func NewCommentLogic(s store.Store, dispatcher *mention.Dispatcher) *CommentLogic {
	return &CommentLogic{store: s, dispatcher: dispatcher, now: time.Now}
}

// AddComment 保存评论后向被提及的成员发送通知。
// 通知失败不影响评论本身；个人课题只能提及作者自己。
func (l *CommentLogic) AddComment(ctx context.Context, s *auth.Session, issueId, content string) (*CommentResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validation("评论内容不能为空")
	}

	item, err := l.store.GetIssue(ctx, issueId)
	if err != nil {
		return nil, err
	}
	members, err := l.commentMembers(ctx, s, item)
	if err != nil {
		return nil, err
	}

	mentioned := mention.ExtractMentions(content, members)
	comment := &model.CommentModel{
		Id:         newId(),
		CreatedAt:  l.now(),
		IssueId:    issueId,
		Content:    content,
		AuthorId:   s.Uid(),
		AuthorName: s.User.DisplayName,
		Mentions:   datatypes.JSONSlice[string](mention.Uids(mentioned)),
	}
	if err := l.store.CreateComment(ctx, comment); err != nil {
		return nil, apperr.Store("create comment", err)
	}

	teamId := ""
	if item.TeamId != nil {
		teamId = *item.TeamId
	}
	// 评论已写入，客户端断开后仍继续发送提及通知
	report := l.dispatcher.Dispatch(context.WithoutCancel(ctx), mentioned, mention.MentionContext{
		IssueId:   issueId,
		CommentId: comment.Id,
		TeamId:    teamId,
		Author:    s.User,
		Content:   content,
	})

	result := &CommentResult{
		Comment:  comment,
		Notified: report.Sent,
		Report:   report,
	}
	for _, f := range report.Failed {
		result.Failed = append(result.Failed, f.RecipientId)
	}
	return result, nil
}

// commentMembers 可以被提及的用户：团队课题为团队成员，个人课题为作者本人
func (l *CommentLogic) commentMembers(ctx context.Context, s *auth.Session, item *model.IssueModel) ([]model.TeamMember, error) {
	if item.IsPersonal() {
		if err := authorizeIssue(ctx, l.store, s.Uid(), item, actionView); err != nil {
			return nil, err
		}
		return []model.TeamMember{{
			Uid:         s.Uid(),
			DisplayName: s.User.DisplayName,
			PhotoURL:    s.User.PhotoURL,
		}}, nil
	}

	team, err := l.store.GetTeam(ctx, *item.TeamId)
	if err != nil {
		return nil, err
	}
	if err := permission.Require(team, s.Uid(), model.TeamRoleViewer); err != nil {
		return nil, err
	}
	return team.Members, nil
}

// ListComments 课题评论，按时间升序
func (l *CommentLogic) ListComments(ctx context.Context, s *auth.Session, issueId string) ([]model.CommentModel, error) {
	item, err := l.store.GetIssue(ctx, issueId)
	if err != nil {
		return nil, err
	}
	if err := authorizeIssue(ctx, l.store, s.Uid(), item, actionView); err != nil {
		return nil, err
	}
	comments, err := l.store.ListComments(ctx, issueId)
	if err != nil {
		return nil, apperr.Store("list comments", err)
	}
	return comments, nil
}

// DeleteComment 只有作者可以删除评论
func (l *CommentLogic) DeleteComment(ctx context.Context, s *auth.Session, issueId, commentId string) error {
	comment, err := l.store.GetComment(ctx, commentId)
	if err != nil {
		return err
	}
	if comment.IssueId != issueId {
		return apperr.NotFound("评论不存在: %s", commentId)
	}
	if comment.AuthorId != s.Uid() {
		return apperr.PermissionDenied("只有作者可以删除评论")
	}
	if err := l.store.DeleteComment(ctx, commentId); err != nil {
		return apperr.Store("delete comment", err)
	}
	return nil
}
