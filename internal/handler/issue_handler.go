package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/blues/tracker/internal/auth"
	"github.com/blues/tracker/internal/issue"
	"github.com/blues/tracker/internal/logic"
	"github.com/blues/tracker/internal/model"
	"github.com/gin-gonic/gin"
)

type IssueHandler struct {
	issueLogic *logic.IssueLogic
	auth       auth.Provider
	location   *time.Location
}

func NewIssueHandler(issueLogic *logic.IssueLogic, provider auth.Provider) *IssueHandler {
	return &IssueHandler{
		issueLogic: issueLogic,
		auth:       provider,
		location:   time.Local,
	}
}

// CreateIssue 创建课题
func (h *IssueHandler) CreateIssue(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}

	var input logic.IssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.issueLogic.CreateIssue(c.Request.Context(), s, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "课题创建成功", item)
}

// parseFilter 解析列表查询参数。未传 team 时不按团队筛选，team= 表示仅个人课题。
func (h *IssueHandler) parseFilter(c *gin.Context) (issue.Filter, error) {
	team, present := c.GetQuery("team")
	if !present {
		team = issue.TeamAll
	}

	start, end, err := issue.ParseDateRange(c.Query("startDate"), c.Query("endDate"), h.location)
	if err != nil {
		return issue.Filter{}, err
	}

	includeArchived, _ := strconv.ParseBool(c.DefaultQuery("includeArchived", "false"))
	return issue.Filter{
		Keyword:         c.Query("keyword"),
		Team:            team,
		Status:          model.IssueStatus(c.Query("status")),
		Priority:        model.IssuePriority(c.Query("priority")),
		Assignee:        c.Query("assignee"),
		StartDate:       start,
		EndDate:         end,
		SortBy:          issue.SortKey(c.DefaultQuery("sortBy", string(issue.SortDefault))),
		SortOrder:       issue.SortOrder(c.DefaultQuery("sortOrder", string(issue.SortAsc))),
		IncludeArchived: includeArchived,
	}, nil
}

// ListIssues 获取课题列表
func (h *IssueHandler) ListIssues(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	filter, err := h.parseFilter(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	list, err := h.issueLogic.ListIssues(c.Request.Context(), s, filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", list)
}

// GetSummary 课题汇总
func (h *IssueHandler) GetSummary(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	summary, err := h.issueLogic.Summary(c.Request.Context(), s)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", summary)
}

// StreamIssues 以 SSE 推送列表视图，连接断开时释放订阅
func (h *IssueHandler) StreamIssues(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	filter, err := h.parseFilter(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	ctx := c.Request.Context()
	ch, cancel, err := h.issueLogic.Subscribe(ctx, s, filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case list, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("issues", list)
			return true
		}
	})
}

// GetIssue 获取课题详情
func (h *IssueHandler) GetIssue(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	item, err := h.issueLogic.GetIssue(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", item)
}

// UpdateIssue 更新课题
func (h *IssueHandler) UpdateIssue(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}

	// 只允许更新特定字段
	var patch logic.IssuePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.issueLogic.UpdateIssue(c.Request.Context(), s, c.Param("id"), patch)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "课题更新成功", item)
}

// DeleteIssue 删除课题
func (h *IssueHandler) DeleteIssue(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	if err := h.issueLogic.DeleteIssue(c.Request.Context(), s, c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "课题已删除", nil)
}

// ArchiveIssue 归档课题
func (h *IssueHandler) ArchiveIssue(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	item, err := h.issueLogic.ArchiveIssue(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "课题已归档", item)
}

// UnarchiveIssue 取消归档
func (h *IssueHandler) UnarchiveIssue(c *gin.Context) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	item, err := h.issueLogic.UnarchiveIssue(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "课题已取消归档", item)
}

// WatchIssue 关注课题
func (h *IssueHandler) WatchIssue(c *gin.Context) {
	h.watch(c, true)
}

// UnwatchIssue 取消关注
func (h *IssueHandler) UnwatchIssue(c *gin.Context) {
	h.watch(c, false)
}

func (h *IssueHandler) watch(c *gin.Context, watch bool) {
	s, ok := currentSession(c, h.auth)
	if !ok {
		return
	}
	item, err := h.issueLogic.Watch(c.Request.Context(), s, c.Param("id"), watch)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", item)
}
