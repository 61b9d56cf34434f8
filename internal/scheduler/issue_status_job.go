package scheduler

import (
	"context"
	"time"

	"github.com/blues/tracker/internal/config"
	"github.com/blues/tracker/internal/issue"
	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/store"
	"github.com/go-co-op/gocron/v2"
)

// IssueStatusJob 修复状态与进度不一致的课题
type IssueStatusJob struct {
	store  store.IssueStore
	config *config.Config
	now    func() time.Time
}

// NewIssueStatusJob 创建状态修复任务
func NewIssueStatusJob(st store.IssueStore, cfg *config.Config) *IssueStatusJob {
	return &IssueStatusJob{
		store:  st,
		config: cfg,
		now:    time.Now,
	}
}

// GetName 获取任务名称
func (j *IssueStatusJob) GetName() string {
	return "issue_status_reconciler"
}

// GetSchedule 获取调度配置
func (j *IssueStatusJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *IssueStatusJob) Execute() {
	logger.Debug("Starting issue status reconcile task")
	updated, err := j.Run(context.Background())
	if err != nil {
		logger.Error("Issue status reconcile failed: %v", err)
		return
	}
	logger.Info("Issue status reconcile completed. Updated %d issues", updated)
}

// Run 重新推导每个课题的状态，返回更新数量
func (j *IssueStatusJob) Run(ctx context.Context) (int, error) {
	issues, err := j.store.ListAllIssues(ctx)
	if err != nil {
		return 0, err
	}

	updatedCount := 0
	for _, item := range issues {
		if !issue.IsStale(&item) {
			continue
		}

		newStatus := issue.DeriveStatus(item.Progress)
		written, err := j.store.UpdateIssueIfProgress(ctx, item.Id, item.Progress, map[string]interface{}{
			"status":     newStatus,
			"updated_at": j.now(),
		})
		if err != nil {
			logger.Error("Failed to update issue %s status: %v", item.IssueNumber, err)
			continue
		}
		if !written {
			logger.Debug("Issue %s progress changed since read, skipped", item.IssueNumber)
			continue
		}

		logger.Info("Updated issue %s status from %s to %s", item.IssueNumber, item.Status, newStatus)
		updatedCount++
	}
	return updatedCount, nil
}
