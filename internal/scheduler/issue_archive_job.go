package scheduler

import (
	"context"
	"time"

	"github.com/blues/tracker/internal/config"
	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/model"
	"github.com/blues/tracker/internal/store"
	"github.com/go-co-op/gocron/v2"
)

// IssueArchiveJob 归档长时间未更新的已完成课题
type IssueArchiveJob struct {
	store  store.IssueStore
	config *config.Config
	now    func() time.Time
}

// NewIssueArchiveJob 创建自动归档任务
func NewIssueArchiveJob(st store.IssueStore, cfg *config.Config) *IssueArchiveJob {
	return &IssueArchiveJob{
		store:  st,
		config: cfg,
		now:    time.Now,
	}
}

// GetName 获取任务名称
func (j *IssueArchiveJob) GetName() string {
	return "issue_auto_archiver"
}

// GetSchedule 获取调度配置
func (j *IssueArchiveJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *IssueArchiveJob) Execute() {
	logger.Debug("Starting issue auto archive task")
	archived, err := j.Run(context.Background())
	if err != nil {
		logger.Error("Issue auto archive failed: %v", err)
		return
	}
	logger.Info("Issue auto archive completed. Archived %d issues", archived)
}

// Run 归档 updatedAt 早于 archive_after_days 天前的已完成课题
func (j *IssueArchiveJob) Run(ctx context.Context) (int, error) {
	days := j.config.Task.ArchiveAfterDays
	if days <= 0 {
		return 0, nil
	}

	now := j.now()
	cutoff := now.AddDate(0, 0, -days)

	issues, err := j.store.ListAllIssues(ctx)
	if err != nil {
		return 0, err
	}

	archivedCount := 0
	for _, item := range issues {
		if item.IsArchived || item.Status != model.IssueStatusDone || !item.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := j.store.UpdateIssue(ctx, item.Id, map[string]interface{}{
			"is_archived": true,
			"archived_at": now,
			"updated_at":  now,
		}); err != nil {
			logger.Error("Failed to archive issue %s: %v", item.IssueNumber, err)
			continue
		}
		archivedCount++
	}
	return archivedCount, nil
}
