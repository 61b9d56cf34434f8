package issue

import (
	"slices"
	"time"

	"github.com/blues/tracker/internal/model"
)

// DueSoonDays 即将到期窗口（天）
const DueSoonDays = 7

// Summary 课题汇总
type Summary struct {
	TotalIssues      int                `json:"totalIssues"`
	CompletedIssues  int                `json:"completedIssues"`
	InProgressIssues int                `json:"inProgressIssues"`
	NotStartedIssues int                `json:"notStartedIssues"`
	OverdueIssues    []model.IssueModel `json:"overdueIssues"`
	DueSoonIssues    []model.IssueModel `json:"dueSoonIssues"`
}

// Summarize 汇总计数、逾期列表与即将到期列表。
// now 由调用方采样一次，同一次汇总内的 7 天窗口保持一致。
func Summarize(issues []model.IssueModel, now time.Time) Summary {
	summary := Summary{
		OverdueIssues: []model.IssueModel{},
		DueSoonIssues: []model.IssueModel{},
	}
	if len(issues) == 0 {
		return summary
	}

	horizon := now.AddDate(0, 0, DueSoonDays)
	summary.TotalIssues = len(issues)

	for _, item := range issues {
		switch item.Status {
		case model.IssueStatusDone:
			summary.CompletedIssues++
			continue
		case model.IssueStatusInProgress:
			summary.InProgressIssues++
		case model.IssueStatusNotStarted:
			summary.NotStartedIssues++
		}

		if item.DueDate == nil {
			continue
		}
		due := *item.DueDate
		switch {
		case due.Before(now):
			summary.OverdueIssues = append(summary.OverdueIssues, item)
		case !due.After(horizon):
			summary.DueSoonIssues = append(summary.DueSoonIssues, item)
		}
	}

	slices.SortStableFunc(summary.OverdueIssues, compareDeadline)
	slices.SortStableFunc(summary.DueSoonIssues, compareDeadline)

	return summary
}

// compareDeadline 截止日期升序，相同日期时高优先级在前
func compareDeadline(a, b model.IssueModel) int {
	if d := compareDueDate(a.DueDate, b.DueDate); d != 0 {
		return d
	}
	return PriorityRank(a.Priority) - PriorityRank(b.Priority)
}
