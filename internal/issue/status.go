// Package issue 课题的核心规则：状态推导、编号格式、筛选排序与汇总统计。
// 这里的函数都是纯函数，不修改入参。
package issue

import (
	"github.com/blues/tracker/internal/apperr"
	"github.com/blues/tracker/internal/model"
)

const (
	MinProgress = 0
	MaxProgress = 100
)

// DeriveStatus 根据进度推导状态：0 为未着手，100 为完了，其余为進行中
func DeriveStatus(progress int) model.IssueStatus {
	switch {
	case progress <= MinProgress:
		return model.IssueStatusNotStarted
	case progress >= MaxProgress:
		return model.IssueStatusDone
	default:
		return model.IssueStatusInProgress
	}
}

// ValidateProgress 进度必须在 0-100 之间，越界直接拒绝而不是截断
func ValidateProgress(progress int) error {
	if progress < MinProgress || progress > MaxProgress {
		return apperr.Validation("进度必须在0-100之间: %d", progress)
	}
	return nil
}

// IsStale 状态与进度不一致
func IsStale(i *model.IssueModel) bool {
	return i.Status != DeriveStatus(i.Progress)
}
