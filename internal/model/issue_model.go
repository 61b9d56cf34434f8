package model

import (
	"time"

	"gorm.io/datatypes"
)

// IssueModel 课题模型
type IssueModel struct {
	Id          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	IssueNumber string    `json:"issueNumber" gorm:"uniqueIndex;not null"` // ISSUE-00001
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// 基本信息
	Title              string `json:"title" gorm:"not null"`
	Description        string `json:"description" gorm:"type:text"`
	CompletionCriteria string `json:"completionCriteria" gorm:"type:text"`
	Solution           string `json:"solution" gorm:"type:text"`

	// 状态与进度
	Status   IssueStatus   `json:"status" gorm:"type:varchar(16);index"`
	Priority IssuePriority `json:"priority" gorm:"type:varchar(16)"`
	Progress int           `json:"progress" gorm:"default:0"` // 0-100

	// 时间信息
	DueDate        *time.Time `json:"dueDate" gorm:"index"`
	OccurrenceDate *time.Time `json:"occurrenceDate"`

	// 人员
	Assignee  UserRef `json:"assignee" gorm:"embedded;embeddedPrefix:assignee_"`
	CreatedBy UserRef `json:"createdBy" gorm:"embedded;embeddedPrefix:created_by_"`

	// 归属与可见性
	TeamId    *string                     `json:"teamId" gorm:"type:varchar(36);index"` // nil 表示个人课题
	IsPrivate bool                        `json:"isPrivate" gorm:"default:false"`
	Watchers  datatypes.JSONSlice[string] `json:"watchers"`

	// 归档
	IsArchived bool       `json:"is_archived" gorm:"default:false;index"`
	ArchivedAt *time.Time `json:"archived_at"`

	Comments []CommentModel `json:"comments,omitempty" gorm:"-"`
}

// IssueStatus 课题状态
type IssueStatus string

const (
	IssueStatusNotStarted IssueStatus = "未着手" // 未开始
	IssueStatusInProgress IssueStatus = "進行中" // 进行中
	IssueStatusDone       IssueStatus = "完了"  // 已完成
)

// Valid 是否为已知状态
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusNotStarted, IssueStatusInProgress, IssueStatusDone:
		return true
	}
	return false
}

// IssuePriority 课题优先级
type IssuePriority string

const (
	IssuePriorityHigh   IssuePriority = "高"
	IssuePriorityMedium IssuePriority = "中"
	IssuePriorityLow    IssuePriority = "低"
)

// Valid 是否为已知优先级
func (p IssuePriority) Valid() bool {
	switch p {
	case IssuePriorityHigh, IssuePriorityMedium, IssuePriorityLow:
		return true
	}
	return false
}

// IsPersonal 个人课题没有所属团队
func (i *IssueModel) IsPersonal() bool {
	return i.TeamId == nil || *i.TeamId == ""
}

// HasWatcher 判断用户是否在关注列表中
func (i *IssueModel) HasWatcher(uid string) bool {
	for _, w := range i.Watchers {
		if w == uid {
			return true
		}
	}
	return false
}

// TableName 自定义表名
func (IssueModel) TableName() string {
	return "issue"
}

// IssueCounterModel 课题编号计数器
type IssueCounterModel struct {
	Name  string `gorm:"primaryKey;type:varchar(32)"`
	Value int64  `gorm:"not null;default:0"`
}

// TableName 自定义表名
func (IssueCounterModel) TableName() string {
	return "issue_counter"
}
