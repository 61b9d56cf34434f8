package model

import (
	"time"
)

// NotificationModel 通知
type NotificationModel struct {
	Id        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"createdAt"`

	RecipientId string           `json:"recipientId" gorm:"type:varchar(128);not null;index"`
	SenderId    string           `json:"senderId" gorm:"type:varchar(128)"`
	SenderName  string           `json:"senderName"`
	Type        NotificationType `json:"type" gorm:"type:varchar(32);not null"`
	Content     string           `json:"content" gorm:"type:text"`
	IssueId     string           `json:"issueId,omitempty" gorm:"type:varchar(36)"`
	CommentId   string           `json:"commentId,omitempty" gorm:"type:varchar(36)"`
	TeamId      string           `json:"teamId,omitempty" gorm:"type:varchar(36)"`
	Read        bool             `json:"read" gorm:"default:false;index"`
}

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeMention      NotificationType = "mention"      // 评论中被提及
	NotificationTypeTeamInvite   NotificationType = "teamInvite"   // 团队邀请
	NotificationTypeTaskAssigned NotificationType = "taskAssigned" // 被指派课题
)

// TableName 自定义表名
func (NotificationModel) TableName() string {
	return "notification"
}
