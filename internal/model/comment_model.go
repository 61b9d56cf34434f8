package model

import (
	"time"

	"gorm.io/datatypes"
)

// CommentModel 课题评论
type CommentModel struct {
	Id        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"createdAt"`

	IssueId    string                      `json:"issueId" gorm:"type:varchar(36);not null;index"`
	Content    string                      `json:"content" gorm:"type:text;not null"` // 原文，包含 @[uid:displayName]
	AuthorId   string                      `json:"authorId" gorm:"type:varchar(128);not null"`
	AuthorName string                      `json:"authorName"`
	Mentions   datatypes.JSONSlice[string] `json:"mentions"` // 提交时解析的 uid 快照
}

// TableName 自定义表名
func (CommentModel) TableName() string {
	return "comment"
}

// ChatMessageModel 课题聊天消息
type ChatMessageModel struct {
	Id        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"createdAt"`

	IssueId    string `json:"issueId" gorm:"type:varchar(36);not null;index"`
	SenderId   string `json:"senderId" gorm:"type:varchar(128);not null"`
	SenderName string `json:"senderName"`
	Content    string `json:"content" gorm:"type:text;not null"`
}

// TableName 自定义表名
func (ChatMessageModel) TableName() string {
	return "chat_message"
}
