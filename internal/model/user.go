package model

// UserRef 用户引用（负责人、创建者、被提及用户）
type UserRef struct {
	Uid         string `json:"uid" gorm:"type:varchar(128)"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// IsZero 未设置用户
func (u UserRef) IsZero() bool {
	return u.Uid == ""
}
