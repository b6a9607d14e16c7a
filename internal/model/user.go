package model

import (
	"time"
)

// User 后援用户
// 身份注册与登录由外部用户服务负责,这里只保留后援所需的最小镜像
type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Nickname string `json:"nickname"`
}

// TableName 自定义表名
func (User) TableName() string {
	return "users"
}
