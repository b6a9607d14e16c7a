package model

import (
	"time"
)

// Pledge 后援记录
// 账本条目只增不改:创建后不会被更新或删除
type Pledge struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ProjectID uint   `json:"project_id" gorm:"not null;index"`
	RewardID  uint   `json:"reward_id" gorm:"not null;index"`
	UserID    string `json:"user_id" gorm:"not null;index"`

	// 金额信息
	Quantity         int64 `json:"quantity" gorm:"not null;default:1"`
	AdditionalAmount int64 `json:"additional_amount" gorm:"not null;default:0"` // 额外无偿后援金
	TotalAmount      int64 `json:"total_amount" gorm:"not null"`                // 单价*数量+额外金额

	// 配送信息
	DeliveryAddress string `json:"delivery_address"`
	DeliveryPhone   string `json:"delivery_phone"`
	RecipientName   string `json:"recipient_name"`
}

// TableName 自定义表名
func (Pledge) TableName() string {
	return "pledges"
}
