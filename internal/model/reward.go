package model

import (
	"time"
)

// RewardStockUnlimited 无限库存的哨兵值
const RewardStockUnlimited int64 = -1

// Reward 项目回报档位模型
type Reward struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectID uint   `json:"project_id" gorm:"not null;index"`
	Title     string `json:"title" gorm:"not null"`
	Price     int64  `json:"price" gorm:"not null" binding:"required,min=1"` // 单价
	Stock     int64  `json:"stock" gorm:"default:-1"`                        // 剩余库存,-1 表示不限量
}

// TableName 自定义表名
func (Reward) TableName() string {
	return "rewards"
}

// Unlimited 是否为不限量回报
func (r *Reward) Unlimited() bool {
	return r.Stock == RewardStockUnlimited
}
