package model

import (
	"time"
)

// Project 众筹项目模型
type Project struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	UserID string `json:"user_id" gorm:"not null;index"` // 发起项目的创作者
	Title  string `json:"title" gorm:"not null" binding:"required"`

	// 众筹信息
	GoalAmount    int64 `json:"goal_amount" gorm:"not null" binding:"required,min=1"` // 目标金额,创建后不可修改
	CurrentAmount int64 `json:"current_amount" gorm:"default:0"`                      // 当前累计后援金额

	// 时间信息
	StartDate time.Time `json:"start_date" gorm:"not null"`
	Deadline  time.Time `json:"deadline" gorm:"not null"` // 必须晚于开始日期

	// 状态
	Status ProjectStatus `json:"status" gorm:"default:'WAITING_APPROVAL'"`
}

// TableName 自定义表名
func (Project) TableName() string {
	return "projects"
}

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusWaitingApproval ProjectStatus = "WAITING_APPROVAL" // 待审核
	ProjectStatusApproved        ProjectStatus = "APPROVED"         // 已审核,未开始
	ProjectStatusInProgress      ProjectStatus = "IN_PROGRESS"      // 进行中
	ProjectStatusCompleted       ProjectStatus = "COMPLETED"        // 达成目标
	ProjectStatusFailed          ProjectStatus = "FAILED"           // 未达成目标
)

// Pledgeable 项目是否处于可接受后援的状态
func (s ProjectStatus) Pledgeable() bool {
	return s == ProjectStatusApproved || s == ProjectStatusInProgress
}

// Terminal 是否为终态,终态项目不再发生任何状态迁移
func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusFailed
}
