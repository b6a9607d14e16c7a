package model

import (
	"time"
)

// NextStatus 计算项目在给定日期下应进入的下一个状态。
// 纯函数:只依赖传入的参数,不读库、不取当前时间,便于任意模拟日期下测试。
// 第二个返回值为 false 表示当前没有可执行的迁移。
// 状态只会沿着
// APPROVED -> IN_PROGRESS -> COMPLETED/FAILED 单向推进,终态不再迁移。
func NextStatus(status ProjectStatus, startDate, deadline time.Time, currentAmount, goalAmount int64, today time.Time) (ProjectStatus, bool) {
	switch status {
	case ProjectStatusApproved:
		// 截止日已过的项目直接结算,即使从未进入过进行中
		if deadline.Before(today) {
			return settle(currentAmount, goalAmount), true
		}
		if !startDate.After(today) {
			return ProjectStatusInProgress, true
		}

	case ProjectStatusInProgress:
		if deadline.Before(today) {
			return settle(currentAmount, goalAmount), true
		}
	}

	// WAITING_APPROVAL 由管理端审核推进,COMPLETED/FAILED 为终态
	return status, false
}

// settle 按筹款结果决定结算状态
func settle(currentAmount, goalAmount int64) ProjectStatus {
	if currentAmount >= goalAmount {
		return ProjectStatusCompleted
	}
	return ProjectStatusFailed
}
