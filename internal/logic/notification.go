package logic

import (
	"github.com/fundy/fls/internal/logger"
)

// NotificationEvent 通知事件类型
type NotificationEvent string

const (
	EventProjectCompleted NotificationEvent = "PROJECT_COMPLETED" // 项目达成结算
	EventProjectFailed    NotificationEvent = "PROJECT_FAILED"    // 项目未达成结算
)

// NotificationHook 项目结算通知钩子
// 消息的实际投递由外部通知服务完成,这里只负责触发
type NotificationHook interface {
	Notify(event NotificationEvent, projectID uint, userID string)
}

// LogNotificationHook 默认实现,只记录日志
type LogNotificationHook struct{}

// Notify 记录一条通知日志
func (LogNotificationHook) Notify(event NotificationEvent, projectID uint, userID string) {
	logger.Info("Notification fired: event=%s project=%d user=%s", event, projectID, userID)
}
