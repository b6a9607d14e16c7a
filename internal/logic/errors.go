package logic

import (
	"errors"
	"net/http"
)

// ErrorCode 业务错误码,随错误响应返回给调用方
type ErrorCode string

const (
	CodeUserNotFound        ErrorCode = "USER_NOT_FOUND"
	CodeProjectNotFound     ErrorCode = "PROJECT_NOT_FOUND"
	CodeRewardNotFound      ErrorCode = "REWARD_NOT_FOUND"
	CodeRewardNotMatched    ErrorCode = "REWARD_NOT_MATCHED"
	CodeProjectNotAvailable ErrorCode = "PROJECT_NOT_AVAILABLE"
	CodeRewardOutOfStock    ErrorCode = "REWARD_OUT_OF_STOCK"
	CodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
)

// APIError 携带错误码和HTTP状态的业务错误
type APIError struct {
	Code    ErrorCode
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return string(e.Code) + ": " + e.Message
}

var (
	ErrUserNotFound        = &APIError{Code: CodeUserNotFound, Status: http.StatusNotFound, Message: "用户不存在"}
	ErrProjectNotFound     = &APIError{Code: CodeProjectNotFound, Status: http.StatusNotFound, Message: "项目不存在"}
	ErrRewardNotFound      = &APIError{Code: CodeRewardNotFound, Status: http.StatusNotFound, Message: "回报不存在"}
	ErrRewardNotMatched    = &APIError{Code: CodeRewardNotMatched, Status: http.StatusBadRequest, Message: "回报不属于该项目"}
	ErrProjectNotAvailable = &APIError{Code: CodeProjectNotAvailable, Status: http.StatusConflict, Message: "项目不在可后援状态"}
	ErrRewardOutOfStock    = &APIError{Code: CodeRewardOutOfStock, Status: http.StatusConflict, Message: "回报库存不足"}
	ErrConcurrencyConflict = &APIError{Code: CodeConcurrencyConflict, Status: http.StatusConflict, Message: "并发更新冲突,请稍后重试"}
)

// AsAPIError 提取业务错误
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
