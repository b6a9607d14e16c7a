package handler

import (
	"net/http"

	"github.com/fundy/fls/internal/logic"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
	})
}

// APIErrorResponse 业务错误响应,错误码与HTTP状态一一对应
func APIErrorResponse(c *gin.Context, err error) {
	if apiErr, ok := logic.AsAPIError(err); ok {
		c.JSON(apiErr.Status, Response{
			Success: false,
			Code:    string(apiErr.Code),
			Message: apiErr.Message,
		})
		return
	}
	ErrorResponse(c, http.StatusInternalServerError, err.Error())
}
