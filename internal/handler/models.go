package handler

import (
	"time"

	"github.com/fundy/fls/internal/logic"
)

// Response 统一响应格式
type Response struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CreatePledgeRequest 后援请求
type CreatePledgeRequest struct {
	ProjectNo        uint   `json:"project_no" binding:"required"`
	RewardNo         uint   `json:"reward_no" binding:"required"`
	Quantity         int64  `json:"quantity" binding:"omitempty,min=1"`
	AdditionalAmount int64  `json:"additional_amount" binding:"omitempty,min=0"`
	DeliveryAddress  string `json:"delivery_address" binding:"required"`
	DeliveryPhone    string `json:"delivery_phone" binding:"required"`
	RecipientName    string `json:"recipient_name" binding:"required"`
}

// PledgeResponse 后援确认响应
type PledgeResponse struct {
	PledgeNo     uint   `json:"pledge_no"`
	ProjectNo    uint   `json:"project_no"`
	ProjectTitle string `json:"project_title"`
	RewardTitle  string `json:"reward_title"`
	TotalAmount  int64  `json:"total_amount"`
}

// MyPledgeResponse 用户后援记录响应
type MyPledgeResponse struct {
	PledgeNo        uint      `json:"pledge_no"`
	ProjectNo       uint      `json:"project_no"`
	ProjectTitle    string    `json:"project_title"`
	RewardTitle     string    `json:"reward_title"`
	TotalAmount     int64     `json:"total_amount"`
	DeliveryAddress string    `json:"delivery_address"`
	DeliveryPhone   string    `json:"delivery_phone"`
	RecipientName   string    `json:"recipient_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// ToPledgeResponse 转换确认信息
func ToPledgeResponse(c *logic.PledgeConfirmation) PledgeResponse {
	return PledgeResponse{
		PledgeNo:     c.PledgeNo,
		ProjectNo:    c.ProjectNo,
		ProjectTitle: c.ProjectTitle,
		RewardTitle:  c.RewardTitle,
		TotalAmount:  c.TotalAmount,
	}
}

// ToMyPledgeResponseList 转换用户后援记录列表
func ToMyPledgeResponseList(pledges []logic.MyPledge) []MyPledgeResponse {
	result := make([]MyPledgeResponse, 0, len(pledges))
	for _, p := range pledges {
		result = append(result, MyPledgeResponse{
			PledgeNo:        p.PledgeNo,
			ProjectNo:       p.ProjectNo,
			ProjectTitle:    p.ProjectTitle,
			RewardTitle:     p.RewardTitle,
			TotalAmount:     p.TotalAmount,
			DeliveryAddress: p.DeliveryAddress,
			DeliveryPhone:   p.DeliveryPhone,
			RecipientName:   p.RecipientName,
			CreatedAt:       p.CreatedAt,
		})
	}
	return result
}
