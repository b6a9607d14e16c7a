package handler

import (
	"net/http"

	"github.com/fundy/fls/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PledgeHandler 后援处理器
type PledgeHandler struct {
	pledgeLogic *logic.PledgeLogic
}

// NewPledgeHandler 创建后援处理器
func NewPledgeHandler(db *gorm.DB) *PledgeHandler {
	return &PledgeHandler{
		pledgeLogic: logic.NewPledgeLogic(db),
	}
}

// CreatePledge 创建后援
// 用户身份由上游网关完成认证后通过 X-User-ID 传入
func (h *PledgeHandler) CreatePledge(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		ErrorResponse(c, http.StatusUnauthorized, "缺少用户标识")
		return
	}

	var req CreatePledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的请求参数: "+err.Error())
		return
	}

	confirmation, err := h.pledgeLogic.CreatePledge(&logic.CreatePledgeRequest{
		ProjectNo:        req.ProjectNo,
		RewardNo:         req.RewardNo,
		Quantity:         req.Quantity,
		AdditionalAmount: req.AdditionalAmount,
		DeliveryAddress:  req.DeliveryAddress,
		DeliveryPhone:    req.DeliveryPhone,
		RecipientName:    req.RecipientName,
	}, userID)
	if err != nil {
		APIErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "后援成功", ToPledgeResponse(confirmation))
}

// GetMyPledges 查询当前用户的后援记录
func (h *PledgeHandler) GetMyPledges(c *gin.Context) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		ErrorResponse(c, http.StatusUnauthorized, "缺少用户标识")
		return
	}

	pledges, err := h.pledgeLogic.GetMyPledges(userID)
	if err != nil {
		APIErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取后援记录成功", ToMyPledgeResponseList(pledges))
}
