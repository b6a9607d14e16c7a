package logic

import (
	"errors"
	"time"

	"github.com/fundy/fls/internal/logger"
	"github.com/fundy/fls/internal/model"
	"gorm.io/gorm"
)

// createPledgeMaxRetries 乐观并发冲突时的最大重试次数
const createPledgeMaxRetries = 3

// CreatePledgeRequest 后援请求参数
type CreatePledgeRequest struct {
	ProjectNo        uint
	RewardNo         uint
	Quantity         int64 // 缺省按 1 处理
	AdditionalAmount int64
	DeliveryAddress  string
	DeliveryPhone    string
	RecipientName    string
}

// PledgeConfirmation 后援确认信息
type PledgeConfirmation struct {
	PledgeNo     uint
	ProjectNo    uint
	ProjectTitle string
	RewardTitle  string
	TotalAmount  int64
}

// MyPledge 用户后援记录及项目/回报快照
type MyPledge struct {
	PledgeNo        uint
	ProjectNo       uint
	ProjectTitle    string
	RewardTitle     string
	TotalAmount     int64
	DeliveryAddress string
	DeliveryPhone   string
	RecipientName   string
	CreatedAt       time.Time
}

// PledgeLogic 后援账本业务逻辑
type PledgeLogic struct {
	db *gorm.DB
}

// NewPledgeLogic 创建后援业务逻辑
func NewPledgeLogic(db *gorm.DB) *PledgeLogic {
	return &PledgeLogic{db: db}
}

// CreatePledge 创建一笔后援,并在同一事务内原子更新项目累计金额与回报库存。
// 带守卫条件的更新未命中任何行时视为并发冲突,回滚后整体重试;
// 校验类错误反映真实的前置条件不满足,不做重试,直接返回调用方。
func (p *PledgeLogic) CreatePledge(req *CreatePledgeRequest, userID string) (*PledgeConfirmation, error) {
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	var lastErr error
	for attempt := 1; attempt <= createPledgeMaxRetries; attempt++ {
		confirmation, err := p.createPledgeOnce(req, userID)
		if err == nil {
			return confirmation, nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			return nil, err
		}
		logger.Warn("Pledge conflict on project %d, retrying (%d/%d)", req.ProjectNo, attempt, createPledgeMaxRetries)
		lastErr = err
	}
	return nil, lastErr
}

// createPledgeOnce 执行一次后援尝试:前置校验在事务外读取,资金与库存变更在事务内带守卫落库
func (p *PledgeLogic) createPledgeOnce(req *CreatePledgeRequest, userID string) (*PledgeConfirmation, error) {
	var user model.User
	if err := p.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var project model.Project
	if err := p.db.First(&project, req.ProjectNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	var reward model.Reward
	if err := p.db.First(&reward, req.RewardNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}

	// 回报必须属于被后援的项目
	if reward.ProjectID != project.ID {
		return nil, ErrRewardNotMatched
	}

	// 只有已审核或进行中的项目可以接受后援
	if !project.Status.Pledgeable() {
		return nil, ErrProjectNotAvailable
	}

	// 库存检查,-1 表示不限量
	if !reward.Unlimited() && reward.Stock < req.Quantity {
		return nil, ErrRewardOutOfStock
	}

	pledge := &model.Pledge{
		ProjectID:        project.ID,
		RewardID:         reward.ID,
		UserID:           user.ID,
		Quantity:         req.Quantity,
		AdditionalAmount: req.AdditionalAmount,
		TotalAmount:      reward.Price*req.Quantity + req.AdditionalAmount,
		DeliveryAddress:  req.DeliveryAddress,
		DeliveryPhone:    req.DeliveryPhone,
		RecipientName:    req.RecipientName,
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pledge).Error; err != nil {
			return err
		}

		// 累计金额递增由数据库计算,守卫条件同时确认项目仍处于可后援状态
		res := tx.Model(&model.Project{}).
			Where("id = ? AND status IN ?", project.ID,
				[]model.ProjectStatus{model.ProjectStatusApproved, model.ProjectStatusInProgress}).
			Update("current_amount", gorm.Expr("current_amount + ?", pledge.TotalAmount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrencyConflict
		}

		// 有限库存扣减,守卫条件保证库存不会为负
		if !reward.Unlimited() {
			res = tx.Model(&model.Reward{}).
				Where("id = ? AND stock >= ?", reward.ID, req.Quantity).
				Update("stock", gorm.Expr("stock - ?", req.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConcurrencyConflict
			}
		}

		// 首笔后援让已审核项目提前进入进行中;守卫未命中说明已被其他请求推进,忽略即可
		if project.Status == model.ProjectStatusApproved {
			res = tx.Model(&model.Project{}).
				Where("id = ? AND status = ?", project.ID, model.ProjectStatusApproved).
				Update("status", model.ProjectStatusInProgress)
			if res.Error != nil {
				return res.Error
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Pledge %d created: project=%d user=%s amount=%d", pledge.ID, project.ID, user.ID, pledge.TotalAmount)

	return &PledgeConfirmation{
		PledgeNo:     pledge.ID,
		ProjectNo:    project.ID,
		ProjectTitle: project.Title,
		RewardTitle:  reward.Title,
		TotalAmount:  pledge.TotalAmount,
	}, nil
}

// GetMyPledges 查询用户的后援记录,按时间倒序
func (p *PledgeLogic) GetMyPledges(userID string) ([]MyPledge, error) {
	var user model.User
	if err := p.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var pledges []model.Pledge
	if err := p.db.Where("user_id = ?", user.ID).Order("id DESC").Find(&pledges).Error; err != nil {
		return nil, err
	}
	if len(pledges) == 0 {
		return []MyPledge{}, nil
	}

	projectTitles, err := p.projectTitles(pledges)
	if err != nil {
		return nil, err
	}
	rewardTitles, err := p.rewardTitles(pledges)
	if err != nil {
		return nil, err
	}

	result := make([]MyPledge, 0, len(pledges))
	for _, pledge := range pledges {
		result = append(result, MyPledge{
			PledgeNo:        pledge.ID,
			ProjectNo:       pledge.ProjectID,
			ProjectTitle:    projectTitles[pledge.ProjectID],
			RewardTitle:     rewardTitles[pledge.RewardID],
			TotalAmount:     pledge.TotalAmount,
			DeliveryAddress: pledge.DeliveryAddress,
			DeliveryPhone:   pledge.DeliveryPhone,
			RecipientName:   pledge.RecipientName,
			CreatedAt:       pledge.CreatedAt,
		})
	}
	return result, nil
}

// projectTitles 批量读取后援涉及的项目标题
func (p *PledgeLogic) projectTitles(pledges []model.Pledge) (map[uint]string, error) {
	ids := make([]uint, 0, len(pledges))
	for _, pledge := range pledges {
		ids = append(ids, pledge.ProjectID)
	}

	var projects []model.Project
	if err := p.db.Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, err
	}

	titles := make(map[uint]string, len(projects))
	for _, project := range projects {
		titles[project.ID] = project.Title
	}
	return titles, nil
}

// rewardTitles 批量读取后援涉及的回报标题
func (p *PledgeLogic) rewardTitles(pledges []model.Pledge) (map[uint]string, error) {
	ids := make([]uint, 0, len(pledges))
	for _, pledge := range pledges {
		ids = append(ids, pledge.RewardID)
	}

	var rewards []model.Reward
	if err := p.db.Where("id IN ?", ids).Find(&rewards).Error; err != nil {
		return nil, err
	}

	titles := make(map[uint]string, len(rewards))
	for _, reward := range rewards {
		titles[reward.ID] = reward.Title
	}
	return titles, nil
}
