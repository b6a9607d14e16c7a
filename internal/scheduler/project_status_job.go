package scheduler

import (
	"sync"
	"time"

	"github.com/fundy/fls/internal/config"
	"github.com/fundy/fls/internal/logger"
	"github.com/fundy/fls/internal/logic"
	"github.com/fundy/fls/internal/model"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// closurePoolSize 结算阶段的并发协程数
const closurePoolSize = 8

// ProjectStatusJob 项目状态推进任务
// 每轮分两个互相独立的阶段:先激活到期的已审核项目,再结算过了截止日的项目
type ProjectStatusJob struct {
	db     *gorm.DB
	config *config.Config
	hook   logic.NotificationHook
	now    func() time.Time // 可注入的时钟,测试时模拟任意日期
}

// NewProjectStatusJob 创建项目状态推进任务
func NewProjectStatusJob(db *gorm.DB, cfg *config.Config, hook logic.NotificationHook) *ProjectStatusJob {
	return &ProjectStatusJob{
		db:     db,
		config: cfg,
		hook:   hook,
		now:    time.Now,
	}
}

// GetName 获取任务名称
func (j *ProjectStatusJob) GetName() string {
	return "project_status_updater"
}

// GetSchedule 获取调度配置
func (j *ProjectStatusJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Scheduler.Interval) * time.Second)
}

// Execute 执行一轮状态推进。
// 查询按状态过滤,已推进过的项目不会再次命中,同一天重复执行是无副作用的
func (j *ProjectStatusJob) Execute() {
	today := j.today()
	logger.Info("Starting project status update task, today=%s", today.Format("2006-01-02"))

	activated := j.runActivationPass(today)
	closed := j.runClosurePass(today)

	logger.Info("Project status update completed. Activated %d, closed %d projects", activated, closed)
}

// today 当前日期,按UTC截断到天,日界线不随服务器时区漂移
func (j *ProjectStatusJob) today() time.Time {
	now := j.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// runActivationPass 将到达开始日期的已审核项目推进为进行中
func (j *ProjectStatusJob) runActivationPass(today time.Time) int {
	var projects []model.Project
	err := j.db.Where("status = ? AND start_date <= ?", model.ProjectStatusApproved, today).
		Find(&projects).Error
	if err != nil {
		logger.Error("Failed to fetch projects for activation: %v", err)
		return 0
	}

	activated := 0
	for i := range projects {
		project := &projects[i]
		next, ok := model.NextStatus(project.Status, project.StartDate, project.Deadline,
			project.CurrentAmount, project.GoalAmount, today)
		if !ok || next != model.ProjectStatusInProgress {
			// 截止日也已经过了的项目留给结算阶段处理
			continue
		}
		applied, err := j.applyTransition(project, next)
		if err != nil {
			logger.Error("Failed to activate project %d: %v", project.ID, err)
			continue
		}
		if applied {
			activated++
		}
	}
	return activated
}

// runClosurePass 将过了截止日的项目按筹款结果结算为成功或失败。
// 每个项目独立落库,单个项目失败只记录日志,下一轮按状态过滤自然重试
func (j *ProjectStatusJob) runClosurePass(today time.Time) int {
	var projects []model.Project
	err := j.db.Where("status IN ? AND deadline < ?",
		[]model.ProjectStatus{model.ProjectStatusApproved, model.ProjectStatusInProgress}, today).
		Find(&projects).Error
	if err != nil {
		logger.Error("Failed to fetch projects for closure: %v", err)
		return 0
	}
	if len(projects) == 0 {
		return 0
	}

	pool, err := ants.NewPool(closurePoolSize)
	if err != nil {
		logger.Error("Failed to create closure worker pool: %v", err)
		return 0
	}
	defer pool.Release()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		closed int
	)
	for i := range projects {
		project := &projects[i]
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if j.closeProject(project, today) {
				mu.Lock()
				closed++
				mu.Unlock()
			}
		}); err != nil {
			wg.Done()
			logger.Error("Failed to submit closure task for project %d: %v", project.ID, err)
		}
	}
	wg.Wait()

	return closed
}

// closeProject 结算单个项目,成功结算后对每个后援用户触发通知
func (j *ProjectStatusJob) closeProject(project *model.Project, today time.Time) bool {
	next, ok := model.NextStatus(project.Status, project.StartDate, project.Deadline,
		project.CurrentAmount, project.GoalAmount, today)
	if !ok || !next.Terminal() {
		return false
	}

	applied, err := j.applyTransition(project, next)
	if err != nil {
		logger.Error("Failed to close project %d: %v", project.ID, err)
		return false
	}
	if !applied {
		return false
	}

	j.notifyBackers(project.ID, next)
	return true
}

// applyTransition 带守卫地落库,状态只会沿定义的方向推进。
// 结算迁移的守卫同时锁定判定所依赖的金额区间,避免在过期的金额快照上结算:
// 读取与落库之间有后援提交时守卫未命中,留待下一轮用新金额重新判定。
// 守卫未命中也可能是其他写入方已经推进过该项目,同样跳过即可
func (j *ProjectStatusJob) applyTransition(project *model.Project, next model.ProjectStatus) (bool, error) {
	query := j.db.Model(&model.Project{}).
		Where("id = ? AND status = ?", project.ID, project.Status)
	switch next {
	case model.ProjectStatusCompleted:
		query = query.Where("current_amount >= ?", project.GoalAmount)
	case model.ProjectStatusFailed:
		query = query.Where("current_amount < ?", project.GoalAmount)
	}
	res := query.Update("status", next)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	logger.Info("Updated project %d status from %s to %s", project.ID, project.Status, next)
	project.Status = next
	return true, nil
}

// notifyBackers 对项目的每个后援用户触发一次结算通知
func (j *ProjectStatusJob) notifyBackers(projectID uint, status model.ProjectStatus) {
	event := logic.EventProjectCompleted
	if status == model.ProjectStatusFailed {
		event = logic.EventProjectFailed
	}

	var userIDs []string
	err := j.db.Model(&model.Pledge{}).
		Where("project_id = ?", projectID).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		logger.Error("Failed to fetch backers of project %d: %v", projectID, err)
		return
	}

	for _, userID := range userIDs {
		j.hook.Notify(event, projectID, userID)
	}
}
