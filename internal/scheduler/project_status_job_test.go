package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fundy/fls/internal/config"
	"github.com/fundy/fls/internal/logic"
	"github.com/fundy/fls/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Reward{},
		&model.Pledge{},
	))
	return db
}

// recorderHook 记录触发的通知,供断言使用
type recorderHook struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	event     logic.NotificationEvent
	projectID uint
	userID    string
}

func (r *recorderHook) Notify(event logic.NotificationEvent, projectID uint, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: event, projectID: projectID, userID: userID})
}

func (r *recorderHook) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newJob 固定"今天",时钟给到当天上午以验证按天截断
func newJob(db *gorm.DB, hook logic.NotificationHook, today time.Time) *ProjectStatusJob {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{Interval: 86400}}
	job := NewProjectStatusJob(db, cfg, hook)
	job.now = func() time.Time { return today.Add(9 * time.Hour) }
	return job
}

func seedProject(t *testing.T, db *gorm.DB, status model.ProjectStatus, goal, current int64, start, deadline time.Time) *model.Project {
	t.Helper()
	project := &model.Project{
		UserID:        "creator",
		Title:         "project",
		GoalAmount:    goal,
		CurrentAmount: current,
		StartDate:     start,
		Deadline:      deadline,
		Status:        status,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func projectStatus(t *testing.T, db *gorm.DB, id uint) model.ProjectStatus {
	t.Helper()
	var project model.Project
	require.NoError(t, db.First(&project, id).Error)
	return project.Status
}

func TestActivationPass(t *testing.T) {
	db := newTestDB(t)
	today := day(2025, 6, 10)

	due := seedProject(t, db, model.ProjectStatusApproved, 1000, 0, day(2025, 6, 10), day(2025, 7, 1))
	past := seedProject(t, db, model.ProjectStatusApproved, 1000, 0, day(2025, 6, 1), day(2025, 7, 1))
	future := seedProject(t, db, model.ProjectStatusApproved, 1000, 0, day(2025, 6, 20), day(2025, 7, 1))
	waiting := seedProject(t, db, model.ProjectStatusWaitingApproval, 1000, 0, day(2025, 6, 1), day(2025, 7, 1))

	job := newJob(db, &recorderHook{}, today)
	job.Execute()

	assert.Equal(t, model.ProjectStatusInProgress, projectStatus(t, db, due.ID))
	assert.Equal(t, model.ProjectStatusInProgress, projectStatus(t, db, past.ID))
	assert.Equal(t, model.ProjectStatusApproved, projectStatus(t, db, future.ID))
	assert.Equal(t, model.ProjectStatusWaitingApproval, projectStatus(t, db, waiting.ID))
}

func TestClosurePassCompleted(t *testing.T) {
	db := newTestDB(t)
	today := day(2025, 7, 2)

	// goal=1000, deadline=yesterday, currentAmount=1200
	project := seedProject(t, db, model.ProjectStatusInProgress, 1000, 1200, day(2025, 6, 1), day(2025, 7, 1))

	require.NoError(t, db.Create(&model.User{ID: "u1"}).Error)
	require.NoError(t, db.Create(&model.User{ID: "u2"}).Error)
	reward := &model.Reward{ProjectID: project.ID, Title: "tier", Price: 600, Stock: model.RewardStockUnlimited}
	require.NoError(t, db.Create(reward).Error)
	for _, userID := range []string{"u1", "u1", "u2"} {
		require.NoError(t, db.Create(&model.Pledge{
			ProjectID: project.ID, RewardID: reward.ID, UserID: userID,
			Quantity: 1, TotalAmount: 600,
		}).Error)
	}

	hook := &recorderHook{}
	job := newJob(db, hook, today)
	job.Execute()

	assert.Equal(t, model.ProjectStatusCompleted, projectStatus(t, db, project.ID))

	// 每个后援用户只通知一次
	events := hook.snapshot()
	require.Len(t, events, 2)
	users := map[string]bool{}
	for _, e := range events {
		assert.Equal(t, logic.EventProjectCompleted, e.event)
		assert.Equal(t, project.ID, e.projectID)
		users[e.userID] = true
	}
	assert.True(t, users["u1"])
	assert.True(t, users["u2"])
}

func TestClosurePassFailed(t *testing.T) {
	db := newTestDB(t)
	today := day(2025, 7, 2)

	// goal=1000, deadline=yesterday, currentAmount=800
	project := seedProject(t, db, model.ProjectStatusInProgress, 1000, 800, day(2025, 6, 1), day(2025, 7, 1))
	require.NoError(t, db.Create(&model.User{ID: "u1"}).Error)
	require.NoError(t, db.Create(&model.Pledge{
		ProjectID: project.ID, RewardID: 1, UserID: "u1", Quantity: 1, TotalAmount: 800,
	}).Error)

	hook := &recorderHook{}
	job := newJob(db, hook, today)
	job.Execute()

	assert.Equal(t, model.ProjectStatusFailed, projectStatus(t, db, project.ID))

	events := hook.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, logic.EventProjectFailed, events[0].event)
}

func TestClosurePassApprovedPastDeadline(t *testing.T) {
	db := newTestDB(t)
	today := day(2025, 7, 2)

	// 从未进入进行中也要按同样的规则结算
	project := seedProject(t, db, model.ProjectStatusApproved, 1000, 0, day(2025, 6, 1), day(2025, 7, 1))

	job := newJob(db, &recorderHook{}, today)
	job.Execute()

	assert.Equal(t, model.ProjectStatusFailed, projectStatus(t, db, project.ID))
}

func TestClosureNotDueOnDeadlineDay(t *testing.T) {
	db := newTestDB(t)
	deadline := day(2025, 7, 1)

	project := seedProject(t, db, model.ProjectStatusInProgress, 1000, 1200, day(2025, 6, 1), deadline)

	job := newJob(db, &recorderHook{}, deadline)
	job.Execute()

	// 截止日当天还未到期,次日才结算
	assert.Equal(t, model.ProjectStatusInProgress, projectStatus(t, db, project.ID))
}

func TestExecuteIdempotentSameDay(t *testing.T) {
	db := newTestDB(t)
	today := day(2025, 7, 2)

	completed := seedProject(t, db, model.ProjectStatusInProgress, 1000, 1200, day(2025, 6, 1), day(2025, 7, 1))
	failed := seedProject(t, db, model.ProjectStatusInProgress, 1000, 800, day(2025, 6, 1), day(2025, 7, 1))
	activated := seedProject(t, db, model.ProjectStatusApproved, 1000, 0, day(2025, 7, 1), day(2025, 8, 1))
	require.NoError(t, db.Create(&model.User{ID: "u1"}).Error)
	require.NoError(t, db.Create(&model.Pledge{
		ProjectID: completed.ID, RewardID: 1, UserID: "u1", Quantity: 1, TotalAmount: 1200,
	}).Error)

	hook := &recorderHook{}
	job := newJob(db, hook, today)

	job.Execute()
	first := []model.ProjectStatus{
		projectStatus(t, db, completed.ID),
		projectStatus(t, db, failed.ID),
		projectStatus(t, db, activated.ID),
	}
	firstEvents := len(hook.snapshot())

	// 同一天重跑必须是无副作用的
	job.Execute()
	second := []model.ProjectStatus{
		projectStatus(t, db, completed.ID),
		projectStatus(t, db, failed.ID),
		projectStatus(t, db, activated.ID),
	}

	assert.Equal(t, first, second)
	assert.Equal(t, []model.ProjectStatus{
		model.ProjectStatusCompleted,
		model.ProjectStatusFailed,
		model.ProjectStatusInProgress,
	}, second)
	assert.Equal(t, firstEvents, len(hook.snapshot()))
}

func TestTerminalProjectsUntouched(t *testing.T) {
	db := newTestDB(t)
	today := day(2025, 8, 1)

	done := seedProject(t, db, model.ProjectStatusCompleted, 1000, 1200, day(2025, 6, 1), day(2025, 7, 1))
	lost := seedProject(t, db, model.ProjectStatusFailed, 1000, 800, day(2025, 6, 1), day(2025, 7, 1))

	hook := &recorderHook{}
	job := newJob(db, hook, today)
	job.Execute()

	assert.Equal(t, model.ProjectStatusCompleted, projectStatus(t, db, done.ID))
	assert.Equal(t, model.ProjectStatusFailed, projectStatus(t, db, lost.ID))
	assert.Empty(t, hook.snapshot())
}

func TestClosurePassSkipsFailingProject(t *testing.T) {
	db := newTestDB(t)
	today := day(2025, 7, 2)

	healthy := seedProject(t, db, model.ProjectStatusInProgress, 1000, 1200, day(2025, 6, 1), day(2025, 7, 1))
	broken := seedProject(t, db, model.ProjectStatusInProgress, 1000, 800, day(2025, 6, 1), day(2025, 7, 1))
	other := seedProject(t, db, model.ProjectStatusInProgress, 1000, 800, day(2025, 6, 1), day(2025, 7, 1))

	// 模拟单个项目的瞬时存储故障
	require.NoError(t, db.Exec(fmt.Sprintf(
		`CREATE TRIGGER broken_project BEFORE UPDATE ON projects
		 FOR EACH ROW WHEN OLD.id = %d
		 BEGIN SELECT RAISE(ABORT, 'storage unavailable'); END`, broken.ID)).Error)

	job := newJob(db, &recorderHook{}, today)
	job.Execute()

	// 批次内其他项目的结算不受单个项目故障影响
	assert.Equal(t, model.ProjectStatusCompleted, projectStatus(t, db, healthy.ID))
	assert.Equal(t, model.ProjectStatusFailed, projectStatus(t, db, other.ID))
	assert.Equal(t, model.ProjectStatusInProgress, projectStatus(t, db, broken.ID))

	// 故障恢复后,下一轮按状态过滤自然重试到该项目
	require.NoError(t, db.Exec("DROP TRIGGER broken_project").Error)
	job.Execute()
	assert.Equal(t, model.ProjectStatusFailed, projectStatus(t, db, broken.ID))
}

func TestClosureSkipsStaleFundingSnapshot(t *testing.T) {
	db := newTestDB(t)
	today := day(2025, 7, 2)

	project := seedProject(t, db, model.ProjectStatusInProgress, 1000, 800, day(2025, 6, 1), day(2025, 7, 1))
	job := newJob(db, &recorderHook{}, today)

	// 调度读到的快照落后于并发后援提交后的金额
	stale := *project
	require.NoError(t, db.Model(&model.Project{}).
		Where("id = ?", project.ID).
		Update("current_amount", 1200).Error)

	applied, err := job.applyTransition(&stale, model.ProjectStatusFailed)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, model.ProjectStatusInProgress, projectStatus(t, db, project.ID))

	// 下一轮按新的金额正确结算
	job.Execute()
	assert.Equal(t, model.ProjectStatusCompleted, projectStatus(t, db, project.ID))
}

func TestDayBoundaryPinnedToUTC(t *testing.T) {
	db := newTestDB(t)

	project := seedProject(t, db, model.ProjectStatusInProgress, 1000, 1200, day(2025, 6, 1), day(2025, 7, 1))
	job := newJob(db, &recorderHook{}, day(2025, 7, 1))

	// 东九区已是7月2日清晨,但UTC还停留在7月1日,不应提前结算
	kst := time.FixedZone("KST", 9*60*60)
	job.now = func() time.Time { return time.Date(2025, 7, 2, 6, 0, 0, 0, kst) }
	job.Execute()
	assert.Equal(t, model.ProjectStatusInProgress, projectStatus(t, db, project.ID))

	// UTC跨过日界线后才结算
	job.now = func() time.Time { return time.Date(2025, 7, 2, 0, 30, 0, 0, time.UTC) }
	job.Execute()
	assert.Equal(t, model.ProjectStatusCompleted, projectStatus(t, db, project.ID))
}

func TestClosurePassManyProjects(t *testing.T) {
	db := newTestDB(t)
	today := day(2025, 7, 2)

	var ids []uint
	for i := 0; i < 30; i++ {
		current := int64(800)
		if i%2 == 0 {
			current = 1200
		}
		p := seedProject(t, db, model.ProjectStatusInProgress, 1000, current, day(2025, 6, 1), day(2025, 7, 1))
		ids = append(ids, p.ID)
	}

	job := newJob(db, &recorderHook{}, today)
	job.Execute()

	for i, id := range ids {
		want := model.ProjectStatusFailed
		if i%2 == 0 {
			want = model.ProjectStatusCompleted
		}
		assert.Equal(t, want, projectStatus(t, db, id))
	}
}
