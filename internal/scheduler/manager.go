package scheduler

import (
	"fmt"

	"github.com/blues/tracker/internal/config"
	"github.com/blues/tracker/internal/logger"
	"github.com/blues/tracker/internal/store"
	"github.com/go-co-op/gocron/v2"
)

// Job 定时任务
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	store     store.IssueStore
	config    *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(st store.IssueStore, cfg *config.Config) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Manager{
		scheduler: s,
		store:     st,
		config:    cfg,
	}, nil
}

// Start 注册所有任务并启动调度器
func Start(st store.IssueStore, cfg *config.Config) (*Manager, error) {
	manager, err := NewManager(st, cfg)
	if err != nil {
		return nil, err
	}

	// 注册所有任务
	manager.RegisterJobs()

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager, nil
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() {
	// 状态与进度不一致的课题
	m.register(NewIssueStatusJob(m.store, m.config))

	// 自动归档，archive_after_days 为 0 时关闭
	if m.config.Task.ArchiveAfterDays > 0 {
		m.register(NewIssueArchiveJob(m.store, m.config))
	}
}

func (m *Manager) register(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Jobs 已注册的任务名称
func (m *Manager) Jobs() []string {
	jobs := m.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
