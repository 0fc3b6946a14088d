package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/LinerHub/app/models"
)

// PeriodicFunc is a background task run on a fixed interval while the manager is running
type PeriodicFunc func(ctx context.Context) error

type periodicTask struct {
	name     string
	interval time.Duration
	fn       PeriodicFunc
}

// Manager manages the global job queue and background tasks
type Manager struct {
	queue    *Queue
	periodic []periodicTask
	stopCh   chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		// Get worker count from settings, fallback to 5 if not available
		workerCount := 5
		if settings := getAppSettings(); settings != nil {
			workerCount = settings.GetJobQueueWorkerCount()
		}

		globalManager = NewManager(NewQueue(workerCount))
	})
	return globalManager
}

// NewManager wraps an existing queue. Used directly by tests and by GetManager.
func NewManager(queue *Queue) *Manager {
	return &Manager{
		queue:  queue,
		stopCh: make(chan struct{}),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// RegisterPeriodic adds a background task. Tasks registered while running start with the next Start.
func (m *Manager) RegisterPeriodic(name string, interval time.Duration, fn PeriodicFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if interval <= 0 {
		interval = time.Minute
	}
	m.periodic = append(m.periodic, periodicTask{name: name, interval: interval, fn: fn})
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	for _, task := range m.periodic {
		m.wg.Add(1)
		go m.periodicWorker(ctx, task, m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	close(m.stopCh)
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) periodicWorker(ctx context.Context, task periodicTask, stopCh <-chan struct{}) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started %s worker (interval: %s)", task.name, task.interval)

	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			log.Infof("[JobQueue Manager] %s worker stopping", task.name)
			return
		case <-ticker.C:
			if err := task.fn(ctx); err != nil {
				log.Errorf("[JobQueue Manager] %s error: %v", task.name, err)
			}
		}
	}
}

// RunPeriodicOnce runs the named task immediately (admin use). It reports false if no task matched.
func (m *Manager) RunPeriodicOnce(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	var found *periodicTask
	for i := range m.periodic {
		if m.periodic[i].name == name {
			found = &m.periodic[i]
			break
		}
	}
	m.mu.Unlock()
	if found == nil {
		return false, nil
	}
	return true, found.fn(ctx)
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// getAppSettings safely returns the current app settings
func getAppSettings() *models.AppSettings {
	return models.GetAppSettings()
}
