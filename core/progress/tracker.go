package progress

import (
	"errors"
	"sync"
	"time"
)

// Status 任务状态
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// maxRunningProgress 运行中的进度上限，100 只属于 complete
const maxRunningProgress = 99

// ErrTaskFinished is returned when a complete or failed task is updated.
var ErrTaskFinished = errors.New("task already finished")

// Snapshot is a copy of a task record at one point in time.
type Snapshot struct {
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Error     *string   `json:"error"`
	UpdatedAt time.Time `json:"-"`
}

// Terminal reports whether the task has completed or failed.
func (s Snapshot) Terminal() bool {
	return s.Status == StatusComplete || s.Status == StatusError
}

type entry struct {
	mu   sync.Mutex
	snap Snapshot
}

// Tracker holds one record per task id. Each record has its own lock so
// unrelated tasks never wait on each other.
type Tracker struct {
	tasks sync.Map // map[string]*entry
}

// NewTracker 创建任务进度表
func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) entry(taskID string) *entry {
	if v, ok := t.tasks.Load(taskID); ok {
		return v.(*entry)
	}
	v, _ := t.tasks.LoadOrStore(taskID, &entry{snap: Snapshot{
		Status:    StatusPending,
		UpdatedAt: time.Now(),
	}})
	return v.(*entry)
}

// Get 返回任务快照，不存在时创建 pending 记录
func (t *Tracker) Get(taskID string) Snapshot {
	e := t.entry(taskID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Update moves the task to running. Progress never goes backwards: a lower
// value keeps the previous progress and only replaces the message.
func (t *Tracker) Update(taskID string, progress int, message string) error {
	e := t.entry(taskID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snap.Terminal() {
		return ErrTaskFinished
	}
	if progress > maxRunningProgress {
		progress = maxRunningProgress
	}
	if progress > e.snap.Progress {
		e.snap.Progress = progress
	}
	e.snap.Status = StatusRunning
	e.snap.Message = message
	e.snap.UpdatedAt = time.Now()
	return nil
}

// Complete 标记任务完成，进度置为 100
func (t *Tracker) Complete(taskID, message string) error {
	e := t.entry(taskID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snap.Terminal() {
		return ErrTaskFinished
	}
	e.snap.Status = StatusComplete
	e.snap.Progress = 100
	e.snap.Message = message
	e.snap.UpdatedAt = time.Now()
	return nil
}

// Fail 标记任务失败，保留已有进度
func (t *Tracker) Fail(taskID string, cause error) error {
	e := t.entry(taskID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.snap.Terminal() {
		return ErrTaskFinished
	}
	msg := "unknown error"
	if cause != nil && cause.Error() != "" {
		msg = cause.Error()
	}
	e.snap.Status = StatusError
	e.snap.Message = msg
	e.snap.Error = &msg
	e.snap.UpdatedAt = time.Now()
	return nil
}

// Clear removes the record. The next Get returns a fresh pending record.
func (t *Tracker) Clear(taskID string) {
	t.tasks.Delete(taskID)
}

// Len 返回当前记录数
func (t *Tracker) Len() int {
	n := 0
	t.tasks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
