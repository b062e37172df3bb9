package progress

import "time"

// TaskStatus enumerates the coarse task lifecycle.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// TaskState is the rolling snapshot of one task, maintained by folding
// events as they are published.
type TaskState struct {
	TaskID     string     `json:"task_id"`
	Status     TaskStatus `json:"status"`
	Phase      string     `json:"phase,omitempty"`
	Percentage float64    `json:"percentage"`
	Error      string     `json:"error,omitempty"`
	VideoPath  string     `json:"video_path,omitempty"`
	AudioPath  string     `json:"audio_path,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func newTaskState(taskID string) *TaskState {
	return &TaskState{TaskID: taskID, Status: StatusPending}
}

func (s *TaskState) apply(event Event) {
	s.UpdatedAt = event.Timestamp
	switch event.Type {
	case EventTaskStarted:
		s.Status = StatusRunning
	case EventPhaseStarted:
		if phase, ok := event.Data["phase"].(string); ok {
			s.Phase = phase
		}
	case EventPhaseProgress, EventCompositionProgress:
		if pct, ok := event.Data["percentage"].(float64); ok {
			s.Percentage = pct
		}
	case EventTaskCompleted:
		s.Status = StatusCompleted
		s.Percentage = 100
		if path, ok := event.Data["video_path"].(string); ok {
			s.VideoPath = path
		}
		if path, ok := event.Data["audio_path"].(string); ok {
			s.AudioPath = path
		}
	case EventTaskFailed:
		s.Status = StatusFailed
		if message, ok := event.Data["error"].(string); ok {
			s.Error = message
		}
	}
}

func (s *TaskState) snapshot() TaskState {
	return *s
}
