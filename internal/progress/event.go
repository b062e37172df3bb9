package progress

import "time"

// EventType enumerates the progress event taxonomy.
type EventType string

const (
	EventConnectionEstablished EventType = "connection_established"
	EventTaskStarted           EventType = "task_started"
	EventPhaseStarted          EventType = "phase_started"
	EventPhaseProgress         EventType = "phase_progress"
	EventPhaseCompleted        EventType = "phase_completed"
	EventAssetRendered         EventType = "asset_rendered"
	EventAudioGenerated        EventType = "audio_generated"
	EventCompositionProgress   EventType = "video_composition_progress"
	EventTaskCompleted         EventType = "task_completed"
	EventTaskFailed            EventType = "task_failed"
	EventWarning               EventType = "warning"
	EventKeepalive             EventType = "keepalive"
	EventStreamEnd             EventType = "stream_end"
)

// Event is one progress notification for a task.
type Event struct {
	Type      EventType      `json:"type"`
	TaskID    string         `json:"task_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}
