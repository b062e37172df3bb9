package progress

import (
	"log/slog"
	"sync"
	"time"

	"vibecast/internal/logging"
)

const (
	// Per-subscription queue depth.
	queueSize = 100
	// How long Publish waits on a full queue before dropping the event.
	publishTimeout = time.Second
	// How long finished task state lingers for late subscribers.
	cleanupDelay = time.Minute
)

// Subscription is one listener's bounded event queue.
type Subscription struct {
	taskID string
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// Events returns the receive side of the subscription queue. The channel
// closes after Unsubscribe or task cleanup.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) close() {
	s.once.Do(func() {
		close(s.done)
		close(s.events)
	})
}

// Observer fans pipeline events out to per-task subscribers and keeps a
// state snapshot per task for polling clients.
type Observer struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string][]*Subscription
	states map[string]*TaskState
	timers map[string]*time.Timer
}

// NewObserver builds an Observer.
func NewObserver(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Observer{
		logger: logging.NewComponentLogger(logger, "progress"),
		subs:   make(map[string][]*Subscription),
		states: make(map[string]*TaskState),
		timers: make(map[string]*time.Timer),
	}
}

// Subscribe registers a listener for one task's events. The subscriber
// immediately receives a connection_established event carrying the task's
// current state, so late joiners know where the task stands.
func (o *Observer) Subscribe(taskID string) *Subscription {
	sub := &Subscription{
		taskID: taskID,
		events: make(chan Event, queueSize),
		done:   make(chan struct{}),
	}

	o.mu.Lock()
	o.subs[taskID] = append(o.subs[taskID], sub)
	snapshot := TaskState{TaskID: taskID, Status: StatusPending}
	if state, ok := o.states[taskID]; ok {
		snapshot = state.snapshot()
	}
	o.mu.Unlock()

	data := map[string]any{"status": string(snapshot.Status)}
	if snapshot.Phase != "" {
		data["phase"] = snapshot.Phase
	}
	if snapshot.Percentage > 0 {
		data["percentage"] = snapshot.Percentage
	}
	sub.events <- Event{
		Type:      EventConnectionEstablished,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	return sub
}

// Unsubscribe removes a listener and closes its queue.
func (o *Observer) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	o.mu.Lock()
	list := o.subs[sub.taskID]
	for i, candidate := range list {
		if candidate == sub {
			o.subs[sub.taskID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(o.subs[sub.taskID]) == 0 {
		delete(o.subs, sub.taskID)
	}
	o.mu.Unlock()
	sub.close()
}

// Publish delivers an event to every subscriber of the task and folds it
// into the task's state snapshot. Delivery to a full queue waits up to the
// publish timeout and then drops the event for that subscriber only.
func (o *Observer) Publish(taskID string, eventType EventType, data map[string]any) {
	event := Event{
		Type:      eventType,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	o.mu.Lock()
	state, ok := o.states[taskID]
	if !ok {
		state = newTaskState(taskID)
		o.states[taskID] = state
	}
	state.apply(event)
	subscribers := append([]*Subscription(nil), o.subs[taskID]...)
	o.mu.Unlock()

	for _, sub := range subscribers {
		o.deliver(sub, event)
	}

	if eventType == EventTaskCompleted || eventType == EventTaskFailed {
		o.scheduleCleanup(taskID, cleanupDelay)
	}
}

func (o *Observer) deliver(sub *Subscription, event Event) {
	defer func() {
		// A subscription closed mid-delivery surfaces as a send panic.
		if recover() != nil {
			o.logger.Debug("dropped event for closed subscription",
				logging.String(logging.FieldTaskID, event.TaskID))
		}
	}()

	select {
	case <-sub.done:
		return
	default:
	}

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case sub.events <- event:
	case <-sub.done:
	case <-timer.C:
		o.logger.Warn("subscriber queue full, dropping event",
			logging.String(logging.FieldTaskID, event.TaskID),
			logging.String("event_type", string(event.Type)))
	}
}

// State returns a copy of the task's state snapshot.
func (o *Observer) State(taskID string) (TaskState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.states[taskID]
	if !ok {
		return TaskState{}, false
	}
	return state.snapshot(), true
}

// scheduleCleanup arranges for the task's state to be discarded after the
// delay, notifying any remaining subscribers with a stream_end event first.
func (o *Observer) scheduleCleanup(taskID string, delay time.Duration) {
	o.mu.Lock()
	if timer, ok := o.timers[taskID]; ok {
		timer.Stop()
	}
	o.timers[taskID] = time.AfterFunc(delay, func() { o.cleanup(taskID) })
	o.mu.Unlock()
}

func (o *Observer) cleanup(taskID string) {
	end := Event{
		Type:      EventStreamEnd,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
	}

	o.mu.Lock()
	subscribers := o.subs[taskID]
	delete(o.subs, taskID)
	delete(o.states, taskID)
	delete(o.timers, taskID)
	o.mu.Unlock()

	for _, sub := range subscribers {
		o.deliver(sub, end)
		sub.close()
	}
}
