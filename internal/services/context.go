package services

import (
	"context"
	"strings"
)

type contextKey string

const (
	taskIDKey     contextKey = "task_id"
	phaseKey      contextKey = "phase"
	dialogueIDKey contextKey = "dialogue_id"
)

// WithTaskID stores a pipeline task identifier on the context.
func WithTaskID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, taskIDKey, id)
}

// TaskIDFromContext extracts a task identifier when present.
func TaskIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, taskIDKey)
}

// WithPhase stores the active pipeline phase name on the context.
func WithPhase(ctx context.Context, phase string) context.Context {
	phase = strings.TrimSpace(phase)
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext extracts the active phase name when present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, phaseKey)
}

// WithDialogueID stores the dialogue identifier being processed on the context.
func WithDialogueID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, dialogueIDKey, id)
}

// DialogueIDFromContext extracts a dialogue identifier when present.
func DialogueIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, dialogueIDKey)
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}
