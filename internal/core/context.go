package core

import "context"

type contextKey string

const ctxKeyTrigger contextKey = "run_trigger"

// Run triggers recorded on the context for logging.
const (
	TriggerCLI      = "cli"
	TriggerSchedule = "schedule"
	TriggerHTTP     = "http"
)

// ContextWithTrigger records what started a run.
func ContextWithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, ctxKeyTrigger, trigger)
}

// TriggerFromContext returns the recorded trigger, or TriggerCLI.
func TriggerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTrigger).(string); ok && v != "" {
		return v
	}
	return TriggerCLI
}
