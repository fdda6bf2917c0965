package core

import "context"

type contextKey string

const (
	ctxKeyTrigger   contextKey = "run_trigger"
	ctxKeyIPAddress contextKey = "run_ip"
)

// Run triggers recorded in the run report.
const (
	TriggerCLI      = "cli"
	TriggerHTTP     = "http"
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
)

// ContextWithTrigger records what started a pipeline run.
func ContextWithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, ctxKeyTrigger, trigger)
}

// ContextWithIPAddress records the client address of an HTTP-triggered run.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// TriggerFromContext returns the run trigger, defaulting to TriggerCLI.
func TriggerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTrigger).(string); ok && v != "" {
		return v
	}
	return TriggerCLI
}

// IPAddressFromContext returns the client address, or "".
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
