// Package telemetry carries security events to an external sink such as OTel Logs.
package telemetry

import (
	"context"
	"time"
)

// SecurityEvent is one notable control outcome (login, denial, destructive action).
type SecurityEvent struct {
	Name       string
	Outcome    string
	IdentityID string
	Username   string
	IP         string
	Reason     string
	Time       time.Time
}

// EventEmitter emits security events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *SecurityEvent) error
}
