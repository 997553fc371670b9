package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"owasp-controls-demo/backend/internal/audit/domain"
	auditrepo "owasp-controls-demo/backend/internal/audit/repository"
	"owasp-controls-demo/backend/internal/logging"
	"owasp-controls-demo/backend/internal/telemetry"
)

// Outcomes recorded with each event.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// Event is one security event to record.
type Event struct {
	IdentityID string
	Username   string
	Action     string
	Outcome    string
	Metadata   string
}

// AuditLogger writes security events. LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, e Event)
}

// Logger persists events to the audit repository, writes them to the structured log and
// emits them as telemetry events.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         logging.Logger
	emitter     telemetry.EventEmitter
	nowF        func() time.Time
}

// NewLogger returns a Logger. Any of repo, log and emitter may be nil. ipExtractor may be nil,
// in which case ClientIP is used.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log logging.Logger, emitter telemetry.EventEmitter) *Logger {
	if ipExtractor == nil {
		ipExtractor = ClientIP
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log, emitter: emitter, nowF: time.Now}
}

// LogEvent records e.
func (l *Logger) LogEvent(ctx context.Context, e Event) {
	ip := l.ipExtractor(ctx)
	if ip == "" {
		ip = "unknown"
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		IdentityID: e.IdentityID,
		Username:   e.Username,
		Action:     e.Action,
		Outcome:    e.Outcome,
		IP:         ip,
		Metadata:   e.Metadata,
		CreatedAt:  l.nowF().UTC(),
	}
	if l.log != nil {
		args := []any{"action", entry.Action, "outcome", entry.Outcome, "ip", entry.IP, "username", entry.Username}
		if entry.Metadata != "" {
			args = append(args, "reason", entry.Metadata)
		}
		if entry.Outcome == OutcomeSuccess {
			l.log.Info(ctx, "security event", args...)
		} else {
			l.log.Warn(ctx, "security event", args...)
		}
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, entry); err != nil && l.log != nil {
			l.log.Error(ctx, "audit: failed to persist event", "action", entry.Action, "error", err)
		}
	}
	telemetry.EmitAsync(l.emitter, &telemetry.SecurityEvent{
		Name:       entry.Action,
		Outcome:    entry.Outcome,
		IdentityID: entry.IdentityID,
		Username:   entry.Username,
		IP:         entry.IP,
		Reason:     entry.Metadata,
		Time:       entry.CreatedAt,
	})
}

// Nop discards every event. The insecure variant uses it.
type Nop struct{}

// LogEvent implements AuditLogger.
func (Nop) LogEvent(context.Context, Event) {}

type clientIPKey struct{}

// WithClientIP returns ctx carrying the client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the client IP stored by WithClientIP, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
