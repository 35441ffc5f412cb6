package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/audit/domain"
	auditrepo "github.com/kefline/student-hub/internal/audit/repository"
	"github.com/kefline/student-hub/internal/telemetry"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by the auth code paths.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository, an optional IP extractor and
// optional fan-out sinks (OTel logs, Kafka).
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	sinks       []telemetry.EventEmitter
	log         *zap.Logger
	now         func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown". log may be nil.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *zap.Logger, sinks ...telemetry.EventEmitter) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	out := make([]telemetry.EventEmitter, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, sinks: out, log: log, now: time.Now}
}

// LogEvent writes one audit log entry and hands it to each sink asynchronously.
// Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	if l == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.now().UTC(),
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, entry); err != nil {
			l.log.Warn("audit: failed to log event",
				zap.String("action", action), zap.String("resource", resource), zap.Error(err))
		}
	}
	for _, s := range l.sinks {
		telemetry.EmitAsync(s, l.log, entry)
	}
}
