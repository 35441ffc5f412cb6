// Package telemetry fans audit events out to best-effort sinks (OTel logs, Kafka).
package telemetry

import (
	"context"

	auditdomain "github.com/kefline/student-hub/internal/audit/domain"
)

// EventEmitter emits audit events to an external sink. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *auditdomain.AuditLog) error
}
