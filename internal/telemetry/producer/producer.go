// Package producer publishes audit events to a message broker (Kafka).
package producer

import (
	"context"

	auditdomain "github.com/kefline/student-hub/internal/audit/domain"
)

// Producer publishes audit events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *auditdomain.AuditLog) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
