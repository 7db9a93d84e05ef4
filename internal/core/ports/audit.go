package ports

import (
	"context"

	"github.com/silianos/voyage-api/internal/core/domain"
)

// AuditSink accepts auth events without blocking the caller.
type AuditSink interface {
	Record(event domain.AuthEvent)
}

type AuditRepository interface {
	InsertAuthEvent(ctx context.Context, event *domain.AuthEvent) error
}
