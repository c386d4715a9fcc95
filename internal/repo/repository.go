package repo

import (
	"context"
	"time"

	"github.com/hamed0406/sshwatch/internal/domain"
)

// Ports (interfaces) between the monitoring core and its sources.

// EndpointSource yields the monitored endpoints. Implementations re-read
// their backing source on every call.
type EndpointSource interface {
	Load(ctx context.Context) ([]domain.Endpoint, error)
}

// SubscriberSource yields the notification recipients.
type SubscriberSource interface {
	Load(ctx context.Context) ([]domain.Subscriber, error)
}

// StatusReader is the read side of the status store.
type StatusReader interface {
	Get(key domain.EndpointKey) (domain.HostState, bool)
	Snapshot() []domain.HostState
}

// StatusStore is the status store as seen by its single writer.
type StatusStore interface {
	StatusReader
	Update(ep domain.Endpoint, available bool, now time.Time) (domain.HostState, bool)
	Prune(keep []domain.EndpointKey) int
}
