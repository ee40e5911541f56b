package readiness

import (
	"context"

	"github.com/google/uuid"
)

// CacheRepository persists the latest snapshot per case for dashboard
// reads that tolerate staleness.
type CacheRepository interface {
	Upsert(ctx context.Context, snap *CachedSnapshot) error
	Get(ctx context.Context, caseID uuid.UUID) (*CachedSnapshot, error)
	Delete(ctx context.Context, caseID uuid.UUID) error
}
