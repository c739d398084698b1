package ports

import "context"

// HealthChecker probes one backing dependency; a nil error means healthy.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
