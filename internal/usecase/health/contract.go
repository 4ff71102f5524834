package health

import "context"

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}
