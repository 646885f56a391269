package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/hts-derivatives/internal/prompt"
	"golang.org/x/time/rate"
)

// rateLimitedBackend spaces Generate calls to stay under a requests-per-minute
// quota. Interactive searches rarely hit it; batch runs do.
type rateLimitedBackend struct {
	Backend
	limiter *rate.Limiter
}

// WithRateLimit wraps b so that at most requestsPerMinute calls start per
// minute. A non-positive limit returns b unchanged.
func WithRateLimit(b Backend, requestsPerMinute int) Backend {
	if requestsPerMinute <= 0 {
		return b
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &rateLimitedBackend{
		Backend: b,
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

// Generate blocks until a token is available or the context is canceled.
func (r *rateLimitedBackend) Generate(ctx context.Context, segments []prompt.Segment, schema Schema) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter canceled: %w", err)
	}
	return r.Backend.Generate(ctx, segments, schema)
}
