package util

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter spaces out watch-mode re-resolutions. Debouncing already batches
// filesystem events; the token bucket on top keeps a long burst of batches
// from re-resolving the workspace back to back.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter allows perSecond runs with the given burst headroom.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow reports whether a run may start right now.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}

// Wait blocks until the next run may start.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}
