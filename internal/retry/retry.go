package retry

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/rawblock/solsecurity/pkg/models"
)

type Class int

const (
	Retryable Class = iota
	Fatal
)

type Policy struct {
	MaxAttempts int           // 1 disables retries
	BaseDelay   time.Duration // first backoff
	MaxDelay    time.Duration
	Jitter      time.Duration

	// Classify decides whether an error is retryable.
	// If nil, ClassifyFetch is used.
	Classify func(error) Class

	// OnRetry is optional hook for logging/metrics.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// ClassifyFetch retries transport failures, throttling and upstream 5xx.
// Other HTTP statuses and non-fetch errors are fatal.
func ClassifyFetch(err error) Class {
	var fe *models.FetchError
	if !errors.As(err, &fe) {
		return Fatal
	}
	switch {
	case fe.StatusCode == 0:
		return Retryable
	case fe.StatusCode == http.StatusTooManyRequests:
		return Retryable
	case fe.StatusCode >= 500:
		return Retryable
	default:
		return Fatal
	}
}

func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}

	classify := p.Classify
	if classify == nil {
		classify = ClassifyFetch
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if classify(err) == Fatal {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		// exponential backoff with cap + jitter
		wait := p.BaseDelay << (attempt - 1)
		if wait > p.MaxDelay {
			wait = p.MaxDelay
		}
		if p.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(p.Jitter)))
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = errors.New("retry: exhausted with no error (unexpected)")
	}
	return lastErr
}
