package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/solsecurity/pkg/models"
)

func TestDoRetriesServerErrors(t *testing.T) {
	calls := 0
	var retried []int
	err := Do(context.Background(), Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		OnRetry:     func(attempt int, _ time.Duration, _ error) { retried = append(retried, attempt) },
	}, func(context.Context) error {
		calls++
		if calls < 3 {
			return &models.FetchError{Source: "helius", StatusCode: 503, Message: "busy"}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoStopsOnFatal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return &models.FetchError{Source: "helius", StatusCode: 401, Message: "bad key"}
	})

	var fe *models.FetchError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, calls)
}

func TestDoSingleAttemptByDefault(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{}, func(context.Context) error {
		calls++
		return &models.FetchError{Source: "helius", Err: errors.New("connection reset")}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, Policy{MaxAttempts: 3}, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyFetch(t *testing.T) {
	assert.Equal(t, Retryable, ClassifyFetch(&models.FetchError{StatusCode: 429}))
	assert.Equal(t, Retryable, ClassifyFetch(&models.FetchError{StatusCode: 502}))
	assert.Equal(t, Fatal, ClassifyFetch(&models.FetchError{StatusCode: 404}))
	assert.Equal(t, Fatal, ClassifyFetch(errors.New("decode")))
}
