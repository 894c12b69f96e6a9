package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"resumerag/internal/errors"

	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const (
	defaultRetryBaseDelay = time.Second
	maxRetryBackoff       = 30 * time.Second
)

// retryPolicy retries transient provider failures with exponential
// backoff and up to 10% jitter.
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *errors.Logger
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	base := p.baseDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * base

	if jitterMax := int64(float64(delay) * 0.1); jitterMax > 0 {
		if j, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			delay += time.Duration(j.Int64())
		}
	}
	return min(delay, maxRetryBackoff)
}

// withRetry calls fn until it succeeds, fails with a non-retryable error,
// runs out of attempts or ctx is done.
func withRetry[T any](ctx context.Context, p retryPolicy, operation string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			if p.logger != nil {
				p.logger.Warn("Retrying AI operation",
					"operation", operation,
					"attempt", attempt,
					"max_retries", p.maxRetries,
					"error", lastErr.Error())
			}

			select {
			case <-time.After(p.backoff(attempt)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 && p.logger != nil {
				p.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	if p.logger != nil {
		p.logger.LogError(lastErr, "AI operation failed after all retry attempts",
			"operation", operation,
			"max_retries", p.maxRetries)
	}
	return zero, fmt.Errorf("operation '%s' failed: %w", operation, lastErr)
}

// isRetryableError reports network failures and 429/5xx responses from
// either provider SDK.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var googleErr *googleapi.Error
	if stderrors.As(err, &googleErr) {
		return retryableStatus(googleErr.Code)
	}

	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}

	var openaiErr *openai.Error
	if stderrors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.StatusCode)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
