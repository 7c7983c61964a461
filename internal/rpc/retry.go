package rpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/goran-ethernal/PoolSync/pkg/config"
)

var (
	timeoutMarkers   = []string{"timeout", "deadline exceeded"}
	rateLimitMarkers = []string{"429", "too many requests", "rate limit"}
	// gateway failures and exhausted node side connection pools
	transientMarkers = []string{
		"502", "503", "504", "bad gateway", "service unavailable", "gateway timeout",
		"connection pool", "no available connection",
	}
)

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// retryableError reports whether err is worth another attempt: network failures,
// timeouts, rate limiting and transient node errors.
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	lower := strings.ToLower(err.Error())
	return containsAny(lower, timeoutMarkers) ||
		containsAny(lower, rateLimitMarkers) ||
		containsAny(lower, transientMarkers)
}

// calculateBackoff computes the wait after the given failed attempt: an exponential
// base delay (capped at MaxBackoff) plus a uniform random jitter in [0, MaxJitter].
func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	var backoff float64
	if cfg.InitialBackoff.Duration > 0 && attempt >= 1 {
		backoff = float64(cfg.InitialBackoff.Duration) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
		if cfg.MaxBackoff.Duration > 0 && backoff > float64(cfg.MaxBackoff.Duration) {
			backoff = float64(cfg.MaxBackoff.Duration)
		}
	}

	if cfg.MaxJitter.Duration > 0 {
		backoff += rand.Float64() * float64(cfg.MaxJitter.Duration)
	}

	return time.Duration(backoff)
}

// classifyError maps an RPC error to a metric label.
func classifyError(err error) string {
	if err == nil {
		return "ok"
	}
	if tooMany, _ := IsTooManyResultsError(err); tooMany {
		return "too_many_results"
	}

	lower := strings.ToLower(err.Error())
	switch {
	case containsAny(lower, timeoutMarkers):
		return "timeout"
	case containsAny(lower, rateLimitMarkers):
		return "rate_limited"
	case retryableError(err):
		return "network_error"
	case strings.Contains(lower, "execution reverted"):
		return "reverted"
	default:
		return "client_error"
	}
}

// retryWithBackoff runs fn until it succeeds, fails with a non-retryable error or
// runs out of attempts. A nil cfg runs fn once.
func retryWithBackoff(ctx context.Context, cfg *config.RetryConfig, operation string, fn func() error) error {
	if cfg == nil {
		return fn()
	}

	started := time.Now()
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled before attempt %d: %w", attempt, err)
		}

		if attempt > 1 {
			RPCRetryInc(operation)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryableError(lastErr) {
			return fmt.Errorf("non-retryable error on attempt %d/%d: %w", attempt, cfg.MaxAttempts, lastErr)
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := calculateBackoff(attempt, cfg)
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled during backoff (attempt %d/%d): %w",
				attempt, cfg.MaxAttempts, ctx.Err())
		}
	}

	return fmt.Errorf("all %d attempts failed after %v (last error: %w)",
		cfg.MaxAttempts, time.Since(started), lastErr)
}
