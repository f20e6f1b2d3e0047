package sshclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"
)

// RetryConfig configures retries of connection establishment. Individual
// transfers are never retried.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts (0 = single attempt).
	MaxRetries int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration

	// Multiplier grows the delay after each attempt (2.0 doubles it).
	Multiplier float64

	// JitterFactor randomizes each delay by up to this fraction.
	JitterFactor float64

	// Logger receives a warning per failed attempt.
	Logger Logger
}

// DefaultRetryConfig returns the retry settings used by the CLI.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.25,
	}
}

// NoRetryConfig returns a config with retries disabled.
func NoRetryConfig() RetryConfig {
	return RetryConfig{}
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted.
func Retry(ctx context.Context, config RetryConfig, operation string, fn func() error) error {
	log := loggerOrNop(config.Logger)
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled: %w", operation, err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			return err
		}
		if attempt == config.MaxRetries {
			break
		}

		delay := backoffDelay(config, attempt)
		log.Warnf("%s failed (attempt %d/%d): %v; retrying in %v",
			operation, attempt+1, config.MaxRetries+1, err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled during retry wait: %w", operation, ctx.Err())
		case <-timer.C:
		}
	}

	if config.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operation, config.MaxRetries+1, lastErr)
}

func backoffDelay(config RetryConfig, attempt int) time.Duration {
	delay := float64(config.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= config.Multiplier
	}

	if config.JitterFactor > 0 {
		jitter := delay * config.JitterFactor
		delay = delay - jitter + rand.Float64()*2*jitter
	}

	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

var retryableMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no route to host",
	"network is unreachable",
	"i/o timeout",
	"handshake failed",
	"ssh: disconnect",
	"temporary failure",
	"too many open files",
}

// IsRetryableError reports whether err looks like a transient network
// failure. A *ConnectionError with a specific code (rejected credentials or
// host key, missing SFTP subsystem or remote path) is permanent, as are
// host key and authentication errors not yet wrapped in one.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var connErr *ConnectionError
	if errors.As(err, &connErr) && connErr.Permanent() {
		return false
	}
	if isHostKeyError(err) || isAuthError(err) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
