package connectors

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
		RetryableCodes: []int{http.StatusTooManyRequests, http.StatusServiceUnavailable},
	}
}

func stubResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     make(http.Header),
	}
}

func TestShouldRetry(t *testing.T) {
	r := NewRetrier(nil)

	assert.True(t, r.ShouldRetry(0, errors.New("connection refused")))
	assert.True(t, r.ShouldRetry(http.StatusTooManyRequests, nil))
	assert.True(t, r.ShouldRetry(http.StatusServiceUnavailable, nil))
	assert.False(t, r.ShouldRetry(http.StatusBadRequest, nil))
	assert.False(t, r.ShouldRetry(http.StatusUnauthorized, nil))
	assert.False(t, r.ShouldRetry(http.StatusNotFound, nil))
}

func TestCalculateBackoffHonorsRetryAfter(t *testing.T) {
	r := NewRetrier(fastRetryConfig(3))
	assert.Equal(t, 7*time.Second, r.CalculateBackoff(0, 7*time.Second))
}

func TestCalculateBackoffGrowsAndCaps(t *testing.T) {
	r := NewRetrier(&RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     3 * time.Second,
		BackoffFactor:  2.0,
	})
	assert.Equal(t, time.Second, r.CalculateBackoff(0, 0))
	assert.Equal(t, 2*time.Second, r.CalculateBackoff(1, 0))
	assert.Equal(t, 3*time.Second, r.CalculateBackoff(2, 0)) // capped
}

func TestParseRetryAfterSeconds(t *testing.T) {
	resp := stubResponse(http.StatusTooManyRequests)
	resp.Header.Set("Retry-After", "12")
	assert.Equal(t, 12*time.Second, ParseRetryAfter(resp))

	resp.Header.Set("Retry-After", "not-a-number")
	assert.Equal(t, time.Duration(0), ParseRetryAfter(resp))

	assert.Equal(t, time.Duration(0), ParseRetryAfter(nil))
}

func TestDoHTTPRetriesUntilSuccess(t *testing.T) {
	r := NewRetrier(fastRetryConfig(3))

	attempts := 0
	resp, err := r.DoHTTP(context.Background(), "test", func(ctx context.Context) (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return stubResponse(http.StatusServiceUnavailable), nil
		}
		return stubResponse(http.StatusOK), nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, attempts)
}

func TestDoHTTPDoesNotRetryClientErrors(t *testing.T) {
	r := NewRetrier(fastRetryConfig(3))

	attempts := 0
	resp, err := r.DoHTTP(context.Background(), "test", func(ctx context.Context) (*http.Response, error) {
		attempts++
		return stubResponse(http.StatusUnprocessableEntity), nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, 1, attempts)
}

func TestDoHTTPGivesUpAfterMaxRetries(t *testing.T) {
	r := NewRetrier(fastRetryConfig(2))

	attempts := 0
	_, err := r.DoHTTP(context.Background(), "test", func(ctx context.Context) (*http.Response, error) {
		attempts++
		return nil, errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, 3, attempts)
}

func TestDoHTTPStopsOnContextCancel(t *testing.T) {
	r := NewRetrier(&RetryConfig{
		MaxRetries:     5,
		InitialBackoff: time.Hour,
		MaxBackoff:     time.Hour,
		BackoffFactor:  1.0,
		RetryableCodes: []int{http.StatusServiceUnavailable},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.DoHTTP(ctx, "test", func(ctx context.Context) (*http.Response, error) {
		return stubResponse(http.StatusServiceUnavailable), nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
