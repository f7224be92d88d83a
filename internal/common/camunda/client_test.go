package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"quote-vehicle-reconciler/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	result, err := testClient().ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, stderrors.New("rpc error: code = Unavailable")
		}
		return "ok", nil
	}, "complete-job")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_Exhausted(t *testing.T) {
	calls := 0
	_, err := testClient().ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("connection refused")
	}, "complete-job")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, stderrors.Is(err, &errors.StandardError{Code: errors.ErrCodeBrokerUnavailable}))
	assert.True(t, errors.AsStandardError(err).Retryable)
}

func TestExecuteWithRetry_RejectionNotRetried(t *testing.T) {
	calls := 0
	_, err := testClient().ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("rpc error: code = NotFound desc = job not found")
	}, "complete-job")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	stdErr := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrCodeBrokerRejected, stdErr.Code)
	assert.Equal(t, "complete-job", stdErr.Metadata["operation"])
}

func TestExecuteWithRetry_Canceled(t *testing.T) {
	c := testClient()
	c.config.RetryConfig.BaseDelay = time.Hour
	c.config.RetryConfig.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(context.Context) (interface{}, error) {
		return nil, stderrors.New("deadline exceeded")
	}, "complete-job")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"connection reset by peer", true},
		{"context deadline exceeded", true},
		{"rpc error: code = Unavailable", true},
		{"rpc error: code = InvalidArgument", false},
		{"job not found", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(stderrors.New(tt.msg)))
		})
	}
}
