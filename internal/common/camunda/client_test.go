package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"intelligence-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intelligence-workers/internal/common/metrics"
)

func testRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"broken pipe", true},
		{"NOT_FOUND: job 42 not found", false},
		{"invalid argument", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(stderrors.New(tt.msg)))
		})
	}
}

// ============================================================================
// Retry
// ============================================================================

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), testRetryConfig(3), "complete-job", func(context.Context) error {
		calls++
		if calls < 3 {
			return stderrors.New("connection reset by peer")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_MapsErrors(t *testing.T) {
	tests := []struct {
		name  string
		msg   string
		code  errors.ErrorCode
		calls int
	}{
		{"timeout exhausts retries", "deadline exceeded", errors.ErrCodeTimeout, 3},
		{"unavailable exhausts retries", "unavailable", errors.ErrCodeExternalService, 3},
		{"permanent error fails fast", "invalid job key", errors.ErrCodeExternalService, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), testRetryConfig(2), "complete-job", func(context.Context) error {
				calls++
				return stderrors.New(tt.msg)
			})

			require.Error(t, err)
			assert.Equal(t, tt.code, errors.AsStandardError(err).Code)
			assert.Equal(t, tt.calls, calls)
		})
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, rc, "complete-job", func(context.Context) error {
		return stderrors.New("timeout")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetry_NilConfigUsesDefault(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), nil, "complete-job", func(context.Context) error {
		calls++
		return stderrors.New("invalid argument")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

// ============================================================================
// Instrument
// ============================================================================

func TestInstrument_RecordsDurationAndReleasesGauge(t *testing.T) {
	const taskType = "instrument-test"
	called := false

	h := Instrument(taskType, func(client worker.JobClient, job entities.Job) {
		called = true
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(taskType)))
	})
	h(nil, entities.Job{})

	assert.True(t, called)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(taskType)))
}
