package llm

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
	options   []GenerateOptions
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, opts GenerateOptions) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	s.options = append(s.options, opts)

	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", nil
}

func recordingBackoff(delays *[]int) Backoff {
	return func(attempt int) time.Duration {
		*delays = append(*delays, attempt)
		return 0
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestExponentialBackoff(t *testing.T) {
	backoff := ExponentialBackoff(time.Second)

	assert.Equal(t, 1*time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, 1*time.Second, backoff(0))
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.Backoff(1))
	assert.Equal(t, 2*time.Second, policy.Backoff(2))
}

func TestGenerateWithRetry_FirstAttemptSucceeds(t *testing.T) {
	gen := &stubGenerator{responses: []string{"[]"}}
	var delays []int

	text, err := GenerateWithRetry(context.Background(), gen, "prompt", GenerateOptions{Temperature: 0.8},
		RetryPolicy{MaxAttempts: 3, Backoff: recordingBackoff(&delays)})

	require.NoError(t, err)
	assert.Equal(t, "[]", text)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, delays)
	assert.Equal(t, float32(0.8), gen.options[0].Temperature)
}

func TestGenerateWithRetry_RecoversAfterTransientFailures(t *testing.T) {
	gen := &stubGenerator{
		errs:      []error{errors.New("503"), errors.New("timeout"), nil},
		responses: []string{"", "", "[1]"},
	}
	var delays []int

	text, err := GenerateWithRetry(context.Background(), gen, "prompt", GenerateOptions{},
		RetryPolicy{MaxAttempts: 3, Backoff: recordingBackoff(&delays), Logger: quietLogger()})

	require.NoError(t, err)
	assert.Equal(t, "[1]", text)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []int{1, 2}, delays)
}

func TestGenerateWithRetry_EmptyResponseIsRetried(t *testing.T) {
	gen := &stubGenerator{responses: []string{"", "[2]"}}
	var delays []int

	text, err := GenerateWithRetry(context.Background(), gen, "prompt", GenerateOptions{},
		RetryPolicy{MaxAttempts: 3, Backoff: recordingBackoff(&delays)})

	require.NoError(t, err)
	assert.Equal(t, "[2]", text)
	assert.Equal(t, 2, gen.calls)
}

func TestGenerateWithRetry_ExhaustedKeepsLastCause(t *testing.T) {
	lastErr := errors.New("quota exceeded")
	gen := &stubGenerator{errs: []error{errors.New("first"), errors.New("second"), lastErr}}
	var delays []int

	_, err := GenerateWithRetry(context.Background(), gen, "prompt", GenerateOptions{},
		RetryPolicy{MaxAttempts: 3, Backoff: recordingBackoff(&delays)})

	require.Error(t, err)
	assert.ErrorIs(t, err, lastErr)

	var retryErr *RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, 3, retryErr.Attempts)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []int{1, 2}, delays, "no backoff after the final attempt")
}

func TestGenerateWithRetry_DefaultsApplied(t *testing.T) {
	gen := &stubGenerator{responses: []string{"ok"}}

	text, err := GenerateWithRetry(context.Background(), gen, "prompt", GenerateOptions{}, RetryPolicy{})

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestGenerateWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &stubGenerator{errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}}

	backoff := func(int) time.Duration {
		cancel()
		return time.Hour
	}

	_, err := GenerateWithRetry(ctx, gen, "prompt", GenerateOptions{}, RetryPolicy{MaxAttempts: 3, Backoff: backoff})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls)
}
