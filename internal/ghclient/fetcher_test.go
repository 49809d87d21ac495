package ghclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func response(status int, headers map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader("{}")),
	}
}

// recordingSleep records requested waits without sleeping.
type recordingSleep struct {
	waits []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func testRetryConfig(s *recordingSleep, now time.Time) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.Sleep = s.sleep
	cfg.Now = func() time.Time { return now }
	return cfg
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "https://api.github.com/repos/acme/widget", nil)
	require.NoError(t, err)
	return req
}

func TestFetcher_PersistentRateLimitMakesExactlyMaxAttempts(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	reset := now.Add(5 * time.Second)

	var calls int32
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return response(http.StatusForbidden, map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(reset.Unix(), 10),
		}), nil
	})

	s := &recordingSleep{}
	f := NewFetcher(base, testRetryConfig(s, now), nil)

	resp, err := f.RoundTrip(newRequest(t))
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimitExceeded))

	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, reset.Unix(), rl.Reset.Unix())
	assert.Equal(t, http.StatusForbidden, rl.StatusCode)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	// reset - now + 1s buffer, before attempts 2 and 3
	assert.Equal(t, []time.Duration{6 * time.Second, 6 * time.Second}, s.waits)
}

func TestFetcher_RateLimitRecovers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var calls int32
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return response(http.StatusForbidden, map[string]string{
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     strconv.FormatInt(now.Add(2*time.Second).Unix(), 10),
			}), nil
		}
		return response(http.StatusOK, nil), nil
	})

	s := &recordingSleep{}
	resp, err := NewFetcher(base, testRetryConfig(s, now), nil).RoundTrip(newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls)
	assert.Equal(t, []time.Duration{3 * time.Second}, s.waits)
}

func TestFetcher_RateLimitWaitTooLongFailsFast(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var calls int32
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return response(http.StatusForbidden, map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(now.Add(time.Hour).Unix(), 10),
		}), nil
	})

	s := &recordingSleep{}
	cfg := testRetryConfig(s, now)
	cfg.MaxRateLimitWait = 2 * time.Minute
	_, err := NewFetcher(base, cfg, nil).RoundTrip(newRequest(t))
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, int32(1), calls)
	assert.Empty(t, s.waits)
}

func TestFetcher_DistantResetWaitsByDefault(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var calls int32
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return response(http.StatusForbidden, map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(now.Add(10*time.Minute).Unix(), 10),
		}), nil
	})

	s := &recordingSleep{}
	_, err := NewFetcher(base, testRetryConfig(s, now), nil).RoundTrip(newRequest(t))
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, int32(3), calls)
	assert.Equal(t, []time.Duration{10*time.Minute + time.Second, 10*time.Minute + time.Second}, s.waits)
}

func TestFetcher_ResetInPastFailsWithoutWaiting(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return response(http.StatusForbidden, map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(now.Add(-time.Minute).Unix(), 10),
		}), nil
	})

	s := &recordingSleep{}
	_, err := NewFetcher(base, testRetryConfig(s, now), nil).RoundTrip(newRequest(t))
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Empty(t, s.waits)
}

func TestFetcher_TransientErrorsUseLinearBackoff(t *testing.T) {
	tests := []struct {
		name      string
		fail      func() (*http.Response, error)
		wantErr   bool
		wantCode  int
		wantCalls int32
	}{
		{
			name:      "network error exhausts",
			fail:      func() (*http.Response, error) { return nil, errors.New("connection reset") },
			wantErr:   true,
			wantCalls: 3,
		},
		{
			name:      "5xx returned after last attempt",
			fail:      func() (*http.Response, error) { return response(http.StatusBadGateway, nil), nil },
			wantCode:  http.StatusBadGateway,
			wantCalls: 3,
		},
		{
			name:      "429 without reset data",
			fail:      func() (*http.Response, error) { return response(http.StatusTooManyRequests, nil), nil },
			wantCode:  http.StatusTooManyRequests,
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			base := roundTripFunc(func(*http.Request) (*http.Response, error) {
				atomic.AddInt32(&calls, 1)
				return tt.fail()
			})

			s := &recordingSleep{}
			resp, err := NewFetcher(base, testRetryConfig(s, time.Now()), nil).RoundTrip(newRequest(t))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCode, resp.StatusCode)
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.waits)
		})
	}
}

func TestFetcher_RetryLogsCarryRequestID(t *testing.T) {
	var calls int32
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return response(http.StatusBadGateway, nil), nil
		}
		return response(http.StatusOK, nil), nil
	})

	tl := logging.NewTestLogger()
	s := &recordingSleep{}
	req := newRequest(t).WithContext(logging.WithRequestID(context.Background(), "req-7"))
	_, err := NewFetcher(base, testRetryConfig(s, time.Now()), tl.Underlying()).RoundTrip(req)
	require.NoError(t, err)
	tl.AssertField(t, "retrying github request after transient status", "request.id", "req-7")
}

func TestFetcher_NoRetryOnClientErrors(t *testing.T) {
	for _, code := range []int{
		http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusUnprocessableEntity,
	} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			var calls int32
			base := roundTripFunc(func(*http.Request) (*http.Response, error) {
				atomic.AddInt32(&calls, 1)
				return response(code, nil), nil
			})

			s := &recordingSleep{}
			resp, err := NewFetcher(base, testRetryConfig(s, time.Now()), nil).RoundTrip(newRequest(t))
			require.NoError(t, err)
			assert.Equal(t, code, resp.StatusCode)
			assert.Equal(t, int32(1), calls)
			assert.Empty(t, s.waits)
		})
	}
}

func TestFetcher_SecondaryRateLimitRetryAfter(t *testing.T) {
	var calls int32
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return response(http.StatusForbidden, map[string]string{"Retry-After": "4"}), nil
		}
		return response(http.StatusOK, nil), nil
	})

	s := &recordingSleep{}
	resp, err := NewFetcher(base, testRetryConfig(s, time.Now()), nil).RoundTrip(newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []time.Duration{5 * time.Second}, s.waits)
}

func TestFetcher_ContextCancelledDuringWait(t *testing.T) {
	base := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return response(http.StatusServiceUnavailable, nil), nil
	})

	cfg := DefaultRetryConfig()
	cfg.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	req := newRequest(t).WithContext(ctx)
	cancel()

	_, err := NewFetcher(base, cfg, nil).RoundTrip(req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryConfig_ApplyDefaults(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5}
	cfg.ApplyDefaults()

	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Backoff)
	assert.Equal(t, time.Second, cfg.ResetBuffer)
	assert.Zero(t, cfg.MaxRateLimitWait)
	assert.NotNil(t, cfg.Sleep)
	assert.NotNil(t, cfg.Now)
}
