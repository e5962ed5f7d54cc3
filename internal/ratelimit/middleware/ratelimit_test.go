package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriflow/internal/ratelimit/metrics"
	"veriflow/internal/ratelimit/models"
	"veriflow/internal/ratelimit/store/bucket"
	"veriflow/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("store down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func call(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/verifications", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimit(t *testing.T) {
	limit := models.Limit{Requests: 2, Window: time.Minute}

	t.Run("allows up to the budget then rejects", func(t *testing.T) {
		m := metrics.NewWithRegisterer(prometheus.NewRegistry())
		mw := New(bucket.NewInMemoryBucketStore(), discard(),
			WithLimit(models.ClassIntake, limit), WithMetrics(m))
		h := mw.RateLimit(models.ClassIntake)(okHandler())

		rr := call(h, "10.0.0.1")
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))

		assert.Equal(t, http.StatusNoContent, call(h, "10.0.0.1").Code)

		rr = call(h, "10.0.0.1")
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		assert.Contains(t, rr.Body.String(), "rate_limit_exceeded")
		assert.InDelta(t, 1, testutil.ToFloat64(m.Rejected.WithLabelValues("intake")), 0)

		assert.Equal(t, http.StatusNoContent, call(h, "10.0.0.2").Code, "other callers keep their budget")
	})

	t.Run("classes without a budget pass through", func(t *testing.T) {
		mw := New(bucket.NewInMemoryBucketStore(), discard(), WithLimit(models.ClassIntake, limit))
		h := mw.RateLimit(models.ClassRead)(okHandler())
		for range 5 {
			rr := call(h, "10.0.0.1")
			require.Equal(t, http.StatusNoContent, rr.Code)
			assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
		}
	})

	t.Run("disabled", func(t *testing.T) {
		mw := New(bucket.NewInMemoryBucketStore(), discard(),
			WithLimit(models.ClassIntake, models.Limit{Requests: 1, Window: time.Minute}), WithDisabled(true))
		h := mw.RateLimit(models.ClassIntake)(okHandler())
		for range 3 {
			assert.Equal(t, http.StatusNoContent, call(h, "10.0.0.1").Code)
		}
	})

	t.Run("store failure fails open", func(t *testing.T) {
		m := metrics.NewWithRegisterer(prometheus.NewRegistry())
		mw := New(failingStore{}, discard(), WithLimit(models.ClassIntake, limit), WithMetrics(m))
		h := mw.RateLimit(models.ClassIntake)(okHandler())
		assert.Equal(t, http.StatusNoContent, call(h, "10.0.0.1").Code)
		assert.InDelta(t, 1, testutil.ToFloat64(m.Errors), 0)
	})
}
