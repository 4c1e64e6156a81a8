package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/store"
)

func TestIdempotencyReplaysSuccess(t *testing.T) {
	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"R1"}}`))
	})
	kv := NewKVIdempotencyStore(store.NewMemoryStore(), "test", time.Hour, logger.Discard())
	h := Idempotency(kv, "")(next)

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("/api/v1/reservations")
	second := send("/api/v1/reservations")
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	require.EqualValues(t, 1, calls.Load())

	send("/api/v1/shifts/open")
	require.EqualValues(t, 2, calls.Load(), "keys are scoped to the path")
}

func TestIdempotencySkipsFailures(t *testing.T) {
	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	h := Idempotency(NewKVIdempotencyStore(store.NewMemoryStore(), "", time.Hour, logger.Discard()), "")(next)

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", nil)
		req.Header.Set("Idempotency-Key", "abc")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	require.EqualValues(t, 2, calls.Load())
}

func TestIdempotencyExpires(t *testing.T) {
	kv := NewKVIdempotencyStore(store.NewMemoryStore(), "", time.Minute, logger.Discard())
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	kv.Set(t.Context(), "k", &CachedResponse{StatusCode: http.StatusOK})
	_, found := kv.Get(t.Context(), "k")
	require.True(t, found)

	now = now.Add(2 * time.Minute)
	_, found = kv.Get(t.Context(), "k")
	require.False(t, found)
}

func TestPhoneRateLimitNormalizesGuestPhone(t *testing.T) {
	limiter := NewPhoneRateLimiter(2, time.Hour, GuestPhoneExtractor("KG"), logger.Discard())
	defer limiter.Stop()

	var bodies []string
	h := PhoneRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		bodies = append(bodies, buf.String())
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(phone string) int {
		body := `{"guest":{"name":"Aida","phone":"` + phone + `"}}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusCreated, send("0555123456"))
	require.Equal(t, http.StatusCreated, send("+996555123456"))
	require.Equal(t, http.StatusTooManyRequests, send("0555 123 456"))
	require.Equal(t, http.StatusCreated, send("0700111222"))

	require.Len(t, bodies, 3)
	require.Contains(t, bodies[0], "0555123456", "body is restored for the handler")
}

func TestPhoneRateLimiterWindow(t *testing.T) {
	limiter := NewPhoneRateLimiter(1, time.Minute, func(*http.Request) string { return "" }, logger.Discard())
	defer limiter.Stop()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	require.True(t, limiter.Allow("+996555123456"))
	require.False(t, limiter.Allow("+996555123456"))
	require.True(t, limiter.Allow(""), "requests without a phone are not limited")

	now = now.Add(time.Minute)
	require.True(t, limiter.Allow("+996555123456"))
}

func TestContentTypeValidation(t *testing.T) {
	h := ContentTypeValidation(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/offline/flush", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "boom")
}

func TestUserIdentity(t *testing.T) {
	var seen []string
	handler := UserIdentity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, UserID(r.Context()))
	}))

	for _, header := range []string{" u42 ", "", "   "} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", nil)
		if header != "" {
			req.Header.Set(UserIDHeader, header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Equal(t, []string{"u42", "", ""}, seen)
}
