package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/store"
)

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, response *CachedResponse)
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

// KVIdempotencyStore keeps replayable responses in the configured store
// backend, so a retried request hits the same answer across restarts.
type KVIdempotencyStore struct {
	kv     store.KV
	prefix string
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger
}

func NewKVIdempotencyStore(kv store.KV, prefix string, ttl time.Duration, log *logger.Logger) *KVIdempotencyStore {
	return &KVIdempotencyStore{
		kv:     kv,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

func (s *KVIdempotencyStore) key(k string) string {
	return store.Key(s.prefix, "idempotency", k)
}

func (s *KVIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	data, err := s.kv.Load(ctx, s.key(key))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("Failed to load idempotent response", "key", key, "error", err)
		}
		return nil, false
	}

	var response CachedResponse
	if err := json.Unmarshal(data, &response); err != nil {
		s.log.Warn("Dropping unreadable idempotent response", "key", key, "error", err)
		_ = s.kv.Remove(ctx, s.key(key))
		return nil, false
	}

	if s.now().Sub(response.CreatedAt) > s.ttl {
		_ = s.kv.Remove(ctx, s.key(key))
		return nil, false
	}
	return &response, true
}

func (s *KVIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = s.now()
	data, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("Failed to encode idempotent response", "key", key, "error", err)
		return
	}
	if err := s.kv.Persist(ctx, s.key(key), data); err != nil {
		s.log.Warn("Failed to persist idempotent response", "key", key, "error", err)
	}
}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of a request whose key was seen
// before. Keys are scoped to method and path. Only 2xx responses are
// stored, which includes the 202 of a held but unconfirmed reservation.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = "Idempotency-Key"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idempotencyKey := r.Header.Get(headerName)

			if idempotencyKey == "" || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			scoped := r.Method + " " + r.URL.Path + " " + idempotencyKey

			if cached, found := store.Get(r.Context(), scoped); found {
				replayCachedResponse(w, cached)
				return
			}

			capture := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(capture, r)
			if !shouldCacheResponse(capture.statusCode) {
				return
			}
			store.Set(context.WithoutCancel(r.Context()), scoped, &CachedResponse{
				StatusCode: capture.statusCode,
				Headers:    w.Header().Clone(),
				Body:       capture.body.Bytes(),
			})
		})
	}
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

func shouldCacheResponse(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
