package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "slotkeeper/pkg/errors"
	httputil "slotkeeper/pkg/http"
	"slotkeeper/pkg/logger"
	"slotkeeper/pkg/sanitizer"
)

type PhoneExtractor func(r *http.Request) string

// PhoneRateLimiter caps guest bookings per phone number in a sliding window.
type PhoneRateLimiter struct {
	mu             sync.Mutex
	requests       map[string][]time.Time
	limit          int
	window         time.Duration
	phoneExtractor PhoneExtractor
	now            func() time.Time
	log            *logger.Logger
	stopCh         chan struct{}
	stopOnce       sync.Once
}

func NewPhoneRateLimiter(limit int, window time.Duration, extractor PhoneExtractor, log *logger.Logger) *PhoneRateLimiter {
	limiter := &PhoneRateLimiter{
		requests:       make(map[string][]time.Time),
		limit:          limit,
		window:         window,
		phoneExtractor: extractor,
		now:            time.Now,
		log:            log,
		stopCh:         make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *PhoneRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := rl.now()
			rl.mu.Lock()
			for phone, timestamps := range rl.requests {
				if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) > rl.window {
					delete(rl.requests, phone)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *PhoneRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *PhoneRateLimiter) Allow(phone string) bool {
	if phone == "" {
		return true
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := rl.requests[phone][:0]
	for _, ts := range rl.requests[phone] {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[phone] = valid
		return false
	}

	rl.requests[phone] = append(valid, now)
	return true
}

func PhoneRateLimit(limiter *PhoneRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			phone := limiter.phoneExtractor(r)

			if !limiter.Allow(phone) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestID(r.Context()),
					"phone", sanitizer.MaskPhone(phone),
					"path", r.URL.Path,
				)
				_ = httputil.WriteError(w, apperrors.RateLimited("Too many booking attempts for this phone number, try again later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GuestPhoneExtractor reads guest.phone from a JSON write body and
// normalizes it with region, so "0555 123 456" and "+996555123456" share a
// bucket. The body is restored for the next handler.
func GuestPhoneExtractor(region string) PhoneExtractor {
	return func(r *http.Request) string {
		if r.Method != http.MethodPost || r.Body == nil || r.ContentLength == 0 {
			return ""
		}

		body, err := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			return ""
		}

		var payload struct {
			Guest *struct {
				Phone string `json:"phone"`
			} `json:"guest"`
		}
		if err := json.Unmarshal(body, &payload); err != nil || payload.Guest == nil {
			return ""
		}
		if normalized := sanitizer.NormalizePhone(payload.Guest.Phone, region); normalized != "" {
			return normalized
		}
		return payload.Guest.Phone
	}
}
