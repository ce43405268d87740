package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxReplayBodySize = 1 << 20
	replayKeyPrefix   = "settlements:replay:"
	replayTTL         = 24 * time.Hour
)

type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// IdempotencyReplay caches successful responses in Redis keyed by the
// Idempotency-Key header and replays them on repeat requests. It sits in
// front of the durable idempotency index: a cache miss still hits the store's
// own key lookup, so an evicted entry only costs a round trip, never a
// duplicate settlement.
func IdempotencyReplay(client *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || client == nil {
				next.ServeHTTP(w, r)
				return
			}

			redisKey := replayKeyPrefix + key
			if cached, err := lookupCached(r.Context(), client, redisKey); err == nil && cached != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(cached.Status)
				w.Write([]byte(cached.Body))
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 200 && rec.statusCode < 500 && !rec.bodyTruncated {
				entry, err := json.Marshal(cachedResponse{Status: rec.statusCode, Body: rec.body.String()})
				if err == nil {
					// Best-effort write; the durable index catches misses.
					client.Set(r.Context(), redisKey, entry, replayTTL)
				}
			}
		})
	}
}

func lookupCached(ctx context.Context, client *redis.Client, key string) (*cachedResponse, error) {
	raw, err := client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var cached cachedResponse
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxReplayBodySize {
			r.bodyTruncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
