package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyKeyHeader carries the client chosen retry key.
const IdempotencyKeyHeader = "Idempotency-Key"

// StoredResponse is a response captured for replay.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore keeps responses to POST requests keyed by caller and key.
type IdempotencyStore interface {
	Load(ctx context.Context, key string) (StoredResponse, bool, error)
	Save(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// POST requests. Responses with 5xx status are not stored so that retries
// reach the service again.
func Idempotency(store IdempotencyStore, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if store == nil || r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			scoped := idempotencyScope(r, key)
			log := responder.loggerFor(ctx).With("idempotency_key", key)

			stored, found, err := store.Load(ctx, scoped)
			if err != nil {
				log.WarnContext(ctx, "idempotency lookup failed", "error", err)
			}
			if found {
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				log.InfoContext(ctx, "idempotent response replayed", "status", stored.Status)
				return
			}

			rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= http.StatusInternalServerError {
				return
			}
			resp := StoredResponse{Status: rec.status, ContentType: rec.Header().Get("Content-Type"), Body: rec.body.Bytes()}
			if err := store.Save(ctx, scoped, resp, ttl); err != nil {
				log.WarnContext(ctx, "idempotency save failed", "error", err)
			}
		})
	}
}

func idempotencyScope(r *http.Request, key string) string {
	caller := clientAddress(r)
	if principal, ok := PrincipalFromContext(r.Context()); ok {
		caller = principal.MemberID
	}
	return strings.Join([]string{caller, r.Method, r.URL.Path, key}, "|")
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bodyRecorder) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bodyRecorder) Write(p []byte) (int, error) {
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

// MemoryIdempotencyStore is an in-process IdempotencyStore.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryIdempotencyEntry
}

type memoryIdempotencyEntry struct {
	resp      StoredResponse
	expiresAt time.Time
}

// NewMemoryIdempotencyStore constructs an empty store.
func NewMemoryIdempotencyStore(now func() time.Time) *MemoryIdempotencyStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryIdempotencyStore{now: now, entries: make(map[string]memoryIdempotencyEntry)}
}

func (m *MemoryIdempotencyStore) Load(ctx context.Context, key string) (StoredResponse, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return StoredResponse{}, false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return StoredResponse{}, false, nil
	}
	return entry.resp, true, nil
}

func (m *MemoryIdempotencyStore) Save(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = memoryIdempotencyEntry{resp: resp, expiresAt: now.Add(ttl)}
	return nil
}

// RedisIdempotencyStore keeps replayable responses in Redis so that several
// server instances share them.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewRedisIdempotencyStore wraps client. Keys are stored under prefix.
func NewRedisIdempotencyStore(client *redis.Client, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = "reservation:idempotency:"
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

func (s *RedisIdempotencyStore) Load(ctx context.Context, key string) (StoredResponse, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return StoredResponse{}, false, nil
	}
	if err != nil {
		return StoredResponse{}, false, fmt.Errorf("redis get: %w", err)
	}
	var resp StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return StoredResponse{}, false, fmt.Errorf("decode stored response: %w", err)
	}
	return resp, true, nil
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode stored response: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
