package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/example/room-reservation/internal/application"
)

func newRedisStore(t *testing.T) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIdempotencyStore(client, "test:idem:"), server
}

func TestRedisIdempotencyStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing key is a miss", func(t *testing.T) {
		store, _ := newRedisStore(t)
		_, found, err := store.Load(ctx, "absent")
		if err != nil {
			t.Fatalf("expected redis.Nil to be swallowed, got %v", err)
		}
		if found {
			t.Fatalf("expected miss")
		}
	})

	t.Run("saved response is loaded under the prefix", func(t *testing.T) {
		store, server := newRedisStore(t)
		want := StoredResponse{Status: http.StatusCreated, ContentType: "application/json", Body: []byte(`{"id":"r1"}`)}
		if err := store.Save(ctx, "s1:abc", want, time.Minute); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
		if !server.Exists("test:idem:s1:abc") {
			t.Fatalf("expected key stored with prefix, have %v", server.Keys())
		}
		if ttl := server.TTL("test:idem:s1:abc"); ttl != time.Minute {
			t.Fatalf("expected ttl of one minute, got %v", ttl)
		}

		got, found, err := store.Load(ctx, "s1:abc")
		if err != nil || !found {
			t.Fatalf("expected hit, got found=%v err=%v", found, err)
		}
		if got.Status != want.Status || got.ContentType != want.ContentType || string(got.Body) != string(want.Body) {
			t.Fatalf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("expired entries are gone", func(t *testing.T) {
		store, server := newRedisStore(t)
		if err := store.Save(ctx, "k", StoredResponse{Status: http.StatusOK}, time.Second); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
		server.FastForward(2 * time.Second)
		if _, found, err := store.Load(ctx, "k"); err != nil || found {
			t.Fatalf("expected expired miss, got found=%v err=%v", found, err)
		}
	})

	t.Run("undecodable value is an error", func(t *testing.T) {
		store, server := newRedisStore(t)
		if err := server.Set("test:idem:bad", "not json"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		if _, _, err := store.Load(ctx, "bad"); err == nil {
			t.Fatalf("expected decode error")
		}
	})

	t.Run("unreachable server is an error", func(t *testing.T) {
		store, server := newRedisStore(t)
		server.Close()
		if _, _, err := store.Load(ctx, "k"); err == nil {
			t.Fatalf("expected error from closed server")
		}
		if err := store.Save(ctx, "k", StoredResponse{Status: http.StatusOK}, time.Minute); err == nil {
			t.Fatalf("expected error from closed server")
		}
	})
}

func TestIdempotencyWithRedisStore(t *testing.T) {
	t.Parallel()

	store, _ := newRedisStore(t)
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"n":1}`))
	}))

	send := func(member string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader("{}"))
		req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{MemberID: member}))
		req.Header.Set(IdempotencyKeyHeader, "same-key")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder
	}

	send("s1")
	replay := send("s1")
	if calls != 1 || replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay from redis, calls=%d", calls)
	}
	send("s2")
	if calls != 2 {
		t.Fatalf("expected keys to be scoped per member, got %d calls", calls)
	}
}
