package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHelper(t *testing.T, prefix string) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheHelper(client, prefix), mr
}

type cachedQuiz struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func TestCacheHelper_GetSet(t *testing.T) {
	helper, mr := newTestHelper(t, "quiz:")
	ctx := context.Background()

	t.Run("round-trips structs through json", func(t *testing.T) {
		in := cachedQuiz{ID: 1, Title: "Algebra"}
		if err := helper.Set(ctx, "1", in, time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}

		var out cachedQuiz
		if err := helper.Get(ctx, "1", &out); err != nil {
			t.Fatalf("get: %v", err)
		}
		if out != in {
			t.Errorf("got %+v, want %+v", out, in)
		}
	})

	t.Run("prefixes keys", func(t *testing.T) {
		if err := helper.SetString(ctx, "2", "value", time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}
		if !mr.Exists("quiz:2") {
			t.Error("key not stored under the quiz: prefix")
		}
	})

	t.Run("reports missing keys", func(t *testing.T) {
		var out cachedQuiz
		if err := helper.Get(ctx, "missing", &out); !errors.Is(err, ErrCacheNotFound) {
			t.Errorf("err = %v, want ErrCacheNotFound", err)
		}
	})

	t.Run("keys expire", func(t *testing.T) {
		if err := helper.SetString(ctx, "ttl", "value", time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}
		mr.FastForward(2 * time.Minute)
		if _, err := helper.GetString(ctx, "ttl"); !errors.Is(err, ErrCacheNotFound) {
			t.Errorf("err = %v, want ErrCacheNotFound after expiry", err)
		}
	})
}

func TestCacheHelper_Delete(t *testing.T) {
	helper, mr := newTestHelper(t, "quiz:")
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := helper.SetString(ctx, key, "value", time.Minute); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	if err := helper.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("quiz:a") || mr.Exists("quiz:b") {
		t.Error("deleted keys still present")
	}
	if !mr.Exists("quiz:c") {
		t.Error("untouched key removed")
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, mr := newTestHelper(t, "quiz:")
	ctx := context.Background()

	for _, key := range []string{"course:1:list", "course:1:stats", "course:2:list"} {
		if err := helper.SetString(ctx, key, "value", time.Minute); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "course:1:*"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:course:1:list") || mr.Exists("quiz:course:1:stats") {
		t.Error("matching keys survived invalidation")
	}
	if !mr.Exists("quiz:course:2:list") {
		t.Error("non-matching key removed")
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	t.Run("fetches once then serves from cache", func(t *testing.T) {
		helper, _ := newTestHelper(t, "quiz:")
		ctx := context.Background()

		calls := 0
		fetch := func() (interface{}, error) {
			calls++
			return cachedQuiz{ID: 3, Title: "Geometry"}, nil
		}

		var first cachedQuiz
		if err := helper.CacheOrExecute(ctx, "3", &first, time.Minute, fetch); err != nil {
			t.Fatalf("first call: %v", err)
		}
		if calls != 1 {
			t.Fatalf("calls = %d, want 1", calls)
		}

		// The write-back is asynchronous
		deadline := time.Now().Add(time.Second)
		for {
			var probe cachedQuiz
			if err := helper.Get(ctx, "3", &probe); err == nil {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("cached value never appeared")
			}
			time.Sleep(5 * time.Millisecond)
		}

		var second cachedQuiz
		if err := helper.CacheOrExecute(ctx, "3", &second, time.Minute, fetch); err != nil {
			t.Fatalf("second call: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d after cache hit, want 1", calls)
		}
		if second.Title != "Geometry" {
			t.Errorf("title = %q", second.Title)
		}
	})

	t.Run("propagates fetch errors", func(t *testing.T) {
		helper, _ := newTestHelper(t, "quiz:")

		fetchErr := errors.New("db down")
		var out cachedQuiz
		err := helper.CacheOrExecute(context.Background(), "4", &out, time.Minute, func() (interface{}, error) {
			return nil, fetchErr
		})
		if !errors.Is(err, fetchErr) {
			t.Errorf("err = %v, want fetch error", err)
		}
	})
}

func TestCacheHelper_NilClient(t *testing.T) {
	helper := NewCacheHelper(nil, "quiz:")
	ctx := context.Background()

	var out cachedQuiz
	if err := helper.Get(ctx, "1", &out); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get err = %v, want ErrCacheNotAvailable", err)
	}
	if err := helper.Set(ctx, "1", cachedQuiz{}, time.Minute); err != nil {
		t.Errorf("Set should degrade gracefully, got %v", err)
	}
	if err := helper.Delete(ctx, "1"); err != nil {
		t.Errorf("Delete should degrade gracefully, got %v", err)
	}

	// Fetch still runs without a cache behind it
	var fetched cachedQuiz
	err := helper.CacheOrExecute(ctx, "1", &fetched, time.Minute, func() (interface{}, error) {
		return cachedQuiz{ID: 9, Title: "History"}, nil
	})
	if err != nil {
		t.Fatalf("cache-or-execute: %v", err)
	}
	if fetched.ID != 9 {
		t.Errorf("fetched = %+v", fetched)
	}
}
