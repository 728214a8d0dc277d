package handler

import (
	"testing"
	"time"
)

// TestHashRequest verifies that the cache key hash is consistent.
func TestHashRequest(t *testing.T) {
	body := []byte(`{"model":"gpt-4o-mini","messages":[{"role":"user","content":"hello"}]}`)

	hash1 := HashRequest(body)
	hash2 := HashRequest(body)
	if hash1 != hash2 {
		t.Errorf("Expected consistent hash, got %s != %s", hash1, hash2)
	}

	differentBody := []byte(`{"model":"gpt-4o-mini","messages":[{"role":"user","content":"world"}]}`)
	if hash1 == HashRequest(differentBody) {
		t.Error("Expected different hash for different body, got same hash")
	}
}

// TestRelayCacheGetSet tests basic cache get/set operations.
func TestRelayCacheGetSet(t *testing.T) {
	cache := NewRelayCache()
	defer cache.Close()

	key := "test-key-123"
	value := []byte(`{"id":"chatcmpl-123","object":"chat.completion"}`)

	if _, found := cache.Get(key); found {
		t.Error("Expected cache miss for new key")
	}

	cache.Set(key, value)

	cached, found := cache.Get(key)
	if !found {
		t.Fatal("Expected cache hit after set")
	}
	if string(cached) != string(value) {
		t.Errorf("Expected cached value to match, got %s", string(cached))
	}
}

// TestRelayCacheExpiration tests that cache entries expire after TTL.
func TestRelayCacheExpiration(t *testing.T) {
	cache := NewRelayCache(WithCacheTTL(100 * time.Millisecond))
	defer cache.Close()

	key := "expiring-key"
	cache.Set(key, []byte(`{"expires":"soon"}`))

	if _, found := cache.Get(key); !found {
		t.Error("Expected cache hit immediately after set")
	}

	time.Sleep(150 * time.Millisecond)

	if _, found := cache.Get(key); found {
		t.Error("Expected cache miss after TTL expiration")
	}
}

// TestRelayCacheStats tests cache statistics tracking.
func TestRelayCacheStats(t *testing.T) {
	cache := NewRelayCache()
	defer cache.Close()

	hits, misses, size := cache.Stats()
	if hits != 0 || misses != 0 || size != 0 {
		t.Errorf("Expected empty stats, got hits=%d misses=%d size=%d", hits, misses, size)
	}

	cache.Get("nonexistent")
	_, misses, _ = cache.Stats()
	if misses != 1 {
		t.Errorf("Expected 1 miss, got %d", misses)
	}

	cache.Set("key1", []byte("value1"))
	cache.Get("key1")
	hits, _, size = cache.Stats()
	if hits != 1 {
		t.Errorf("Expected 1 hit, got %d", hits)
	}
	if size != 1 {
		t.Errorf("Expected size 1, got %d", size)
	}
}

// TestRelayCacheConcurrency tests thread safety under concurrent access.
func TestRelayCacheConcurrency(t *testing.T) {
	cache := NewRelayCache()
	defer cache.Close()

	done := make(chan bool, 100)

	for i := 0; i < 100; i++ {
		go func(id int) {
			key := "concurrent-key"
			value := []byte(`{"id":"test"}`)

			if id%2 == 0 {
				cache.Set(key, value)
			} else {
				cache.Get(key)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 100; i++ {
		<-done
	}
}
