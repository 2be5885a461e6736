package internal

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected before the limit", i)
		}
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("request over the limit allowed")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	if !limiter.Allow("a") {
		t.Fatal("first key rejected")
	}
	if !limiter.Allow("b") {
		t.Fatal("second key affected by the first key's hits")
	}
	if limiter.Allow("a") {
		t.Fatal("first key allowed past its limit")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	limiter := NewRateLimiter(1, 30*time.Millisecond)
	if !limiter.Allow("a") {
		t.Fatal("first request rejected")
	}
	if limiter.Allow("a") {
		t.Fatal("second request inside the window allowed")
	}
	time.Sleep(50 * time.Millisecond)
	if !limiter.Allow("a") {
		t.Fatal("request after the window expired was rejected")
	}
}
