package auth

import (
	"testing"
	"time"
)

func TestLoginRateLimiterWindow(t *testing.T) {
	limiter := NewLoginRateLimiter(3, time.Minute)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		if _, ok := limiter.take("10.0.0.1", now); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	retryAfter, ok := limiter.take("10.0.0.1", now)
	if ok {
		t.Fatal("fourth attempt inside the window must be blocked")
	}
	if retryAfter <= 0 {
		t.Fatalf("retryAfter = %v, want positive", retryAfter)
	}

	// A different IP has its own window.
	if _, ok := limiter.take("10.0.0.2", now); !ok {
		t.Fatal("other ip must not share the window")
	}

	// Once the window has passed, the first IP is allowed again.
	if _, ok := limiter.take("10.0.0.1", now.Add(2*time.Minute)); !ok {
		t.Fatal("attempt after the window must be allowed")
	}
}
