package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenManager(t *testing.T) {
	m := NewTokenManager("test-secret-key-32-bytes-long!!!", time.Hour)

	t.Run("generate and validate", func(t *testing.T) {
		token, err := m.Generate("session-1")
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		claims, err := m.Validate(token)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if claims.SessionID != "session-1" {
			t.Errorf("SessionID = %q, want session-1", claims.SessionID)
		}
	})

	t.Run("empty session ID", func(t *testing.T) {
		if _, err := m.Generate(""); err == nil {
			t.Error("Expected error for empty session ID")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewTokenManager("another-secret", time.Hour).Generate("session-1")
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		past := NewTokenManager("test-secret-key-32-bytes-long!!!", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.Generate("session-1")
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})
}
