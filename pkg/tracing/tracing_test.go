package tracing

import (
	"context"
	"testing"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "dutchpay", "")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown returned %v", err)
	}
}

func TestSetup_WithEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "dutchpay", "http://127.0.0.1:4318/v1/traces")
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown returned %v", err)
	}
}
