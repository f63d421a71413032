package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"flightprice/registry"
)

func TestPromoteAssignsAndVerifies(t *testing.T) {
	fake := newFakeRegistry()
	fake.versions["5"] = &registry.ModelVersion{Name: "m", Version: "5", Status: "READY"}

	logger := zap.NewNop().Sugar()
	if err := Promote(context.Background(), fake, "m", "5", "production", logger); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if fake.aliases["production"] != "5" {
		t.Fatalf("alias not assigned: %v", fake.aliases)
	}

	// Re-promoting the same version is a no-op success.
	if err := Promote(context.Background(), fake, "m", "5", "production", logger); err != nil {
		t.Fatalf("re-promotion failed: %v", err)
	}
}

func TestPromoteUnknownVersion(t *testing.T) {
	fake := newFakeRegistry()
	err := Promote(context.Background(), fake, "m", "99", "production", zap.NewNop().Sugar())
	if !errors.Is(err, registry.ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestPromoteVerificationFailure(t *testing.T) {
	fake := newFakeRegistry()
	fake.versions["5"] = &registry.ModelVersion{Name: "m", Version: "5", Status: "READY"}
	fake.aliasReadErr = registry.ErrAliasNotFound

	err := Promote(context.Background(), fake, "m", "5", "production", zap.NewNop().Sugar())
	if !errors.Is(err, ErrPromotionVerification) {
		t.Fatalf("expected ErrPromotionVerification, got %v", err)
	}
}
