package services_test

import (
	"context"
	"testing"

	"edgarfeed/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithDay(ctx, "20240102")
	ctx = services.WithFile(ctx, "/feeds/20240102.nc/a.nc")
	ctx = services.WithAccession(ctx, "0000000000-24-000001")
	ctx = services.WithSlot(ctx, 3)
	ctx = services.WithRequestID(ctx, "req-123")

	if day, ok := services.DayFromContext(ctx); !ok || day != "20240102" {
		t.Fatalf("unexpected day: %v %v", day, ok)
	}
	if file, ok := services.FileFromContext(ctx); !ok || file != "/feeds/20240102.nc/a.nc" {
		t.Fatalf("unexpected file: %v %v", file, ok)
	}
	if acc, ok := services.AccessionFromContext(ctx); !ok || acc != "0000000000-24-000001" {
		t.Fatalf("unexpected accession: %v %v", acc, ok)
	}
	if slot, ok := services.SlotFromContext(ctx); !ok || slot != 3 {
		t.Fatalf("unexpected slot: %v %v", slot, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := services.WithAccession(context.Background(), "")
	if _, ok := services.AccessionFromContext(ctx); ok {
		t.Fatal("expected no accession value")
	}
}
