package analytics

import (
	"context"
	"testing"
	"time"

	"spamwarden/internal/storage"
)

func TestReportAggregates(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	now := time.Now()
	rows := []storage.AuditLog{
		{GuildID: "g1", UserID: "u1", Level: "WARN", Event: "flood", CreatedAt: now},
		{GuildID: "g1", UserID: "u1", Level: "WARN", Event: "flood", CreatedAt: now},
		{GuildID: "g1", UserID: "u2", Level: "INFO", Event: "duplicate", CreatedAt: now},
		{GuildID: "g2", UserID: "u9", Level: "CRIT", Event: "raid", CreatedAt: now},
	}
	for _, row := range rows {
		if err := store.AddAuditLog(ctx, row); err != nil {
			t.Fatalf("add audit log: %v", err)
		}
	}

	service, err := New(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer service.Close()

	report, err := service.Report(ctx, "g1", 24*time.Hour)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 3 {
		t.Fatalf("expected 3 entries, got %d", report.Total)
	}
	if report.ByDetection["flood"] != 2 {
		t.Fatalf("expected 2 flood entries, got %d", report.ByDetection["flood"])
	}
	if report.ByLevel["INFO"] != 1 {
		t.Fatalf("expected 1 info entry, got %d", report.ByLevel["INFO"])
	}
	if len(report.TopUsers) == 0 || report.TopUsers[0].UserID != "u1" {
		t.Fatalf("expected u1 on top, got %+v", report.TopUsers)
	}
}

func TestReportServedFromCache(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	service, err := New(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer service.Close()

	ctx := context.Background()
	first, err := service.Report(ctx, "g1", time.Hour)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	// ristretto admits asynchronously
	service.cache.Wait()

	if err := store.AddAuditLog(ctx, storage.AuditLog{GuildID: "g1", UserID: "u1", Level: "WARN", Event: "flood", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("add audit log: %v", err)
	}

	second, err := service.Report(ctx, "g1", time.Hour)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if second.Total != first.Total {
		t.Fatalf("expected cached report, got total %d vs %d", second.Total, first.Total)
	}
}
