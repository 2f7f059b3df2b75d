package storage

import (
	"context"
	"testing"
	"time"

	"spamwarden/internal/antispam"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestSaveAndLoadSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings := antispam.DefaultSettings()
	settings.FloodMessages = 7
	settings.FloodAction = antispam.ActionBan
	settings.WhitelistedRoles = []string{"r1", "r2"}

	if err := store.Save(ctx, "g1", settings); err != nil {
		t.Fatalf("save: %v", err)
	}

	// second save replaces the document
	settings.FloodMessages = 5
	if err := store.Save(ctx, "g1", settings); err != nil {
		t.Fatalf("update: %v", err)
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	got, ok := loaded["g1"]
	if !ok {
		t.Fatalf("expected settings for g1")
	}
	if got.FloodMessages != 5 {
		t.Fatalf("expected 5 flood messages, got %d", got.FloodMessages)
	}
	if got.FloodAction != antispam.ActionBan {
		t.Fatalf("expected ban action, got %s", got.FloodAction)
	}
	if len(got.WhitelistedRoles) != 2 || got.WhitelistedRoles[0] != "r1" {
		t.Fatalf("unexpected whitelist: %v", got.WhitelistedRoles)
	}
}

func TestLoadAllSkipsBrokenDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "good", antispam.DefaultSettings()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, doc, updated_at) VALUES ('bad', '{not json', 0)
	`); err != nil {
		t.Fatalf("insert broken row: %v", err)
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if _, ok := loaded["good"]; !ok {
		t.Fatalf("expected good guild to survive")
	}
	if _, ok := loaded["bad"]; ok {
		t.Fatalf("broken document must be skipped")
	}
}

func TestAuditLogRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	entries := []AuditLog{
		{GuildID: "g1", UserID: "u1", Level: "warn", Event: "flood", Details: "11/10 messages", CreatedAt: now.Add(-2 * time.Hour)},
		{GuildID: "g1", UserID: "u2", Level: "crit", Event: "raid", Details: "12/10 joins", CreatedAt: now},
		{GuildID: "g2", UserID: "u3", Level: "info", Event: "reset", Details: "", CreatedAt: now},
	}
	for _, entry := range entries {
		if err := store.AddAuditLog(ctx, entry); err != nil {
			t.Fatalf("add audit log: %v", err)
		}
	}

	logs, err := store.ListAuditLogs(ctx, "g1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs for g1, got %d", len(logs))
	}
	if logs[0].Event != "raid" {
		t.Fatalf("expected newest first, got %s", logs[0].Event)
	}

	// cutoff excludes the older entry
	logs, err = store.ListAuditLogs(ctx, "g1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 recent log, got %d", len(logs))
	}
}

func TestCleanupAuditLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := AuditLog{GuildID: "g1", UserID: "u1", Level: "warn", Event: "flood", CreatedAt: time.Now().AddDate(0, 0, -40)}
	fresh := AuditLog{GuildID: "g1", UserID: "u1", Level: "warn", Event: "link", CreatedAt: time.Now()}
	if err := store.AddAuditLog(ctx, old); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.AddAuditLog(ctx, fresh); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.CleanupAuditLogs(ctx, 30); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	logs, err := store.ListAuditLogs(ctx, "g1", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "link" {
		t.Fatalf("expected only the fresh log, got %+v", logs)
	}
}
