package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/lmercier/modbot/internal/models"
)

var testDefaults = models.GuildDefaults{
	ModRoleID:    "default-role",
	ModChannelID: "default-channel",
}

func TestGetGuildConfigDefaults(t *testing.T) {
	store := NewMemoryStorage(testDefaults)

	cfg, err := store.GetGuildConfig(context.Background(), "guild-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GuildID != "guild-1" {
		t.Errorf("expected guild id guild-1, got %s", cfg.GuildID)
	}
	if cfg.ModRoleID != "default-role" {
		t.Errorf("expected default role, got %s", cfg.ModRoleID)
	}
	if cfg.ModChannelID != "default-channel" {
		t.Errorf("expected default channel, got %s", cfg.ModChannelID)
	}
}

func TestSetModRoleFieldIsolation(t *testing.T) {
	store := NewMemoryStorage(testDefaults)
	ctx := context.Background()

	if err := store.SetModRole(ctx, "guild-1", "role-42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := store.GetGuildConfig(ctx, "guild-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ModRoleID != "role-42" {
		t.Errorf("expected role-42, got %s", cfg.ModRoleID)
	}
	// The other field stays on its default.
	if cfg.ModChannelID != "default-channel" {
		t.Errorf("expected default channel untouched, got %s", cfg.ModChannelID)
	}
}

func TestSetModChannelIdempotent(t *testing.T) {
	store := NewMemoryStorage(testDefaults)
	ctx := context.Background()

	if err := store.SetModChannel(ctx, "guild-1", "chan-7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	once, err := store.GetGuildConfig(ctx, "guild-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.SetModChannel(ctx, "guild-1", "chan-7"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := store.GetGuildConfig(ctx, "guild-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *once != *twice {
		t.Errorf("configs differ after repeated set: %+v vs %+v", once, twice)
	}
}

func TestGuildIsolation(t *testing.T) {
	store := NewMemoryStorage(testDefaults)
	ctx := context.Background()

	if err := store.SetModRole(ctx, "guild-1", "role-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other, err := store.GetGuildConfig(ctx, "guild-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other.ModRoleID != "default-role" {
		t.Errorf("guild-2 should keep defaults, got role %s", other.ModRoleID)
	}
}

func TestConcurrentWritesSameGuild(t *testing.T) {
	store := NewMemoryStorage(testDefaults)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			store.SetModRole(ctx, "guild-1", fmt.Sprintf("role-%d", n))
		}(i)
		go func(n int) {
			defer wg.Done()
			store.SetModChannel(ctx, "guild-1", fmt.Sprintf("chan-%d", n))
		}(i)
	}
	wg.Wait()

	cfg, err := store.GetGuildConfig(ctx, "guild-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Some write must have landed for both fields; none may be lost to a race.
	if cfg.ModRoleID == "default-role" {
		t.Error("expected a stored role after concurrent writes")
	}
	if cfg.ModChannelID == "default-channel" {
		t.Error("expected a stored channel after concurrent writes")
	}
}
