package storage

import (
	"context"
	"sync"

	"github.com/lmercier/modbot/internal/models"
)

type guildRecord struct {
	modRoleID    string
	modChannelID string
}

// MemoryStorage keeps guild configs in process memory. Useful for tests and
// single-instance deployments without a database.
type MemoryStorage struct {
	mu       sync.RWMutex
	guilds   map[string]*guildRecord
	defaults models.GuildDefaults
}

func NewMemoryStorage(defaults models.GuildDefaults) *MemoryStorage {
	return &MemoryStorage{
		guilds:   make(map[string]*guildRecord),
		defaults: defaults,
	}
}

func (s *MemoryStorage) GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := &models.GuildConfig{
		GuildID:      guildID,
		ModRoleID:    s.defaults.ModRoleID,
		ModChannelID: s.defaults.ModChannelID,
	}
	if record, exists := s.guilds[guildID]; exists {
		if record.modRoleID != "" {
			cfg.ModRoleID = record.modRoleID
		}
		if record.modChannelID != "" {
			cfg.ModChannelID = record.modChannelID
		}
	}
	return cfg, nil
}

func (s *MemoryStorage) SetModRole(ctx context.Context, guildID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.guilds[guildID]
	if !exists {
		record = &guildRecord{}
		s.guilds[guildID] = record
	}
	record.modRoleID = roleID
	return nil
}

func (s *MemoryStorage) SetModChannel(ctx context.Context, guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.guilds[guildID]
	if !exists {
		record = &guildRecord{}
		s.guilds[guildID] = record
	}
	record.modChannelID = channelID
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
