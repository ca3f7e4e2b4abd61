package storage

import (
	"context"

	"github.com/lmercier/modbot/internal/models"
)

// Storage keeps one GuildConfig record per guild. GetGuildConfig never
// fails with "not found": a guild that never configured anything gets a
// config built from the process-wide defaults. Implementations must
// serialize concurrent writes to the same guild key.
type Storage interface {
	GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
	SetModRole(ctx context.Context, guildID, roleID string) error
	SetModChannel(ctx context.Context, guildID, channelID string) error
	Close() error
}
