package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/lmercier/modbot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

// PostgresStorage persists guild configs in Postgres. Field-level upserts
// rely on ON CONFLICT so two moderator commands racing on the same guild
// never lose updates.
type PostgresStorage struct {
	db       *sql.DB
	defaults models.GuildDefaults
}

func NewPostgresStorage(config DatabaseConfig, defaults models.GuildDefaults) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db, defaults: defaults}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	query := `
		SELECT mod_role_id, mod_channel_id
		FROM guild_configs
		WHERE guild_id = $1`

	cfg := &models.GuildConfig{
		GuildID:      guildID,
		ModRoleID:    s.defaults.ModRoleID,
		ModChannelID: s.defaults.ModChannelID,
	}

	var roleID, channelID sql.NullString
	err := s.db.QueryRowContext(ctx, query, guildID).Scan(&roleID, &channelID)
	if err == sql.ErrNoRows {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying guild config: %v", err)
	}

	if roleID.Valid && roleID.String != "" {
		cfg.ModRoleID = roleID.String
	}
	if channelID.Valid && channelID.String != "" {
		cfg.ModChannelID = channelID.String
	}
	return cfg, nil
}

func (s *PostgresStorage) SetModRole(ctx context.Context, guildID, roleID string) error {
	query := `
		INSERT INTO guild_configs (guild_id, mod_role_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (guild_id) DO UPDATE SET
			mod_role_id = EXCLUDED.mod_role_id,
			updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, guildID, roleID); err != nil {
		return fmt.Errorf("error setting mod role: %v", err)
	}
	return nil
}

func (s *PostgresStorage) SetModChannel(ctx context.Context, guildID, channelID string) error {
	query := `
		INSERT INTO guild_configs (guild_id, mod_channel_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (guild_id) DO UPDATE SET
			mod_channel_id = EXCLUDED.mod_channel_id,
			updated_at = now()`

	if _, err := s.db.ExecContext(ctx, query, guildID, channelID); err != nil {
		return fmt.Errorf("error setting mod channel: %v", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
