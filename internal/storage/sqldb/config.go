package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"video_notifier/internal/domain"
)

type ConfigStore struct {
	db *sqlx.DB
}

func NewConfigStore(db *sqlx.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

// Get returns nil when the guild has no configuration.
func (s *ConfigStore) Get(ctx context.Context, guildID int64) (*domain.GuildConfig, error) {
	exec := GetExecutor(ctx, s.db)
	query := `
		SELECT guild_id, source_channel_id, destination_id, last_video_id
		FROM guild_configs
		WHERE guild_id = ?`

	var cfg domain.GuildConfig
	err := sqlx.GetContext(ctx, exec, &cfg, exec.Rebind(query), guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert creates or updates a guild configuration. Nil fields keep their stored value.
func (s *ConfigStore) Upsert(ctx context.Context, cfg *domain.GuildConfig) error {
	exec := GetExecutor(ctx, s.db)
	query := `
		INSERT INTO guild_configs (guild_id, source_channel_id, destination_id, last_video_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET
			source_channel_id = COALESCE(EXCLUDED.source_channel_id, guild_configs.source_channel_id),
			destination_id = COALESCE(EXCLUDED.destination_id, guild_configs.destination_id),
			last_video_id = COALESCE(EXCLUDED.last_video_id, guild_configs.last_video_id)`

	_, err := exec.ExecContext(ctx, exec.Rebind(query),
		cfg.GuildID,
		cfg.SourceChannelID,
		cfg.DestinationID,
		cfg.LastVideoID,
	)
	return err
}

// Delete reports whether a configuration existed.
func (s *ConfigStore) Delete(ctx context.Context, guildID int64) (bool, error) {
	exec := GetExecutor(ctx, s.db)

	res, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM guild_configs WHERE guild_id = ?`), guildID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
