package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"video_notifier/internal/domain"
)

type CheckpointStore struct {
	db *sqlx.DB
}

func NewCheckpointStore(db *sqlx.DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Read returns the guild's checkpoint. Missing rows yield the epoch and an empty video id.
func (s *CheckpointStore) Read(ctx context.Context, guildID int64) (*domain.Checkpoint, error) {
	exec := GetExecutor(ctx, s.db)
	cp := &domain.Checkpoint{GuildID: guildID, LastCheck: domain.Epoch}

	var lastCheckAt int64
	err := sqlx.GetContext(ctx, exec, &lastCheckAt,
		exec.Rebind(`SELECT last_check_at FROM guild_schedules WHERE guild_id = ?`), guildID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("read last check: %w", err)
	default:
		cp.LastCheck = time.UnixMilli(lastCheckAt).UTC()
	}

	var lastVideoID sql.NullString
	err = sqlx.GetContext(ctx, exec, &lastVideoID,
		exec.Rebind(`SELECT last_video_id FROM guild_configs WHERE guild_id = ?`), guildID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("read last video: %w", err)
	default:
		cp.LastVideoID = lastVideoID.String
	}

	return cp, nil
}

// AdvanceCheck records at as the guild's check instant, but only while the stored
// instant is still before slot. It returns false when another writer already
// claimed the slot or the schedule was deleted.
func (s *CheckpointStore) AdvanceCheck(ctx context.Context, guildID int64, slot, at time.Time) (bool, error) {
	if at.Before(slot) {
		return false, fmt.Errorf("check instant %s precedes slot %s", at.Format(time.RFC3339), slot.Format(time.RFC3339))
	}

	exec := GetExecutor(ctx, s.db)
	query := `
		UPDATE guild_schedules
		SET last_check_at = ?
		WHERE guild_id = ? AND last_check_at < ?`

	res, err := exec.ExecContext(ctx, exec.Rebind(query), at.UnixMilli(), guildID, slot.UnixMilli())
	if err != nil {
		return false, err
	}
	return affected(res)
}

// SetLastVideoID replaces previousID with videoID. It returns false when the stored
// id no longer equals previousID or the guild configuration was removed.
func (s *CheckpointStore) SetLastVideoID(ctx context.Context, guildID int64, previousID, videoID string) (bool, error) {
	exec := GetExecutor(ctx, s.db)
	query := `
		UPDATE guild_configs
		SET last_video_id = ?
		WHERE guild_id = ? AND COALESCE(last_video_id, '') = ?`

	res, err := exec.ExecContext(ctx, exec.Rebind(query), videoID, guildID, previousID)
	if err != nil {
		return false, err
	}
	return affected(res)
}
