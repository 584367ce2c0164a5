package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"video_notifier/internal/domain"
)

type scheduleRow struct {
	GuildID     int64  `db:"guild_id"`
	CheckTime   string `db:"check_time"`
	Timezone    string `db:"timezone"`
	LastCheckAt int64  `db:"last_check_at"`
}

func (r scheduleRow) toDomain() domain.Schedule {
	return domain.Schedule{
		GuildID:   r.GuildID,
		CheckTime: r.CheckTime,
		Timezone:  r.Timezone,
		LastCheck: time.UnixMilli(r.LastCheckAt).UTC(),
	}
}

type ScheduleStore struct {
	db *sqlx.DB
}

func NewScheduleStore(db *sqlx.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// Get returns nil when the guild has no schedule.
func (s *ScheduleStore) Get(ctx context.Context, guildID int64) (*domain.Schedule, error) {
	exec := GetExecutor(ctx, s.db)
	query := `
		SELECT guild_id, check_time, timezone, last_check_at
		FROM guild_schedules
		WHERE guild_id = ?`

	var row scheduleRow
	err := sqlx.GetContext(ctx, exec, &row, exec.Rebind(query), guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	schedule := row.toDomain()
	return &schedule, nil
}

// Upsert replaces check time and timezone. The stored check instant is kept.
func (s *ScheduleStore) Upsert(ctx context.Context, schedule *domain.Schedule) error {
	exec := GetExecutor(ctx, s.db)
	query := `
		INSERT INTO guild_schedules (guild_id, check_time, timezone)
		VALUES (?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET
			check_time = EXCLUDED.check_time,
			timezone = EXCLUDED.timezone`

	_, err := exec.ExecContext(ctx, exec.Rebind(query),
		schedule.GuildID,
		schedule.CheckTime,
		schedule.Timezone,
	)
	return err
}

// Delete reports whether a schedule existed.
func (s *ScheduleStore) Delete(ctx context.Context, guildID int64) (bool, error) {
	exec := GetExecutor(ctx, s.db)

	res, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM guild_schedules WHERE guild_id = ?`), guildID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *ScheduleStore) List(ctx context.Context) ([]domain.Schedule, error) {
	exec := GetExecutor(ctx, s.db)
	query := `
		SELECT guild_id, check_time, timezone, last_check_at
		FROM guild_schedules
		ORDER BY guild_id`

	var rows []scheduleRow
	if err := sqlx.SelectContext(ctx, exec, &rows, query); err != nil {
		return nil, err
	}

	schedules := make([]domain.Schedule, 0, len(rows))
	for _, r := range rows {
		schedules = append(schedules, r.toDomain())
	}
	return schedules, nil
}
