package sqldb

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"

	"video_notifier/internal/domain"
)

// storeSuite is shared by the sqlite and the postgres runs.
type storeSuite struct {
	suite.Suite
	ctx context.Context
	db  *sqlx.DB

	configs     *ConfigStore
	schedules   *ScheduleStore
	checkpoints *CheckpointStore
	tm          *TransactionManager
}

func (s *storeSuite) SetupTest() {
	s.ctx = context.Background()
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM guild_configs")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM guild_schedules")

	s.configs = NewConfigStore(s.db)
	s.schedules = NewScheduleStore(s.db)
	s.checkpoints = NewCheckpointStore(s.db)
	s.tm = NewTransactionManager(s.db)
}

func (s *storeSuite) TestConfigStore_GetMissing() {
	cfg, err := s.configs.Get(s.ctx, 42)
	s.NoError(err)
	s.Nil(cfg)
}

func (s *storeSuite) TestConfigStore_UpsertMergesUnsetFields() {
	err := s.configs.Upsert(s.ctx, &domain.GuildConfig{GuildID: 1, SourceChannelID: lo.ToPtr("UC123")})
	s.Require().NoError(err)

	err = s.configs.Upsert(s.ctx, &domain.GuildConfig{GuildID: 1, DestinationID: lo.ToPtr("987")})
	s.Require().NoError(err)

	cfg, err := s.configs.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().NotNil(cfg)
	s.Equal("UC123", *cfg.SourceChannelID)
	s.Equal("987", *cfg.DestinationID)
	s.Nil(cfg.LastVideoID)
	s.True(cfg.Ready())

	err = s.configs.Upsert(s.ctx, &domain.GuildConfig{GuildID: 1, SourceChannelID: lo.ToPtr("UC456")})
	s.Require().NoError(err)

	cfg, err = s.configs.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("UC456", *cfg.SourceChannelID)
	s.Equal("987", *cfg.DestinationID)
}

func (s *storeSuite) TestConfigStore_Delete() {
	s.Require().NoError(s.configs.Upsert(s.ctx, &domain.GuildConfig{GuildID: 1, SourceChannelID: lo.ToPtr("UC1")}))

	removed, err := s.configs.Delete(s.ctx, 1)
	s.NoError(err)
	s.True(removed)

	removed, err = s.configs.Delete(s.ctx, 1)
	s.NoError(err)
	s.False(removed)
}

func (s *storeSuite) TestScheduleStore_UpsertKeepsLastCheck() {
	schedule := &domain.Schedule{GuildID: 7, CheckTime: "09:00", Timezone: "America/Chicago"}
	s.Require().NoError(s.schedules.Upsert(s.ctx, schedule))

	got, err := s.schedules.Get(s.ctx, 7)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal("09:00", got.CheckTime)
	s.True(got.LastCheck.Equal(domain.Epoch))

	at := time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)
	claimed, err := s.checkpoints.AdvanceCheck(s.ctx, 7, at, at)
	s.Require().NoError(err)
	s.Require().True(claimed)

	s.Require().NoError(s.schedules.Upsert(s.ctx, &domain.Schedule{GuildID: 7, CheckTime: "18:30", Timezone: "Europe/Berlin"}))

	got, err = s.schedules.Get(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal("18:30", got.CheckTime)
	s.Equal("Europe/Berlin", got.Timezone)
	s.True(got.LastCheck.Equal(at))
}

func (s *storeSuite) TestScheduleStore_ListAndDelete() {
	for _, id := range []int64{3, 1, 2} {
		s.Require().NoError(s.schedules.Upsert(s.ctx, &domain.Schedule{GuildID: id, CheckTime: "09:00", Timezone: "UTC"}))
	}

	list, err := s.schedules.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]int64{1, 2, 3}, lo.Map(list, func(sc domain.Schedule, _ int) int64 { return sc.GuildID }))

	removed, err := s.schedules.Delete(s.ctx, 2)
	s.NoError(err)
	s.True(removed)

	list, err = s.schedules.List(s.ctx)
	s.Require().NoError(err)
	s.Len(list, 2)

	missing, err := s.schedules.Get(s.ctx, 2)
	s.NoError(err)
	s.Nil(missing)
}

func (s *storeSuite) TestCheckpointStore_ReadDefaults() {
	cp, err := s.checkpoints.Read(s.ctx, 99)
	s.Require().NoError(err)
	s.Equal(int64(99), cp.GuildID)
	s.True(cp.LastCheck.Equal(domain.Epoch))
	s.Empty(cp.LastVideoID)

	s.Require().NoError(s.configs.Upsert(s.ctx, &domain.GuildConfig{GuildID: 99, SourceChannelID: lo.ToPtr("UC1")}))
	cp, err = s.checkpoints.Read(s.ctx, 99)
	s.Require().NoError(err)
	s.Empty(cp.LastVideoID)
}

func (s *storeSuite) TestCheckpointStore_AdvanceCheckClaimsSlotOnce() {
	s.Require().NoError(s.schedules.Upsert(s.ctx, &domain.Schedule{GuildID: 5, CheckTime: "09:00", Timezone: "UTC"}))
	slot := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	claimed, err := s.checkpoints.AdvanceCheck(s.ctx, 5, slot, slot.Add(time.Second))
	s.Require().NoError(err)
	s.True(claimed)

	claimed, err = s.checkpoints.AdvanceCheck(s.ctx, 5, slot, slot.Add(2*time.Second))
	s.Require().NoError(err)
	s.False(claimed, "slot already claimed")

	cp, err := s.checkpoints.Read(s.ctx, 5)
	s.Require().NoError(err)
	s.True(cp.LastCheck.Equal(slot.Add(time.Second)), "check instant must not move for a claimed slot")

	next := slot.Add(24 * time.Hour)
	claimed, err = s.checkpoints.AdvanceCheck(s.ctx, 5, next, next)
	s.Require().NoError(err)
	s.True(claimed)
}

func (s *storeSuite) TestCheckpointStore_AdvanceCheckRejectsEarlyInstant() {
	slot := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	_, err := s.checkpoints.AdvanceCheck(s.ctx, 5, slot, slot.Add(-time.Minute))
	s.Error(err)
}

func (s *storeSuite) TestCheckpointStore_DeletedGuildIsNoop() {
	slot := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	claimed, err := s.checkpoints.AdvanceCheck(s.ctx, 404, slot, slot)
	s.NoError(err)
	s.False(claimed)

	recorded, err := s.checkpoints.SetLastVideoID(s.ctx, 404, "", "vid")
	s.NoError(err)
	s.False(recorded)

	cfg, err := s.configs.Get(s.ctx, 404)
	s.NoError(err)
	s.Nil(cfg)
}

func (s *storeSuite) TestCheckpointStore_SetLastVideoID() {
	s.Require().NoError(s.configs.Upsert(s.ctx, &domain.GuildConfig{GuildID: 8, SourceChannelID: lo.ToPtr("UC8")}))
	s.Require().NoError(s.configs.Upsert(s.ctx, &domain.GuildConfig{GuildID: 9, SourceChannelID: lo.ToPtr("UC9")}))

	recorded, err := s.checkpoints.SetLastVideoID(s.ctx, 8, "", "42")
	s.Require().NoError(err)
	s.True(recorded)

	cp, err := s.checkpoints.Read(s.ctx, 8)
	s.Require().NoError(err)
	s.Equal("42", cp.LastVideoID)

	other, err := s.checkpoints.Read(s.ctx, 9)
	s.Require().NoError(err)
	s.Empty(other.LastVideoID, "state must not leak across guilds")
}

func (s *storeSuite) TestCheckpointStore_SetLastVideoIDComparesPrevious() {
	s.Require().NoError(s.configs.Upsert(s.ctx, &domain.GuildConfig{GuildID: 10, SourceChannelID: lo.ToPtr("UC10")}))

	recorded, err := s.checkpoints.SetLastVideoID(s.ctx, 10, "", "42")
	s.Require().NoError(err)
	s.Require().True(recorded)

	// A second writer that also read the empty id loses.
	recorded, err = s.checkpoints.SetLastVideoID(s.ctx, 10, "", "42")
	s.Require().NoError(err)
	s.False(recorded)

	recorded, err = s.checkpoints.SetLastVideoID(s.ctx, 10, "41", "43")
	s.Require().NoError(err)
	s.False(recorded)

	recorded, err = s.checkpoints.SetLastVideoID(s.ctx, 10, "42", "43")
	s.Require().NoError(err)
	s.True(recorded)

	cp, err := s.checkpoints.Read(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal("43", cp.LastVideoID)
}

func (s *storeSuite) TestTransaction_Commit() {
	err := s.tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := s.configs.Upsert(ctx, &domain.GuildConfig{GuildID: 11, SourceChannelID: lo.ToPtr("UC11")}); err != nil {
			return err
		}
		return s.schedules.Upsert(ctx, &domain.Schedule{GuildID: 11, CheckTime: "10:00", Timezone: "UTC"})
	})
	s.Require().NoError(err)

	cfg, err := s.configs.Get(s.ctx, 11)
	s.NoError(err)
	s.NotNil(cfg)
}

func (s *storeSuite) TestTransaction_Rollback() {
	s.Require().NoError(s.configs.Upsert(s.ctx, &domain.GuildConfig{GuildID: 12, SourceChannelID: lo.ToPtr("UC12")}))

	errBoom := errors.New("boom")
	err := s.tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := s.configs.Delete(ctx, 12); err != nil {
			return err
		}
		return errBoom
	})
	s.ErrorIs(err, errBoom)

	cfg, err := s.configs.Get(s.ctx, 12)
	s.NoError(err)
	s.NotNil(cfg, "delete must be rolled back")
}
