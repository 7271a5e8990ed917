package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/lis/internal/audit/domain"
	authdomain "github.com/smallbiznis/lis/internal/auth/domain"
	"github.com/smallbiznis/lis/internal/clock"
	"github.com/smallbiznis/lis/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.Session{}, &authdomain.PasswordResetToken{}, &auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)

	s, err := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(testNow),
		Config: cfg,
	})
	require.NoError(t, err)
	return s, conn
}

func seedSession(t *testing.T, conn *gorm.DB, id int64, expiresAt time.Time, revokedAt *time.Time) {
	t.Helper()
	require.NoError(t, conn.Create(&authdomain.Session{
		ID:               snowflake.ID(id),
		UserID:           1,
		SessionTokenHash: snowflake.ID(id).String(),
		ExpiresAt:        expiresAt,
		RevokedAt:        revokedAt,
		CreatedAt:        testNow.Add(-30 * 24 * time.Hour),
		LastSeenAt:       testNow.Add(-30 * 24 * time.Hour),
	}).Error)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPurgeSessionsKeepsRecentAndActive(t *testing.T) {
	s, conn := newTestScheduler(t, Config{SessionRetention: 24 * time.Hour, BatchSize: 2})

	longAgo := testNow.Add(-10 * 24 * time.Hour)
	seedSession(t, conn, 1, longAgo, nil)
	seedSession(t, conn, 2, longAgo, nil)
	seedSession(t, conn, 3, longAgo, nil)
	seedSession(t, conn, 4, testNow.Add(-time.Hour), nil)
	seedSession(t, conn, 5, testNow.Add(time.Hour), &longAgo)
	seedSession(t, conn, 6, testNow.Add(24*time.Hour), nil)

	purged, err := s.PurgeSessionsJob(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, purged)

	var remaining []int64
	require.NoError(t, conn.Model(&authdomain.Session{}).Order("id").Pluck("id", &remaining).Error)
	assert.Equal(t, []int64{4, 6}, remaining)
}

func TestPurgeResetTokens(t *testing.T) {
	s, conn := newTestScheduler(t, Config{SessionRetention: 24 * time.Hour})

	longAgo := testNow.Add(-3 * 24 * time.Hour)
	tokens := []authdomain.PasswordResetToken{
		{ID: 1, UserID: 1, TokenHash: "a", ExpiresAt: longAgo, CreatedAt: longAgo},
		{ID: 2, UserID: 1, TokenHash: "b", ExpiresAt: testNow.Add(time.Hour), UsedAt: &longAgo, CreatedAt: longAgo},
		{ID: 3, UserID: 1, TokenHash: "c", ExpiresAt: testNow.Add(time.Hour), CreatedAt: testNow},
	}
	require.NoError(t, conn.Create(&tokens).Error)

	purged, err := s.PurgeResetTokensJob(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	var count int64
	require.NoError(t, conn.Model(&authdomain.PasswordResetToken{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPurgeAuditLogsRespectsRetention(t *testing.T) {
	disabled, conn := newTestScheduler(t, Config{})
	require.NoError(t, conn.Create(&auditdomain.AuditLog{
		ID: 1, ActorType: "user", Action: "product.create", TargetType: "product", CreatedAt: testNow.Add(-400 * 24 * time.Hour),
	}).Error)

	purged, err := disabled.PurgeAuditLogsJob(context.Background())
	require.NoError(t, err)
	assert.Zero(t, purged)

	enabled := *disabled
	enabled.cfg.AuditRetention = 365 * 24 * time.Hour
	purged, err = enabled.PurgeAuditLogsJob(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	s, conn := newTestScheduler(t, Config{EnabledJobs: []string{JobPurgeResetTokens}})
	seedSession(t, conn, 1, testNow.Add(-30*24*time.Hour), nil)

	require.NoError(t, s.RunOnce(context.Background()))

	var count int64
	require.NoError(t, conn.Model(&authdomain.Session{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.False(t, s.isJobEnabled(JobPurgeSessions))
	assert.True(t, s.isJobEnabled("PURGE_RESET_TOKENS"))
}

func TestRunJobSwallowsTimeout(t *testing.T) {
	s, _ := newTestScheduler(t, Config{})

	err := s.runJob(context.Background(), "slow", 5*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)
}

func TestRunJobWrapsErrors(t *testing.T) {
	s, _ := newTestScheduler(t, Config{})
	boom := errors.New("boom")

	err := s.runJob(context.Background(), "broken", time.Second, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
}
