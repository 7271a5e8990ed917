package scheduler

import (
	"context"
	"errors"

	auditdomain "github.com/smallbiznis/lis/internal/audit/domain"
	authdomain "github.com/smallbiznis/lis/internal/auth/domain"
	"github.com/smallbiznis/lis/internal/scheduler/guard"
	"gorm.io/gorm"
)

// PurgeSessionsJob deletes sessions that expired or were revoked before the retention cutoff.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) (int, error) {
	cutoff, err := guard.SessionCutoff(s.clock.Now(), s.cfg.SessionRetention)
	if err != nil {
		return 0, err
	}
	return s.purgeInBatches(ctx, &authdomain.Session{}, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff)
	})
}

// PurgeResetTokensJob deletes reset tokens that were used or expired before the cutoff.
func (s *Scheduler) PurgeResetTokensJob(ctx context.Context) (int, error) {
	cutoff, err := guard.SessionCutoff(s.clock.Now(), s.cfg.SessionRetention)
	if err != nil {
		return 0, err
	}
	return s.purgeInBatches(ctx, &authdomain.PasswordResetToken{}, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("expires_at < ? OR (used_at IS NOT NULL AND used_at < ?)", cutoff, cutoff)
	})
}

// PurgeAuditLogsJob enforces the audit retention window. It is a no-op when retention is unset.
func (s *Scheduler) PurgeAuditLogsJob(ctx context.Context) (int, error) {
	cutoff, err := guard.Cutoff(s.clock.Now(), s.cfg.AuditRetention)
	if errors.Is(err, guard.ErrRetentionDisabled) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.purgeInBatches(ctx, &auditdomain.AuditLog{}, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("created_at < ?", cutoff)
	})
}

// purgeInBatches deletes matching rows BatchSize at a time until a short batch comes back.
func (s *Scheduler) purgeInBatches(ctx context.Context, model any, scope func(*gorm.DB) *gorm.DB) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		// MySQL does not allow LIMIT inside an IN subquery.
		var ids []int64
		err := scope(s.db.WithContext(ctx).Model(model)).
			Order("id").
			Limit(s.cfg.BatchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		result := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(model)
		if result.Error != nil {
			return total, result.Error
		}
		total += int(result.RowsAffected)
		if len(ids) < s.cfg.BatchSize {
			return total, nil
		}
	}
}
