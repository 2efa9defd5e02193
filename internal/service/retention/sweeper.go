package retention

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/judgment-gateway/internal/logger"
	"github.com/jmehdipour/judgment-gateway/internal/metrics"
	"github.com/jmehdipour/judgment-gateway/internal/repository"
)

// Sweeper deletes judgments that were reported long enough ago. Records that
// were never reported are kept regardless of age.
type Sweeper struct {
	store repository.JudgmentsRepository
	loc   *time.Location
	now   func() time.Time
	log   *zap.Logger
}

func NewSweeper(store repository.JudgmentsRepository, loc *time.Location, log *zap.Logger) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	return &Sweeper{store: store, loc: loc, now: time.Now, log: logger.OrNop(log)}
}

// Cutoff is local midnight today minus minAgeDays. Whole calendar days are
// counted, so a record reported exactly minAgeDays ago survives.
func (s *Sweeper) Cutoff(minAgeDays int) time.Time {
	now := s.now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return midnight.AddDate(0, 0, -minAgeDays)
}

// Sweep removes records with reported_to_rtl before Cutoff(minAgeDays) and
// returns how many were deleted.
func (s *Sweeper) Sweep(ctx context.Context, minAgeDays int) (int64, error) {
	if minAgeDays <= 0 {
		return 0, fmt.Errorf("retention: minimum age must be positive, got %d", minAgeDays)
	}

	start := time.Now()
	cutoff := s.Cutoff(minAgeDays)

	n, err := s.store.DeleteReportedBefore(ctx, cutoff)
	if n > 0 {
		metrics.RetentionDeletedTotal.Add(float64(n))
	}
	if err != nil {
		s.log.Error("retention sweep failed", zap.Time("cutoff", cutoff), zap.Int64("deleted", n), zap.Error(err))
		return n, fmt.Errorf("delete reported before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	s.log.Info("retention sweep completed",
		zap.Int("min_age_days", minAgeDays),
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", n),
		zap.Duration("took", time.Since(start)),
	)
	return n, nil
}
