package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/aurora-borealis222/url-shortener/pkg/ports"
)

const sweepRetries = 3

// Sweeper runs two independent periodic jobs against the link store:
// soft-deleting links past their fixed expiry, and soft-deleting links
// unused for longer than the retention window. Both jobs issue the same
// transactional batch updates as user-facing endpoints, so they are safe
// to run concurrently with live traffic, and re-running them on already
// deleted links is a no-op.
type Sweeper struct {
	repo          ports.LinkRepository
	logger        *slog.Logger
	expiredEvery  time.Duration
	inactiveEvery time.Duration
	daysToExpire  int
	nowFunc       func() time.Time
}

func NewSweeper(repo ports.LinkRepository, logger *slog.Logger, expiredEvery, inactiveEvery time.Duration, daysToExpire int) *Sweeper {
	return &Sweeper{
		repo:          repo,
		logger:        logger,
		expiredEvery:  expiredEvery,
		inactiveEvery: inactiveEvery,
		daysToExpire:  daysToExpire,
		nowFunc:       time.Now,
	}
}

// Run blocks until ctx is cancelled, driving both sweep jobs on their own
// tickers. Failed runs are retried with exponential backoff up to a bounded
// count; a permanently failed run is logged and the next tick tries again.
func (s *Sweeper) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loop(ctx, "expired_by_date", s.expiredEvery, s.SweepExpired)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, "expired_by_inactivity", s.inactiveEvery, s.SweepInactive)
	}()
	wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context, job string, every time.Duration, sweep func(context.Context) (int64, error)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job, sweep)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context, job string, sweep func(context.Context) (int64, error)) {
	var swept int64
	op := func() error {
		n, err := sweep(ctx)
		if err != nil {
			return err
		}
		swept = n
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), sweepRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		// Not fatal: the next tick retries with a fresh budget.
		s.logger.Error("sweep failed", "job", job, "error", err)
		return
	}
	if swept > 0 {
		s.logger.Info("sweep completed", "job", job, "links_deleted", swept)
	}
}

// SweepExpired soft-deletes all active links whose expiry has passed.
func (s *Sweeper) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.SoftDeleteExpired(ctx, s.nowFunc())
}

// SweepInactive soft-deletes all active links last used before the
// retention window. Links that were never used are left alone.
func (s *Sweeper) SweepInactive(ctx context.Context) (int64, error) {
	cutoff := s.nowFunc().AddDate(0, 0, -s.daysToExpire)
	return s.repo.SoftDeleteInactive(ctx, cutoff)
}
