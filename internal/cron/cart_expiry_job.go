package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/internal/cart"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
)

const cartSweepBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type expiredCartReader interface {
	FindExpiredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error)
}

// CartExpiryJobParams configure the expired cart sweep.
type CartExpiryJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Reader      expiredCartReader
	RepoFactory func(tx *gorm.DB) cart.Repository
	GracePeriod time.Duration
}

// NewCartExpiryJob builds the job that deletes carts whose expiry passed
// beyond the grace window. The grace period keeps a just-expired cart
// recoverable: checkout extends expiry rather than rejecting, so only carts
// nobody touched for the whole window are swept.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("expired cart reader required")
	}
	if params.GracePeriod < 0 {
		return nil, fmt.Errorf("grace period must not be negative")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = cart.NewRepository
	}
	return &cartExpiryJob{
		logg:        params.Logger,
		db:          params.DB,
		reader:      params.Reader,
		repoFactory: repoFactory,
		grace:       params.GracePeriod,
		now:         time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg        *logger.Logger
	db          txRunner
	reader      expiredCartReader
	repoFactory func(tx *gorm.DB) cart.Repository
	grace       time.Duration
	now         func() time.Time
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

func (j *cartExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	carts, err := j.reader.FindExpiredBefore(ctx, cutoff, cartSweepBatchSize)
	if err != nil {
		return fmt.Errorf("query expired carts: %w", err)
	}

	var errs []error
	swept := 0
	for _, record := range carts {
		if err := j.sweep(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("sweep cart %s: %w", record.ID, err))
			continue
		}
		swept++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"swept": swept, "failed": len(errs)})
	j.logg.Info(logCtx, "cart expiry sweep complete")
	return multierr.Combine(errs...)
}

func (j *cartExpiryJob) sweep(ctx context.Context, record models.Cart) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		current, err := repo.FindByID(ctx, record.ID)
		if err != nil {
			return err
		}
		// A checkout may have refreshed the cart since the scan.
		if !current.IsExpired(j.now().UTC().Add(-j.grace)) {
			return nil
		}
		return repo.Delete(ctx, current.ID)
	})
}
