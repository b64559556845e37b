package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/internal/orders"
	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
	"github.com/learnsphere/coursemarket-backend/pkg/logger"
)

const orderSweepBatchSize = 200

type staleOrderReader interface {
	FindStaleDrafts(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// StaleOrderJobParams configure the stale draft order sweep.
type StaleOrderJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Reader      staleOrderReader
	RepoFactory func(tx *gorm.DB) orders.Repository
	TTL         time.Duration
}

// NewStaleOrderJob builds the job that cancels draft orders with no payment
// activity past the TTL. Draft is the only swept state: pending_payment
// means a live attempt is waiting on a human.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = orders.NewRepository
	}
	return &staleOrderJob{
		logg:        params.Logger,
		db:          params.DB,
		reader:      params.Reader,
		repoFactory: repoFactory,
		ttl:         params.TTL,
		now:         time.Now,
	}, nil
}

type staleOrderJob struct {
	logg        *logger.Logger
	db          txRunner
	reader      staleOrderReader
	repoFactory func(tx *gorm.DB) orders.Repository
	ttl         time.Duration
	now         func() time.Time
}

func (j *staleOrderJob) Name() string { return "stale-order" }

func (j *staleOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.reader.FindStaleDrafts(ctx, cutoff, orderSweepBatchSize)
	if err != nil {
		return fmt.Errorf("query stale draft orders: %w", err)
	}

	var errs []error
	cancelled := 0
	for _, order := range stale {
		if err := j.cancel(ctx, order); err != nil {
			errs = append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
			continue
		}
		cancelled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"cancelled": cancelled, "failed": len(errs)})
	j.logg.Info(logCtx, "stale order sweep complete")
	return multierr.Combine(errs...)
}

func (j *staleOrderJob) cancel(ctx context.Context, order models.Order) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		current, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		// A receipt upload may have reopened the order since the scan.
		if current.Status != enums.OrderStatusDraft {
			return nil
		}
		return repo.UpdateOrder(ctx, current.ID, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": j.now().UTC(),
		})
	})
}
