package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

const defaultWishlistRetention = 90 * 24 * time.Hour

type wishlistPruner interface {
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type wishlistRetentionJob struct {
	logg      *logger.Logger
	repo      wishlistPruner
	retention time.Duration
	now       func() time.Time
}

// NewWishlistRetentionJob drops wishlist entries older than retention.
func NewWishlistRetentionJob(logg *logger.Logger, repo wishlistPruner, retention time.Duration) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if retention <= 0 {
		retention = defaultWishlistRetention
	}
	return &wishlistRetentionJob{logg: logg, repo: repo, retention: retention, now: time.Now}, nil
}

func (j *wishlistRetentionJob) Name() string { return "wishlist-retention" }

func (j *wishlistRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteCreatedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("wishlist retention: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_deleted", deleted), "wishlist retention cleanup complete")
	return nil
}
