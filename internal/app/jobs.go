package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"example.com/shopcart/internal/service"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

const purgeTimeout = time.Minute

// newScheduler registers the exhausted-product sweeper. The caller starts
// and stops the returned scheduler.
func newScheduler(cfg JobsConfig, catalog service.CatalogService) (*cron.Cron, error) {
	sched := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if cfg.PurgeSchedule == "" {
		return sched, nil
	}
	_, err := sched.AddFunc(cfg.PurgeSchedule, func() { purgeExhausted(catalog) })
	if err != nil {
		return nil, errors.Wrapf(err, "schedule purge %q", cfg.PurgeSchedule)
	}
	return sched, nil
}

func purgeExhausted(catalog service.CatalogService) {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()
	n, err := catalog.PurgeExhausted(ctx)
	if err != nil {
		zap.L().Error("purge exhausted products", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("purge exhausted products", zap.Int("removed", n))
	}
}
