package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// scheduleJob runs job on schedule in loc, each run bounded by timeout.
func scheduleJob(loc *time.Location, schedule string, timeout time.Duration, name string, logger *zap.Logger, job func(ctx context.Context) error) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := job(ctx); err != nil {
			logger.Error("Scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", name, err)
	}
	c.Start()
	logger.Info("Scheduler started", zap.String("job", name), zap.String("schedule", schedule))
	return c, nil
}

func stopCron(c *cron.Cron) {
	if c != nil {
		<-c.Stop().Done()
	}
}
