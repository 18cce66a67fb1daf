package services

import (
	"context"
	"time"

	"barbershop-backend/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SubscriptionExpiryService marks ativa subscriptions expirada once their
// next billing date is older than the grace period.
type SubscriptionExpiryService struct {
	repo     repository.Repository
	schedule string
	settings Settings
	now      Clock
	logger   *zap.Logger
	cron     *cron.Cron
}

func NewSubscriptionExpiryService(repo repository.Repository, schedule string, settings Settings, now Clock, logger *zap.Logger) *SubscriptionExpiryService {
	if now == nil {
		now = time.Now
	}
	return &SubscriptionExpiryService{repo: repo, schedule: schedule, settings: settings, now: now, logger: logger}
}

func (s *SubscriptionExpiryService) StartScheduler() error {
	c, err := scheduleJob(s.settings.location(), s.schedule, time.Minute, "subscription-expiry", s.logger,
		func(ctx context.Context) error {
			_, err := s.ExpireOverdue(ctx)
			return err
		})
	if err != nil {
		return err
	}
	s.cron = c
	return nil
}

func (s *SubscriptionExpiryService) Stop() {
	stopCron(s.cron)
}

func (s *SubscriptionExpiryService) ExpireOverdue(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.settings.SubscriptionGrace)
	n, err := s.repo.ExpireSubscriptions(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Subscriptions expired", zap.Int64("count", n), zap.Time("billedBefore", cutoff))
	}
	return n, nil
}
