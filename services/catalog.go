package services

import (
	"context"
	"time"

	"barbershop-backend/models"
	"barbershop-backend/repository"
	"barbershop-backend/utils"

	"go.uber.org/zap"
)

const (
	cacheKeyServices      = "catalog:services"
	cacheKeyProfessionals = "catalog:professionals"
)

// CatalogService serves the public service and professional listings
// through a short-lived cache.
type CatalogService struct {
	repo   repository.Repository
	cache  utils.CatalogCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCatalogService(repo repository.Repository, cache utils.CatalogCache, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if cache == nil {
		cache = utils.NopCache{}
	}
	return &CatalogService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func (c *CatalogService) ActiveServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if c.cached(ctx, cacheKeyServices, &services) {
		return services, nil
	}
	services, err := c.repo.ListActiveServices(ctx)
	if err != nil {
		return nil, persistenceError("Erro ao buscar serviços", err)
	}
	c.store(ctx, cacheKeyServices, services)
	return services, nil
}

func (c *CatalogService) ActiveProfessionals(ctx context.Context) ([]models.Professional, error) {
	var professionals []models.Professional
	if c.cached(ctx, cacheKeyProfessionals, &professionals) {
		return professionals, nil
	}
	professionals, err := c.repo.ListActiveProfessionals(ctx)
	if err != nil {
		return nil, persistenceError("Erro ao buscar profissionais", err)
	}
	c.store(ctx, cacheKeyProfessionals, professionals)
	return professionals, nil
}

// Invalidate drops both listings, e.g. after an admin edit.
func (c *CatalogService) Invalidate(ctx context.Context) {
	if err := c.cache.Delete(ctx, cacheKeyServices, cacheKeyProfessionals); err != nil {
		c.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
	}
}

// cache failures degrade to a store read
func (c *CatalogService) cached(ctx context.Context, key string, dst any) bool {
	hit, err := c.cache.GetJSON(ctx, key, dst)
	if err != nil {
		c.logger.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (c *CatalogService) store(ctx context.Context, key string, v any) {
	if c.ttl <= 0 {
		return
	}
	if err := c.cache.SetJSON(ctx, key, v, c.ttl); err != nil {
		c.logger.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
