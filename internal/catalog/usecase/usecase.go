package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/fulfillment-service/internal/catalog"
	"github.com/opsdesk/fulfillment-service/internal/oms"
	"github.com/opsdesk/fulfillment-service/pkg/cache"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	productCacheTTL = 5 * time.Minute
	stockLockTTL    = 30 * time.Second
)

// locker serializes stock writes across processes. *cache.RedisClient
// satisfies it.
type locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type catalogUseCase struct {
	repo   catalog.Repository
	oms    oms.Client
	cache  *cache.RedisClient
	locker locker
	debug  bool
	logger logger.Logger
}

func NewCatalogUseCase(repo catalog.Repository, omsClient oms.Client, redis *cache.RedisClient, debug bool, log logger.Logger) catalog.UseCase {
	uc := &catalogUseCase{
		repo:   repo,
		oms:    omsClient,
		cache:  redis,
		debug:  debug,
		logger: log,
	}
	if redis != nil {
		uc.locker = redis
	}
	return uc
}

func cacheKey(sku string) string {
	return fmt.Sprintf("catalog:product:%s", sku)
}

func stockLockKey(sku string) string {
	return fmt.Sprintf("catalog:stock-lock:%s", sku)
}

func (uc *catalogUseCase) GetProduct(ctx context.Context, sku string) (*catalog.ProductFacts, error) {
	if uc.cache != nil {
		val, err := uc.cache.Client.Get(ctx, cacheKey(sku)).Result()
		if err == nil {
			var facts catalog.ProductFacts
			if err := json.Unmarshal([]byte(val), &facts); err == nil {
				return &facts, nil
			}
		}
	}

	facts, err := uc.repo.GetProduct(ctx, sku)
	if err != nil {
		return nil, err
	}
	if facts == nil {
		return nil, nil
	}

	if uc.cache != nil {
		if data, err := json.Marshal(facts); err == nil {
			if err := uc.cache.Client.Set(ctx, cacheKey(sku), data, productCacheTTL).Err(); err != nil {
				uc.logger.Warn("failed to cache product facts",
					zap.String("sku", sku), zap.Error(err))
			}
		}
	}
	return facts, nil
}

func (uc *catalogUseCase) UpdateStockLevel(ctx context.Context, sku string, delta int) error {
	if uc.debug {
		uc.logger.Warn("debug mode, not updating stock level",
			zap.String("sku", sku), zap.Int("delta", delta))
		return nil
	}

	// The read-modify-write against the OMS must not interleave with another
	// writer for the same SKU.
	if uc.locker != nil {
		key, token := stockLockKey(sku), uuid.New().String()
		ok, err := uc.locker.AcquireLock(ctx, key, token, stockLockTTL)
		if err != nil {
			return errors.Wrapf(err, "lock stock for %s", sku)
		}
		if !ok {
			return errors.Errorf("stock update for %s already in progress", sku)
		}
		defer func() {
			if err := uc.locker.ReleaseLock(ctx, key, token); err != nil {
				uc.logger.Warn("failed to release stock lock",
					zap.String("sku", sku), zap.Error(err))
			}
		}()
	}

	level, err := uc.oms.GetStockLevel(ctx, sku)
	if err != nil {
		return errors.Wrapf(err, "get stock level for %s", sku)
	}
	if err := uc.oms.SetStockLevel(ctx, sku, level+delta); err != nil {
		return errors.Wrapf(err, "set stock level for %s", sku)
	}

	if uc.cache != nil {
		if err := uc.cache.Client.Del(ctx, cacheKey(sku)).Err(); err != nil {
			uc.logger.Warn("failed to invalidate product cache",
				zap.String("sku", sku), zap.Error(err))
		}
	}
	uc.logger.Info("stock level updated",
		zap.String("sku", sku), zap.Int("delta", delta), zap.Int("level", level+delta))
	return nil
}
