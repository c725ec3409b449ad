package ledger

import (
	"context"

	"github.com/glkeru/loyalty/ledger/internal/config"
	interf "github.com/glkeru/loyalty/ledger/internal/interfaces"
	"go.uber.org/zap"
)

// OpenStorage returns the lot store selected by LEDGER_STORAGE.
func OpenStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (interf.LotStorage, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		return NewPostgresStore(ctx, cfg.DatabaseDSN, logger)
	case config.StorageMongo:
		return NewMongoStore(cfg.MongoURI, cfg.MongoDB)
	}
	logger.Warn("memory storage: ledger is lost on restart and not shared between processes")
	return NewMemoryStore(), nil
}

// OpenCache returns nil when no cache is configured or it is unreachable;
// the service then reads balances straight from storage.
func OpenCache(cfg config.Config, logger *zap.Logger) interf.BalanceCache {
	if cfg.CacheURL == "" {
		return nil
	}
	cache, err := NewCacheService(cfg.CacheURL, cfg.CacheUser, cfg.CachePwd, cfg.CacheTTL)
	if err != nil {
		logger.Error(err.Error())
		return nil
	}
	return cache
}
