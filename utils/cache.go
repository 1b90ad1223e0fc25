package utils

import (
	"context"
	"time"

	"bloomify-insights/config"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

var (
	// CacheClient carries generation counters and dashboard pub/sub.
	CacheClient *redis.Client
	// QueueClient enqueues background recompute tasks.
	QueueClient *asynq.Client
)

// InitCache connects the Redis client used for generations and pub/sub.
func InitCache() error {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := CacheClient.Ping(ctx).Err(); err != nil {
		GetLogger().Error("Failed to connect to Redis (Cache)", zap.Error(err))
		return err
	}
	return nil
}

// GetCacheClient returns the cache client, connecting on first use.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// QueueRedisOpt is the asynq connection for the task queue database.
func QueueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// GetQueueClient returns the task queue client.
func GetQueueClient() *asynq.Client {
	if QueueClient == nil {
		QueueClient = asynq.NewClient(QueueRedisOpt())
	}
	return QueueClient
}
