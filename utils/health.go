package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Mongo     bool      `json:"mongo"`
	Redis     []bool    `json:"redis"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Healthy reports whether every dependency answered the last check.
func (h HealthStatus) Healthy() bool {
	if !h.Mongo {
		return false
	}
	for _, ok := range h.Redis {
		if !ok {
			return false
		}
	}
	return true
}

var (
	currentHealth HealthStatus
	mu            sync.RWMutex
)

// GetHealthStatus returns latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	mu.RLock()
	defer mu.RUnlock()
	return currentHealth
}

func setHealthStatus(h HealthStatus) {
	mu.Lock()
	currentHealth = h
	mu.Unlock()
}

// StartHealthMonitor checks dependencies immediately and then every interval
// until ctx is done.
func StartHealthMonitor(ctx context.Context, interval time.Duration, redisClients []*redis.Client, mongoClient *mongo.Client) {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		var redisHealth []bool
		for _, client := range redisClients {
			redisHealth = append(redisHealth, client != nil && client.Ping(pingCtx).Err() == nil)
		}
		mongoHealthy := mongoClient != nil && mongoClient.Ping(pingCtx, nil) == nil

		status := HealthStatus{Mongo: mongoHealthy, Redis: redisHealth, CheckedAt: time.Now()}
		if !status.Healthy() {
			GetLogger().Warn("Dependency health check failed", zap.Bool("mongo", mongoHealthy), zap.Bools("redis", redisHealth))
		}
		setHealthStatus(status)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		check()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}
