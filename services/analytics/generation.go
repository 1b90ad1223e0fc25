package analytics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// GenerationCounter hands out monotonically increasing generations per key.
type GenerationCounter interface {
	Next(ctx context.Context, key string) (uint64, error)
	Latest(ctx context.Context, key string) (uint64, error)
}

type localCounter struct {
	mu   sync.Mutex
	gens map[string]uint64
}

// NewLocalCounter returns an in-process GenerationCounter.
func NewLocalCounter() GenerationCounter {
	return &localCounter{gens: map[string]uint64{}}
}

func (c *localCounter) Next(_ context.Context, key string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	return c.gens[key], nil
}

func (c *localCounter) Latest(_ context.Context, key string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], nil
}

const generationKeyPrefix = "dashboard:gen:"

// RedisGenerationCounter shares generations between replicas through INCR.
type RedisGenerationCounter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGenerationCounter(client *redis.Client, ttl time.Duration) *RedisGenerationCounter {
	return &RedisGenerationCounter{client: client, ttl: ttl}
}

func (c *RedisGenerationCounter) Next(ctx context.Context, key string) (uint64, error) {
	k := generationKeyPrefix + key
	n, err := c.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if c.ttl > 0 {
		c.client.Expire(ctx, k, c.ttl)
	}
	return uint64(n), nil
}

func (c *RedisGenerationCounter) Latest(ctx context.Context, key string) (uint64, error) {
	val, err := c.client.Get(ctx, generationKeyPrefix+key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(val, 10, 64)
}

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

// Generations tags each dashboard computation with a generation and cancels
// the in-flight computation for a key as soon as a newer one begins.
type Generations struct {
	counter GenerationCounter

	mu       sync.Mutex
	latest   map[string]uint64
	inflight map[string]inflight
}

// NewGenerations returns a tracker; a nil counter keeps generations in process.
func NewGenerations(counter GenerationCounter) *Generations {
	if counter == nil {
		counter = NewLocalCounter()
	}
	return &Generations{
		counter:  counter,
		latest:   map[string]uint64{},
		inflight: map[string]inflight{},
	}
}

// Begin starts a new generation for key. The returned context is cancelled
// when a newer generation begins or when done is called.
func (g *Generations) Begin(ctx context.Context, key string) (context.Context, uint64, func(), error) {
	gen, err := g.counter.Next(ctx, key)
	if err != nil {
		return nil, 0, nil, err
	}
	runCtx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	if gen < g.latest[key] {
		// A newer generation won the race to the lock.
		cancel()
	} else {
		g.latest[key] = gen
		if prev, ok := g.inflight[key]; ok {
			prev.cancel()
		}
		g.inflight[key] = inflight{gen: gen, cancel: cancel}
	}
	g.mu.Unlock()

	done := func() {
		cancel()
		g.mu.Lock()
		if cur, ok := g.inflight[key]; ok && cur.gen == gen {
			delete(g.inflight, key)
		}
		g.mu.Unlock()
	}
	return runCtx, gen, done, nil
}

// Current reports whether gen is still the newest generation for key.
func (g *Generations) Current(ctx context.Context, key string, gen uint64) bool {
	g.mu.Lock()
	local := g.latest[key]
	g.mu.Unlock()
	if gen < local {
		return false
	}
	latest, err := g.counter.Latest(ctx, key)
	if err != nil {
		// Fall back to what this process has seen.
		return gen >= local
	}
	return gen >= latest
}
