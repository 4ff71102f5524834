package cmsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures New.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Engine drivers.
const (
	driverRedis = "redis"
	driverBleve = "bleve"
)

type clientConfig struct {
	driver string

	// redis
	addrs     []string
	username  string
	password  string
	db        int
	keyPrefix string

	// bleve
	dir string

	indexes         []IndexOptions
	resolver        PermissionResolver
	backgroundSlots int

	readinessTimeout time.Duration
	healthTimeout    time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:        defaultKeyPrefix,
		readinessTimeout: defaultReadinessTimeout,
	}
}

// WithRedis searches Redis 8 (or Redis Stack) at addr. More addresses may
// follow for a cluster.
func WithRedis(addr, password string, more ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = append([]string{addr}, more...)
		c.password = password
	})
}

// WithRedisUser sets the ACL user. The password comes from WithRedis.
func WithRedisUser(username string) Option {
	return optionFunc(func(c *clientConfig) { c.username = username })
}

// WithRedisDB selects a logical database.
func WithRedisDB(n int) Option {
	return optionFunc(func(c *clientConfig) { c.db = n })
}

// WithKeyPrefix sets the Redis key prefix of indexed documents.
// Default: "cms:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) { c.keyPrefix = prefix })
}

// WithBleve searches embedded bleve indexes stored under dir. An empty dir
// keeps the indexes in memory.
func WithBleve(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverBleve
		c.dir = dir
	})
}

// WithIndex registers a search index. Its engine index is created if missing.
func WithIndex(o IndexOptions) Option {
	return optionFunc(func(c *clientConfig) { c.indexes = append(c.indexes, o) })
}

// WithPermissionResolver sets who may read what. Without one every document
// is visible. Resolvers that implement Pinger are part of Health.
func WithPermissionResolver(r PermissionResolver) Option {
	return optionFunc(func(c *clientConfig) { c.resolver = r })
}

// WithBackgroundSlots bounds concurrent searches. Zero leaves them unbounded.
func WithBackgroundSlots(n int) Option {
	return optionFunc(func(c *clientConfig) { c.backgroundSlots = n })
}

// WithReadinessTimeout bounds how long New waits for the engine. Default 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		if d > 0 {
			c.readinessTimeout = d
		}
	})
}

// WithHealthTimeout bounds each component ping in Health. Default 2s.
func WithHealthTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) { c.healthTimeout = d })
}

// WithLogger logs SDK calls to l: failures at warn, the rest at debug.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) { c.logger = l })
}

// WithPrometheus registers SDK metrics on reg. Several clients may share one
// registerer.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) { c.metricsReg = reg })
}
