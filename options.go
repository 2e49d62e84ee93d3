package tripnote

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tripnote/tripnote/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // memory, file, sqlite, valkey, redis, custom
	path     string
	addrs    []string
	password string
	custom   RecordStore

	readinessTimeout time.Duration

	watch         bool
	watchDebounce time.Duration

	refreshInterval time.Duration
	matchThreshold  float64
	minMatchLength  int

	resultCacheSize int
	limits          searchLimits

	enricher      Enricher
	openAI        *openAIConfig
	enrichTimeout time.Duration
	enrichCache   int
	enrichTTL     time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

type openAIConfig struct {
	apiKey            string
	baseURL           string
	model             string
	requestsPerMinute int
}

type searchLimits struct {
	defaultLimit     int
	maxLimit         int
	defaultThreshold float64
}

const driverCustom = "custom"

// WithMemoryStore keeps records in process memory. This is the default.
func WithMemoryStore() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverMemory
	})
}

// WithFileStore keeps one JSON file per collection under dir.
func WithFileStore(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverFile
		c.path = dir
	})
}

// WithSQLite keeps records in a SQLite database file.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverSQLite
		c.path = path
	})
}

// WithValkey keeps records in Valkey hashes. The same connection backs the
// shared enrichment cache.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis keeps records in Redis hashes.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = config.DriverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRecordStore plugs in a custom record backend.
func WithRecordStore(s RecordStore) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverCustom
		c.custom = s
	})
}

// WithWatch rebuilds the index when collection files change on disk.
// Only effective with WithFileStore. A zero debounce uses the default.
func WithWatch(debounce time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.watch = true
		c.watchDebounce = debounce
	})
}

// WithRefreshInterval sets how long an index snapshot stays fresh.
func WithRefreshInterval(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.refreshInterval = d
	})
}

// WithMatchThreshold sets the fuzzy matcher's internal distance cutoff (0..1).
func WithMatchThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.matchThreshold = t
	})
}

// WithResultCache sets the local result cache size. Negative disables it.
func WithResultCache(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.resultCacheSize = size
	})
}

// WithSearchLimits sets the HTTP search defaults: default and maximum limit
// and the default caller-facing score threshold.
func WithSearchLimits(defaultLimit, maxLimit int, defaultThreshold float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.limits = searchLimits{
			defaultLimit:     defaultLimit,
			maxLimit:         maxLimit,
			defaultThreshold: defaultThreshold,
		}
	})
}

// WithEnricher sets a custom enrichment provider.
func WithEnricher(e Enricher) Option {
	return optionFunc(func(c *clientConfig) {
		c.enricher = e
	})
}

// WithOpenAIEnrichment enables enrichment through an OpenAI-compatible
// chat completion API. rpm caps outgoing calls per minute; 0 is unlimited.
func WithOpenAIEnrichment(apiKey, baseURL, model string, rpm int) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAI = &openAIConfig{
			apiKey:            apiKey,
			baseURL:           baseURL,
			model:             model,
			requestsPerMinute: rpm,
		}
	})
}

// WithEnrichmentTimeout bounds one enrichment round trip. Default 5s.
func WithEnrichmentTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.enrichTimeout = d
	})
}

// WithEnrichmentCache caches successful enrichment answers.
func WithEnrichmentCache(size int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.enrichCache = size
		c.enrichTTL = ttl
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithMetrics registers client operation metrics in reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// FromConfig translates a loaded configuration file into options.
func FromConfig(cfg *config.Config) []Option {
	opts := []Option{
		optionFunc(func(c *clientConfig) {
			c.driver = cfg.Store.Driver
			c.path = cfg.Store.Path
			c.addrs = cfg.Store.Addrs
			c.password = cfg.Store.Password
			c.readinessTimeout = time.Duration(cfg.Store.ReadinessTimeout) * time.Second
			c.minMatchLength = cfg.Index.MinMatchLength
		}),
		WithRefreshInterval(cfg.Index.RefreshInterval()),
		WithMatchThreshold(cfg.Index.MatchThreshold),
		WithResultCache(cfg.Search.CacheSize),
		WithSearchLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit, cfg.Search.DefaultThreshold),
	}
	if cfg.Index.Watch {
		opts = append(opts, WithWatch(time.Duration(cfg.Index.WatchDebounceMs)*time.Millisecond))
	}
	if cfg.Enrichment.Enabled {
		e := cfg.Enrichment
		opts = append(opts,
			WithOpenAIEnrichment(e.APIKey, e.BaseURL, e.Model, e.RequestsPerMinute),
			WithEnrichmentTimeout(e.Timeout()),
			WithEnrichmentCache(e.CacheSize, time.Duration(e.CacheTTLSec)*time.Second),
		)
	}
	return opts
}
