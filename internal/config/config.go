package config

import (
	"fmt"
	"time"

	"github.com/utafrali/catalogseed/internal/locale"
	pkgconfig "github.com/utafrali/catalogseed/pkg/config"
	"github.com/utafrali/catalogseed/pkg/database"
	"github.com/utafrali/catalogseed/pkg/tracing"
	"github.com/utafrali/catalogseed/pkg/validator"
)

// Config holds all configuration for the seeder.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development" validate:"oneof=development test staging production"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// PostgreSQL
	PostgresHost            string `env:"POSTGRES_HOST" envDefault:"localhost" validate:"required"`
	PostgresPort            int    `env:"POSTGRES_PORT" envDefault:"5432" validate:"min=1,max=65535"`
	PostgresUser            string `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPass            string `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB              string `env:"CATALOG_DB_NAME" envDefault:"catalog_db" validate:"required"`
	PostgresSSL             string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns              int32  `env:"DB_MAX_CONNS" envDefault:"8" validate:"gte=1"`
	DBMinConns              int32  `env:"DB_MIN_CONNS" envDefault:"1" validate:"gte=0,ltefield=DBMaxConns"`
	DBMaxConnLifetimeMinute int    `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60" validate:"gte=1"`
	DBMaxConnIdleTimeMinute int    `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30" validate:"gte=1"`
	SlowQueryMS             int    `env:"LOG_SLOW_QUERY_MS" envDefault:"200" validate:"gte=0"`

	// Generation
	Locales          string        `env:"SEED_LOCALES" envDefault:"lt,en"`
	FallbackLocale   string        `env:"SEED_FALLBACK_LOCALE" envDefault:"en" validate:"required"`
	RandomSeed       uint64        `env:"SEED_RANDOM_SEED" envDefault:"0"`
	ChunkSize        int           `env:"SEED_CHUNK_SIZE" envDefault:"500" validate:"gte=1"`
	Workers          int           `env:"SEED_WORKERS" envDefault:"1" validate:"gte=1,lte=64"`
	Timeout          time.Duration `env:"SEED_TIMEOUT" envDefault:"30m" validate:"gt=0"`
	BrandCount       int           `env:"SEED_BRAND_COUNT" envDefault:"10" validate:"gte=0"`
	ProductsPerBrand int           `env:"SEED_PRODUCTS_PER_BRAND" envDefault:"100" validate:"gte=0"`

	CategoriesMin int `env:"SEED_CATEGORIES_MIN" envDefault:"1" validate:"gte=0,ltefield=CategoriesMax"`
	CategoriesMax int `env:"SEED_CATEGORIES_MAX" envDefault:"3" validate:"gte=0"`
	AttributesMin int `env:"SEED_ATTRIBUTES_MIN" envDefault:"1" validate:"gte=0,ltefield=AttributesMax"`
	AttributesMax int `env:"SEED_ATTRIBUTES_MAX" envDefault:"4" validate:"gte=0"`
	ImagesMin     int `env:"SEED_IMAGES_MIN" envDefault:"1" validate:"gte=0,ltefield=ImagesMax"`
	ImagesMax     int `env:"SEED_IMAGES_MAX" envDefault:"4" validate:"gte=0"`
	VariantsMin   int `env:"SEED_VARIANTS_MIN" envDefault:"0" validate:"gte=0,ltefield=VariantsMax"`
	VariantsMax   int `env:"SEED_VARIANTS_MAX" envDefault:"3" validate:"gte=0"`

	PriceMin      float64 `env:"SEED_PRICE_MIN" envDefault:"5.00" validate:"gt=0,ltefield=PriceMax"`
	PriceMax      float64 `env:"SEED_PRICE_MAX" envDefault:"2500.00" validate:"gt=0"`
	FeaturedRatio float64 `env:"SEED_FEATURED_RATIO" envDefault:"0.10" validate:"gte=0,lte=1"`
	SaleRatio     float64 `env:"SEED_SALE_RATIO" envDefault:"0.20" validate:"gte=0,lte=1"`
	SaleDiscount  float64 `env:"SEED_SALE_DISCOUNT" envDefault:"0.15" validate:"gte=0,lt=1"`

	// Asset pool
	PoolDir        string `env:"SEED_POOL_DIR" envDefault:"storage/pool" validate:"required"`
	PoolSize       int    `env:"SEED_POOL_SIZE" envDefault:"50" validate:"gte=0"`
	PoolExt        string `env:"SEED_POOL_EXT" envDefault:"png" validate:"required,alphanum"`
	PoolWidth      int    `env:"SEED_POOL_WIDTH" envDefault:"800" validate:"gte=16"`
	PoolHeight     int    `env:"SEED_POOL_HEIGHT" envDefault:"800" validate:"gte=16"`
	PoolCleanup    bool   `env:"SEED_POOL_CLEANUP" envDefault:"false"`
	ImageGenerator string `env:"SEED_IMAGE_GENERATOR" envDefault:"local" validate:"oneof=local remote"`
	ImageRemoteURL string `env:"SEED_IMAGE_REMOTE_URL" validate:"required_if=ImageGenerator remote"`
	// ImageRemoteRPS caps requests per second to the remote generator; 0
	// means unlimited.
	ImageRemoteRPS float64 `env:"SEED_IMAGE_REMOTE_RPS" envDefault:"0" validate:"gte=0"`

	// Redis
	RedisEnabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379" validate:"min=1,max=65535"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	LockTTL       time.Duration `env:"SEED_LOCK_TTL" envDefault:"5m" validate:"gt=0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	EventsTopic  string   `env:"SEED_EVENTS_TOPIC" envDefault:"ecommerce.catalog.seeded" validate:"required"`

	// Search
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" validate:"omitempty,url"`
	ElasticsearchIndex string `env:"SEED_SEARCH_INDEX" envDefault:"catalog_products" validate:"required"`

	// Observability
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0" validate:"gte=0,lte=1"`
	PushgatewayURL string  `env:"METRICS_PUSHGATEWAY_URL" validate:"omitempty,url"`
	ServiceVersion string  `env:"SERVICE_VERSION" envDefault:"0.1.0"`
}

// Bounds is an inclusive [Min, Max] range.
type Bounds struct {
	Min int
	Max int
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load seeder config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints. It is run again after CLI flags are
// applied.
func (c *Config) Validate() error {
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("invalid seeder config: %w", err)
	}
	for _, broker := range c.KafkaBrokers {
		if err := validator.Var(broker, "hostname_port"); err != nil {
			return fmt.Errorf("invalid seeder config: KAFKA_BROKERS entry %q: %w", broker, err)
		}
	}
	return nil
}

// LocaleSet returns the resolved locale list.
func (c *Config) LocaleSet() locale.Set {
	return locale.Resolve(c.Locales)
}

// CategoryBounds returns the categories-per-product range.
func (c *Config) CategoryBounds() Bounds { return Bounds{c.CategoriesMin, c.CategoriesMax} }

// AttributeBounds returns the attribute-values-per-product range.
func (c *Config) AttributeBounds() Bounds { return Bounds{c.AttributesMin, c.AttributesMax} }

// ImageBounds returns the images-per-product range.
func (c *Config) ImageBounds() Bounds { return Bounds{c.ImagesMin, c.ImagesMax} }

// VariantBounds returns the variants-per-product range.
func (c *Config) VariantBounds() Bounds { return Bounds{c.VariantsMin, c.VariantsMax} }

// PostgresConfig returns the connection settings for the catalog database.
// Unset fields keep database.DefaultPostgresConfig values.
func (c *Config) PostgresConfig() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	overlay(&pg.Host, c.PostgresHost)
	overlay(&pg.Port, c.PostgresPort)
	overlay(&pg.User, c.PostgresUser)
	overlay(&pg.Password, c.PostgresPass)
	overlay(&pg.DBName, c.PostgresDB)
	overlay(&pg.SSLMode, c.PostgresSSL)
	overlay(&pg.MaxConns, c.DBMaxConns)
	pg.MinConns = c.DBMinConns
	overlay(&pg.MaxConnLifetime, time.Duration(c.DBMaxConnLifetimeMinute)*time.Minute)
	overlay(&pg.MaxConnIdleTime, time.Duration(c.DBMaxConnIdleTimeMinute)*time.Minute)
	return pg
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

// RedisConfig returns the Redis connection settings.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// TracingConfig returns the OpenTelemetry settings.
func (c *Config) TracingConfig(serviceName string) tracing.Config {
	return tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: c.ServiceVersion,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTLPEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}
