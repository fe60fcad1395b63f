package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the mapping pipeline service
type Config struct {
	// Service configuration
	Service ServiceConfig `mapstructure:"service"`

	// Server configuration
	HTTP HTTPConfig `mapstructure:"http"`

	// Storage configurations
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`

	// Messaging configuration
	Kafka KafkaConfig `mapstructure:"kafka"`

	// Service discovery configuration
	Discovery DiscoveryConfig `mapstructure:"discovery"`

	// Saga configuration
	Saga SagaConfig `mapstructure:"saga"`

	// Collaborator service endpoints
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing configuration
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServiceConfig contains general service configuration
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`

	// Graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	// PostgreSQL configuration
	PostgreSQL PostgreSQLConfig `mapstructure:"postgresql"`
}

// PostgreSQLConfig contains PostgreSQL configuration
type PostgreSQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`

	// Connection settings
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// Query settings
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// CacheConfig contains cache configuration
type CacheConfig struct {
	// Redis configuration
	Redis RedisConfig `mapstructure:"redis"`

	// Cache TTL settings
	TTL TTLConfig `mapstructure:"ttl"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`

	// Connection settings
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// TTLConfig contains cache TTL configuration
type TTLConfig struct {
	Default    time.Duration `mapstructure:"default"`
	SagaPolicy time.Duration `mapstructure:"saga_policy"`
}

// KafkaConfig contains Kafka producer configuration
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	LineageTopic string        `mapstructure:"lineage_topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DiscoveryConfig contains Consul service discovery configuration
type DiscoveryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`

	// Self-registration
	ServiceAddress string        `mapstructure:"service_address"`
	CheckInterval  time.Duration `mapstructure:"check_interval"`
	CheckTimeout   time.Duration `mapstructure:"check_timeout"`

	// Coordinator lookup
	CoordinatorService string `mapstructure:"coordinator_service"`
}

// SagaConfig contains the deployment-level saga defaults used when no
// policy source is reachable.
type SagaConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Operations []string      `mapstructure:"operations"`
	PolicyTTL  time.Duration `mapstructure:"policy_ttl"`
}

// CollaboratorsConfig contains collaborator service endpoints
type CollaboratorsConfig struct {
	DataAccess     CollaboratorConfig `mapstructure:"data_access"`
	SchemaService  CollaboratorConfig `mapstructure:"schema_service"`
	SemanticIndex  CollaboratorConfig `mapstructure:"semantic_index"`
	RuleGenerator  CollaboratorConfig `mapstructure:"rule_generator"`
	FieldExtractor CollaboratorConfig `mapstructure:"field_extractor"`
	DataQuality    CollaboratorConfig `mapstructure:"data_quality"`
	Transformer    CollaboratorConfig `mapstructure:"transformer"`
	Reasoner       CollaboratorConfig `mapstructure:"reasoner"`
	Coordinator    CollaboratorConfig `mapstructure:"coordinator"`
	Policy         CollaboratorConfig `mapstructure:"policy"`
}

// CollaboratorConfig contains one collaborator's client configuration
type CollaboratorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Circuit breaker settings
	Breaker BreakerConfig `mapstructure:"breaker"`

	// Client-side rate limiting
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// BreakerConfig contains circuit breaker configuration
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MinRequests uint32        `mapstructure:"min_requests"`
	FailureRate float64       `mapstructure:"failure_rate"`
}

// RateLimitConfig contains client-side rate limit configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second"`
	BurstSize         int  `mapstructure:"burst_size"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Structured bool   `mapstructure:"structured"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig contains OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// LoadConfig loads configuration from various sources
func LoadConfig() (*Config, error) {
	// Set default config file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/mapping-pipeline")

	// Set environment variable prefix
	viper.SetEnvPrefix("MAPPING_PIPELINE")
	viper.AutomaticEnv()

	// Set default values
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults and environment variables
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	overrideWithEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Service defaults
	viper.SetDefault("service.name", "mapping-pipeline")
	viper.SetDefault("service.version", "1.0.0")
	viper.SetDefault("service.environment", "development")
	viper.SetDefault("service.debug", false)
	viper.SetDefault("service.shutdown_timeout", "30s")

	// HTTP defaults
	viper.SetDefault("http.host", "0.0.0.0")
	viper.SetDefault("http.port", "8080")
	viper.SetDefault("http.read_timeout", "30s")
	viper.SetDefault("http.write_timeout", "120s")
	viper.SetDefault("http.idle_timeout", "120s")

	// Database defaults
	viper.SetDefault("database.postgresql.host", "localhost")
	viper.SetDefault("database.postgresql.port", 5432)
	viper.SetDefault("database.postgresql.database", "mapping_pipeline")
	viper.SetDefault("database.postgresql.username", "postgres")
	viper.SetDefault("database.postgresql.ssl_mode", "disable")
	viper.SetDefault("database.postgresql.max_open_conns", 25)
	viper.SetDefault("database.postgresql.max_idle_conns", 10)
	viper.SetDefault("database.postgresql.conn_max_lifetime", "1h")
	viper.SetDefault("database.postgresql.query_timeout", "30s")

	// Cache defaults
	viper.SetDefault("cache.redis.host", "localhost")
	viper.SetDefault("cache.redis.port", "6379")
	viper.SetDefault("cache.redis.database", 0)
	viper.SetDefault("cache.redis.pool_size", 10)
	viper.SetDefault("cache.redis.min_idle_conns", 5)
	viper.SetDefault("cache.redis.dial_timeout", "5s")
	viper.SetDefault("cache.redis.read_timeout", "3s")
	viper.SetDefault("cache.redis.write_timeout", "3s")

	// TTL defaults
	viper.SetDefault("cache.ttl.default", "1h")
	viper.SetDefault("cache.ttl.saga_policy", "5m")

	// Kafka defaults
	viper.SetDefault("kafka.enabled", true)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.lineage_topic", "data.lineage")
	viper.SetDefault("kafka.batch_timeout", "100ms")
	viper.SetDefault("kafka.write_timeout", "10s")

	// Discovery defaults
	viper.SetDefault("discovery.enabled", true)
	viper.SetDefault("discovery.address", "localhost:8500")
	viper.SetDefault("discovery.service_address", "localhost")
	viper.SetDefault("discovery.check_interval", "10s")
	viper.SetDefault("discovery.check_timeout", "5s")
	viper.SetDefault("discovery.coordinator_service", "saga-coordinator")

	// Saga defaults
	viper.SetDefault("saga.enabled", false)
	viper.SetDefault("saga.operations", []string{})
	viper.SetDefault("saga.policy_ttl", "5m")

	// Collaborator defaults
	for _, name := range []string{
		"data_access", "schema_service", "semantic_index", "rule_generator",
		"field_extractor", "data_quality", "transformer", "reasoner",
		"coordinator", "policy",
	} {
		viper.SetDefault("collaborators."+name+".timeout", "30s")
		viper.SetDefault("collaborators."+name+".breaker.enabled", true)
		viper.SetDefault("collaborators."+name+".breaker.max_requests", 3)
		viper.SetDefault("collaborators."+name+".breaker.interval", "60s")
		viper.SetDefault("collaborators."+name+".breaker.timeout", "30s")
		viper.SetDefault("collaborators."+name+".breaker.min_requests", 5)
		viper.SetDefault("collaborators."+name+".breaker.failure_rate", 0.6)
		viper.SetDefault("collaborators."+name+".rate_limit.enabled", true)
		viper.SetDefault("collaborators."+name+".rate_limit.requests_per_second", 50)
		viper.SetDefault("collaborators."+name+".rate_limit.burst_size", 100)
	}
	viper.SetDefault("collaborators.data_access.base_url", "http://localhost:8081")
	viper.SetDefault("collaborators.schema_service.base_url", "http://localhost:8082")
	viper.SetDefault("collaborators.semantic_index.base_url", "http://localhost:8083")
	viper.SetDefault("collaborators.rule_generator.base_url", "http://localhost:8084")
	viper.SetDefault("collaborators.field_extractor.base_url", "http://localhost:8085")
	viper.SetDefault("collaborators.data_quality.base_url", "http://localhost:8086")
	viper.SetDefault("collaborators.transformer.base_url", "http://localhost:8087")
	viper.SetDefault("collaborators.reasoner.base_url", "http://localhost:8088")
	viper.SetDefault("collaborators.coordinator.base_url", "http://localhost:8089")
	viper.SetDefault("collaborators.policy.base_url", "http://localhost:8090")

	// Transformation can take a while on large files
	viper.SetDefault("collaborators.transformer.timeout", "120s")
	viper.SetDefault("collaborators.field_extractor.timeout", "120s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.structured", true)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.sampling_rate", 0.1)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.host", "0.0.0.0")
	viper.SetDefault("metrics.port", "2112")
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.namespace", "mapping_pipeline")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv() {
	// Database credentials
	if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
		viper.Set("database.postgresql.password", val)
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		viper.Set("cache.redis.password", val)
	}

	// Service configuration
	if val := os.Getenv("SERVICE_PORT"); val != "" {
		viper.Set("http.port", val)
	}
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		viper.Set("kafka.brokers", []string{val})
	}
	if val := os.Getenv("CONSUL_ADDRESS"); val != "" {
		viper.Set("discovery.address", val)
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	// Validate required fields
	if config.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}

	// Validate ports
	if _, err := strconv.Atoi(config.HTTP.Port); err != nil {
		return fmt.Errorf("invalid HTTP port: %s", config.HTTP.Port)
	}

	// Validate database configuration
	if config.Database.PostgreSQL.Host == "" {
		return fmt.Errorf("PostgreSQL host is required")
	}

	// Validate saga configuration
	if config.Saga.PolicyTTL <= 0 {
		return fmt.Errorf("saga policy_ttl must be greater than 0")
	}

	return nil
}

// GetDSN returns the PostgreSQL DSN string
func (c *PostgreSQLConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// GetRedisAddr returns the Redis address string
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
