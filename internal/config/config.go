// Package config provides configuration management for the bibliographic ingest pipeline.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "INGEST"

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the ingest pipeline.
type Config struct {
	// Server contains the health and metrics HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings for the repository store.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Kafka contains the notification and task queue publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Notification contains report notification settings.
	Notification NotificationConfig `mapstructure:"notification"`
	// Providers contains the external bibliographic API configurations.
	Providers ProvidersConfig `mapstructure:"providers"`
	// Pipeline contains batch sizes, retry policy and report limits.
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	// Institution contains affiliation matching and default work attributes.
	Institution InstitutionConfig `mapstructure:"institution"`
	// Attachment contains full-text retrieval settings.
	Attachment AttachmentConfig `mapstructure:"attachment"`
}

// ServerConfig holds the health/metrics server configuration.
type ServerConfig struct {
	// Enabled starts the server for the duration of a run.
	Enabled bool `mapstructure:"enabled"`
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 9091).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from INGEST_DATABASE_PASSWORD only).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun applies pending migrations before a run starts.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// KafkaConfig holds the publisher settings for fire-and-forget hand-offs.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active. When disabled,
	// notifications and tasks are logged and dropped.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// NotificationTopic receives run report summaries.
	NotificationTopic string `mapstructure:"notification_topic"`
	// TaskTopic receives background tasks (permission propagation, reindex).
	TaskTopic string `mapstructure:"task_topic"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// NotificationConfig holds report notification settings.
type NotificationConfig struct {
	// Recipients are the addresses the report summary is delivered to.
	Recipients []string `mapstructure:"recipients"`
	// SubjectPrefix is prepended to the notification subject.
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// ProvidersConfig holds configuration for every external bibliographic API.
type ProvidersConfig struct {
	// PubMed is the E-utilities API used for id search and PubMed metadata.
	PubMed ProviderConfig `mapstructure:"pubmed"`
	// PMC holds the id converter and open-access service settings.
	PMC PMCConfig `mapstructure:"pmc"`
	// OpenAlex is the scholarly-graph metadata API.
	OpenAlex ProviderConfig `mapstructure:"openalex"`
	// Crossref is the DOI registration agency metadata API.
	Crossref ProviderConfig `mapstructure:"crossref"`
	// DataCite is the DataCite REST API.
	DataCite ProviderConfig `mapstructure:"datacite"`
	// GovInfo is the government document repository API.
	GovInfo ProviderConfig `mapstructure:"govinfo"`
}

// ProviderConfig holds configuration for a single provider API.
type ProviderConfig struct {
	// Enabled controls whether this provider is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g. INGEST_PROVIDERS_PUBMED_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// RequestDelay is the provider-mandated pause between sequential requests.
	RequestDelay time.Duration `mapstructure:"request_delay"`
	// Email identifies the caller to polite-pool APIs (mailto / tool contact).
	Email string `mapstructure:"email"`
	// MaxRetries is the maximum number of HTTP retries on 429/5xx.
	MaxRetries int `mapstructure:"max_retries"`
}

// PMCConfig holds the PMC service settings.
type PMCConfig struct {
	ProviderConfig `mapstructure:",squash"`
	// OABaseURL is the PMC open-access web service endpoint.
	OABaseURL string `mapstructure:"oa_base_url"`
}

// PipelineConfig holds batch and retry settings shared by every stage.
type PipelineConfig struct {
	// PageSize is the number of ids requested per search page.
	PageSize int `mapstructure:"page_size"`
	// ReconcileBatchSize is the number of ids sent per id-conversion call.
	ReconcileBatchSize int `mapstructure:"reconcile_batch_size"`
	// OutcomeFlushThreshold is the number of buffered outcomes that triggers a flush.
	OutcomeFlushThreshold int `mapstructure:"outcome_flush_threshold"`
	// MaxAttempts bounds attempts on transient full-text failures.
	MaxAttempts int `mapstructure:"max_attempts"`
	// RetryBackoff is the fixed delay between attempts.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// ReportRowCap is the number of sample rows per category in the summary.
	ReportRowCap int `mapstructure:"report_row_cap"`
	// AffiliationQuery is the search term restricting retrieval to the institution.
	AffiliationQuery string `mapstructure:"affiliation_query"`
	// GovInfoCollection is the collection code listed by the govinfo source
	// when no input file is given.
	GovInfoCollection string `mapstructure:"govinfo_collection"`
}

// InstitutionConfig holds the institution-specific work defaults.
type InstitutionConfig struct {
	// AffiliationAllowList holds case-insensitive fragments that mark an
	// affiliation as institutional.
	AffiliationAllowList []string `mapstructure:"affiliation_allow_list"`
	// RightsStatement is the rights statement URI applied to every created work.
	RightsStatement string `mapstructure:"rights_statement"`
	// ResourceType is the resource type applied to every created work.
	ResourceType string `mapstructure:"resource_type"`
	// Visibility is the visibility of created works and files.
	Visibility string `mapstructure:"visibility"`
}

// AttachmentConfig holds full-text retrieval settings.
type AttachmentConfig struct {
	// StagingDir is where list-driven sources stage local PDFs.
	StagingDir string `mapstructure:"staging_dir"`
	// MaxFileSize is the maximum size in bytes of a fetched file or archive.
	MaxFileSize int64 `mapstructure:"max_file_size"`
	// HTTPTimeout bounds a single HTTP download.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// FTPTimeout bounds a single FTP dial and transfer.
	FTPTimeout time.Duration `mapstructure:"ftp_timeout"`
	// FilenameTitleLength is the maximum number of title characters in a generated filename.
	FilenameTitleLength int `mapstructure:"filename_title_length"`
	// UserAgent is sent on every download.
	UserAgent string `mapstructure:"user_agent"`
	// AllowPrivateNetworks disables the private address guard (tests and local mirrors only).
	AllowPrivateNetworks bool `mapstructure:"allow_private_networks"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from a .env file, environment variables and config files.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/bibliographic-ingest")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of a .env file without overriding the
// ones already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")

	cfg.Providers.PubMed.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_PUBMED_API_KEY")
	cfg.Providers.PMC.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_PMC_API_KEY")
	cfg.Providers.OpenAlex.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_OPENALEX_API_KEY")
	cfg.Providers.Crossref.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_CROSSREF_API_KEY")
	cfg.Providers.DataCite.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_DATACITE_API_KEY")
	cfg.Providers.GovInfo.APIKey = os.Getenv(EnvPrefix + "_PROVIDERS_GOVINFO_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 9091)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ingest")
	v.SetDefault("database.name", "repository")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "ingest")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.notification_topic", "ingest.notifications")
	v.SetDefault("kafka.task_topic", "ingest.tasks")
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.write_timeout", "10s")

	// Notification defaults
	v.SetDefault("notification.recipients", []string{})
	v.SetDefault("notification.subject_prefix", "[ingest]")

	// Provider defaults - PubMed E-utilities. NCBI allows 3 req/sec without an API key.
	v.SetDefault("providers.pubmed.enabled", true)
	v.SetDefault("providers.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("providers.pubmed.timeout", "30s")
	v.SetDefault("providers.pubmed.rate_limit", 3.0)
	v.SetDefault("providers.pubmed.request_delay", "500ms")
	v.SetDefault("providers.pubmed.max_retries", 3)

	// Provider defaults - PMC id converter and OA service
	v.SetDefault("providers.pmc.enabled", true)
	v.SetDefault("providers.pmc.base_url", "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0")
	v.SetDefault("providers.pmc.oa_base_url", "https://www.ncbi.nlm.nih.gov/pmc/utils/oa/oa.fcgi")
	v.SetDefault("providers.pmc.timeout", "30s")
	v.SetDefault("providers.pmc.rate_limit", 3.0)
	v.SetDefault("providers.pmc.request_delay", "500ms")
	v.SetDefault("providers.pmc.max_retries", 3)

	// Provider defaults - OpenAlex
	v.SetDefault("providers.openalex.enabled", true)
	v.SetDefault("providers.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("providers.openalex.timeout", "30s")
	v.SetDefault("providers.openalex.rate_limit", 10.0)
	v.SetDefault("providers.openalex.max_retries", 3)

	// Provider defaults - Crossref
	v.SetDefault("providers.crossref.enabled", true)
	v.SetDefault("providers.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("providers.crossref.timeout", "30s")
	v.SetDefault("providers.crossref.rate_limit", 5.0)
	v.SetDefault("providers.crossref.max_retries", 3)

	// Provider defaults - DataCite
	v.SetDefault("providers.datacite.enabled", true)
	v.SetDefault("providers.datacite.base_url", "https://api.datacite.org")
	v.SetDefault("providers.datacite.timeout", "30s")
	v.SetDefault("providers.datacite.rate_limit", 5.0)
	v.SetDefault("providers.datacite.max_retries", 3)

	// Provider defaults - GovInfo (requires API key)
	v.SetDefault("providers.govinfo.enabled", false)
	v.SetDefault("providers.govinfo.base_url", "https://api.govinfo.gov")
	v.SetDefault("providers.govinfo.timeout", "30s")
	v.SetDefault("providers.govinfo.rate_limit", 2.0)
	v.SetDefault("providers.govinfo.max_retries", 3)

	// Pipeline defaults
	v.SetDefault("pipeline.page_size", 200)
	v.SetDefault("pipeline.reconcile_batch_size", 200)
	v.SetDefault("pipeline.outcome_flush_threshold", 50)
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.retry_backoff", "5s")
	v.SetDefault("pipeline.report_row_cap", 100)
	v.SetDefault("pipeline.affiliation_query", "")
	v.SetDefault("pipeline.govinfo_collection", "GOVPUB")

	// Institution defaults
	v.SetDefault("institution.affiliation_allow_list", []string{})
	v.SetDefault("institution.rights_statement", "http://rightsstatements.org/vocab/InC/1.0/")
	v.SetDefault("institution.resource_type", "Article")
	v.SetDefault("institution.visibility", domain.VisibilityOpen)

	// Attachment defaults
	v.SetDefault("attachment.staging_dir", "")
	v.SetDefault("attachment.max_file_size", 100*1024*1024)
	v.SetDefault("attachment.http_timeout", "2m")
	v.SetDefault("attachment.ftp_timeout", "2m")
	v.SetDefault("attachment.filename_title_length", 50)
	v.SetDefault("attachment.user_agent", "bibliographic-ingest/1.0")
	v.SetDefault("attachment.allow_private_networks", false)
}

// Validate validates the configuration. Absent required values wrap
// domain.ErrMissingConfig so callers can distinguish them from bad values.
func (c *Config) Validate() error {
	if c.Server.Enabled && (c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535) {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("%w: database host", domain.ErrMissingConfig)
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("%w: database name", domain.ErrMissingConfig)
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: kafka brokers are required when kafka is enabled", domain.ErrMissingConfig)
		}
		if c.Kafka.NotificationTopic == "" || c.Kafka.TaskTopic == "" {
			return fmt.Errorf("%w: kafka notification_topic and task_topic", domain.ErrMissingConfig)
		}
	}

	providers := map[string]ProviderConfig{
		"pubmed":   c.Providers.PubMed,
		"pmc":      c.Providers.PMC.ProviderConfig,
		"openalex": c.Providers.OpenAlex,
		"crossref": c.Providers.Crossref,
		"datacite": c.Providers.DataCite,
		"govinfo":  c.Providers.GovInfo,
	}
	for name, p := range providers {
		if !p.Enabled {
			continue
		}
		if p.BaseURL == "" {
			return fmt.Errorf("%w: providers.%s.base_url", domain.ErrMissingConfig, name)
		}
		if p.RateLimit < 0 {
			return fmt.Errorf("providers.%s.rate_limit must not be negative", name)
		}
	}
	if c.Providers.GovInfo.Enabled && c.Providers.GovInfo.APIKey == "" {
		return fmt.Errorf("%w: provider govinfo requires %s_PROVIDERS_GOVINFO_API_KEY", domain.ErrMissingConfig, EnvPrefix)
	}

	if c.Pipeline.PageSize <= 0 {
		return fmt.Errorf("pipeline page_size must be positive")
	}
	if c.Pipeline.ReconcileBatchSize <= 0 {
		return fmt.Errorf("pipeline reconcile_batch_size must be positive")
	}
	if c.Pipeline.OutcomeFlushThreshold <= 0 {
		return fmt.Errorf("pipeline outcome_flush_threshold must be positive")
	}
	if c.Pipeline.MaxAttempts <= 0 {
		return fmt.Errorf("pipeline max_attempts must be positive")
	}
	if c.Pipeline.ReportRowCap <= 0 {
		return fmt.Errorf("pipeline report_row_cap must be positive")
	}

	if len(c.Institution.AffiliationAllowList) == 0 {
		return fmt.Errorf("%w: institution affiliation_allow_list", domain.ErrMissingConfig)
	}
	if c.Institution.RightsStatement == "" {
		return fmt.Errorf("%w: institution rights_statement", domain.ErrMissingConfig)
	}
	switch c.Institution.Visibility {
	case domain.VisibilityOpen, domain.VisibilityRestricted:
	default:
		return fmt.Errorf("invalid institution visibility: %q", c.Institution.Visibility)
	}

	if c.Attachment.MaxFileSize <= 0 {
		return fmt.Errorf("attachment max_file_size must be positive")
	}
	if c.Attachment.FilenameTitleLength <= 0 {
		return fmt.Errorf("attachment filename_title_length must be positive")
	}

	return nil
}
