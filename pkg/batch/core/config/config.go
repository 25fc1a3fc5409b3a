// Package config provides the configuration tree of chunkflow and its loader.
package config

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go
// through go:embed.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// BatchConfig holds settings of the batch engine.
type BatchConfig struct {
	// JobName is the name of the job launched by default.
	JobName string `yaml:"job_name"`
	// ChunkSize is the commit interval of chunk-oriented steps.
	ChunkSize int `yaml:"chunk_size"`
	// Incrementer selects the JobParametersIncrementer ("run.id" or "timestamp"; empty disables it).
	Incrementer string `yaml:"incrementer"`
	// EnforceUniqueParameters rejects launches that reuse the parameters of a completed execution.
	EnforceUniqueParameters bool `yaml:"enforce_unique_parameters"`
}

// RepositoryConfig selects the JobRepository implementation.
type RepositoryConfig struct {
	// Type is "inmemory" or "sql".
	Type string `yaml:"type"`
	// Datasource is the key in Datasources used by the "sql" repository.
	Datasource string `yaml:"datasource"`
	// AutoMigrate applies the repository schema migrations on startup.
	AutoMigrate bool `yaml:"auto_migrate"`
}

// PrometheusConfig configures the Prometheus metric recorder.
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"`
	// Address is the listen address of the /metrics endpoint. Empty disables the endpoint.
	Address string `yaml:"address"`
}

// OtelConfig configures OpenTelemetry tracing and metrics export.
type OtelConfig struct {
	Enabled bool `yaml:"enabled"`
	// Protocol is "grpc" or "http".
	Protocol string `yaml:"protocol"`
	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `yaml:"endpoint"`
	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`
}

// MetricsConfig groups the observability backends.
type MetricsConfig struct {
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Otel       OtelConfig       `yaml:"otel"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedParameterKeys is a list of keys in JobParameters whose values should be masked in logs.
	MaskedParameterKeys []string `yaml:"masked_parameter_keys"`
}

// ChunkflowConfig holds all configuration under the "chunkflow" top-level key.
type ChunkflowConfig struct {
	System     SystemConfig     `yaml:"system"`
	Batch      BatchConfig      `yaml:"batch"`
	Repository RepositoryConfig `yaml:"repository"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Security   SecurityConfig   `yaml:"security"`
	// Datasources holds database connection settings keyed by logical name.
	// Each entry is decoded into the adapter's DatabaseConfig with configbinder.
	Datasources map[string]interface{} `yaml:"datasources"`
	// Storage holds storage adapter settings keyed by logical name.
	Storage map[string]interface{} `yaml:"storage"`
	// Application holds settings owned by the application built on the engine.
	Application map[string]interface{} `yaml:"application"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Chunkflow ChunkflowConfig `yaml:"chunkflow"`
	// EmbeddedConfig holds the raw configuration the tree was loaded from.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// GlobalConfig is the configuration instance shared across the application.
// It is set by NewConfigProvider.
var GlobalConfig *Config

// GetMaskedParameterKeys retrieves the list of keys to be masked from the global configuration.
func GetMaskedParameterKeys() []string {
	if GlobalConfig == nil {
		return []string{"password", "secret"}
	}
	return GlobalConfig.Chunkflow.Security.MaskedParameterKeys
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Chunkflow: ChunkflowConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Batch: BatchConfig{
				ChunkSize:               10,
				Incrementer:             "run.id",
				EnforceUniqueParameters: true,
			},
			Repository: RepositoryConfig{
				Type:        "inmemory",
				Datasource:  "metadata",
				AutoMigrate: true,
			},
			Metrics: MetricsConfig{
				Otel: OtelConfig{Protocol: "grpc", Endpoint: "localhost:4317", Insecure: true, ServiceName: "chunkflow"},
			},
			Security: SecurityConfig{
				MaskedParameterKeys: []string{"password", "api_key", "secret"},
			},
			Datasources: map[string]interface{}{},
			Storage:     map[string]interface{}{},
			Application: map[string]interface{}{},
		},
	}
}
