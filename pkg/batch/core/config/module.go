package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Chunkflow.System.Logging
}

// NewBatchConfigProvider extracts *BatchConfig from *Config.
func NewBatchConfigProvider(cfg *Config) *BatchConfig {
	return &cfg.Chunkflow.Batch
}

// Module provides the configuration tree and its commonly used sections.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			func() *OsEnvironmentExpander { return NewOsEnvironmentExpander() },
			fx.As(new(EnvironmentExpander)),
		),
		NewConfigProvider,
		NewLoggingConfigProvider,
		NewBatchConfigProvider,
	),
)
