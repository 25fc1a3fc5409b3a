package person

import (
	"fmt"
	"unicode/utf8"

	"github.com/tigerroll/chunkflow/pkg/batch/component/step/writer"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

// Names of the job and its steps.
const (
	JobName        = "importUserJob"
	ImportStepName = "step1"
	ExportStepName = "exportPeople"
)

// DefaultInsertSQL is the insert statement of the SQL sink.
const DefaultInsertSQL = "INSERT INTO people (first_name, last_name) VALUES (:firstName, :lastName)"

// Sink types.
const (
	SinkSQL   = "sql"
	SinkMongo = "mongodb"
)

// SinkConfig selects where imported people are written.
type SinkConfig struct {
	// Type is "sql" (default) or "mongodb".
	Type string `yaml:"type"`
	// Datasource is the key in chunkflow.datasources.
	Datasource string `yaml:"datasource"`
	// SQL is the insert statement with :named parameters.
	SQL string `yaml:"sql"`
	// Collection is the MongoDB collection.
	Collection string `yaml:"collection"`
	// Transactional wraps each MongoDB chunk in a session transaction (needs a replica set).
	Transactional bool `yaml:"transactional"`
	// AutoMigrate creates the people table before the job runs.
	AutoMigrate bool `yaml:"auto_migrate"`
}

// ImportConfig configures step1.
type ImportConfig struct {
	// Resource is the input file name; it may contain #{jobParameters['...']} expressions.
	Resource string `yaml:"resource"`
	// Storage is the storage connection the resource is read from. Empty reads the bundled files.
	Storage string `yaml:"storage"`
	// Bucket overrides the storage connection's bucket.
	Bucket      string     `yaml:"bucket"`
	Delimiter   string     `yaml:"delimiter"`
	HeaderLines int        `yaml:"header_lines"`
	FieldNames  []string   `yaml:"field_names"`
	Sink        SinkConfig `yaml:"sink"`
}

// ExportConfig configures the optional exportPeople step.
type ExportConfig struct {
	Enabled bool `yaml:"enabled"`
	// Query selects first_name and last_name from the SQL sink.
	Query       string `yaml:"query"`
	Storage     string `yaml:"storage"`
	Bucket      string `yaml:"bucket"`
	OutputPath  string `yaml:"output_path"`
	Compression string `yaml:"compression"`
}

// ParquetConfig returns the writer configuration of the export.
func (c ExportConfig) ParquetConfig() writer.ParquetWriterConfig {
	return writer.ParquetWriterConfig{
		StorageRef:      c.Storage,
		Bucket:          c.Bucket,
		OutputBaseDir:   c.OutputPath,
		CompressionType: c.Compression,
	}
}

// AppConfig is the chunkflow.application section.
type AppConfig struct {
	Import ImportConfig `yaml:"import"`
	Export ExportConfig `yaml:"export"`
}

// DefaultFieldNames are the columns of the bundled sample file.
var DefaultFieldNames = []string{"firstName", "lastName"}

// DefaultAppConfig returns the settings of the bundled sample import.
// FieldNames stays empty so that a configured list is not merged into the default one.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Import: ImportConfig{
			Resource:  SampleResource,
			Delimiter: ",",
			Sink: SinkConfig{
				Type:        SinkSQL,
				Datasource:  "people",
				SQL:         DefaultInsertSQL,
				Collection:  "people",
				AutoMigrate: true,
			},
		},
		Export: ExportConfig{
			Query:       "SELECT first_name, last_name FROM people ORDER BY person_id",
			Storage:     "local",
			OutputPath:  "exports/people",
			Compression: "SNAPPY",
		},
	}
}

// LoadAppConfig decodes chunkflow.application over DefaultAppConfig.
func LoadAppConfig(cfg *config.Config) (AppConfig, error) {
	appCfg := DefaultAppConfig()
	if err := configbinder.BindProperties(cfg.Chunkflow.Application, &appCfg); err != nil {
		return appCfg, exception.NewBatchError("person", "failed to decode chunkflow.application", err)
	}
	if len(appCfg.Import.FieldNames) == 0 {
		appCfg.Import.FieldNames = append([]string(nil), DefaultFieldNames...)
	}
	if err := appCfg.validate(); err != nil {
		return appCfg, err
	}
	return appCfg, nil
}

func (c AppConfig) validate() error {
	if c.Import.Resource == "" {
		return exception.NewConfigurationError("person", "application.import.resource must not be empty")
	}
	if len(c.Import.FieldNames) == 0 {
		return exception.NewConfigurationError("person", "application.import.field_names must not be empty")
	}
	if utf8.RuneCountInString(c.Import.Delimiter) != 1 {
		return exception.NewConfigurationError("person", fmt.Sprintf("application.import.delimiter must be a single character, got %q", c.Import.Delimiter))
	}
	switch c.Import.Sink.Type {
	case SinkSQL, SinkMongo:
	default:
		return exception.NewConfigurationError("person", fmt.Sprintf("unknown sink type '%s'", c.Import.Sink.Type))
	}
	if c.Import.Sink.Datasource == "" {
		return exception.NewConfigurationError("person", "application.import.sink.datasource must not be empty")
	}
	if c.Export.Enabled && c.Import.Sink.Type != SinkSQL {
		return exception.NewConfigurationError("person", "the export step reads the SQL sink and cannot be enabled for a mongodb sink")
	}
	return nil
}

// DelimiterRune returns the delimiter as a rune.
func (c ImportConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}
