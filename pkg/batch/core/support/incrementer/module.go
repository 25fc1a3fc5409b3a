package incrementer

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
)

// NewIncrementer returns the incrementer selected by name:
// "run.id" (or "runIdIncrementer"), "timestamp" (or "timestampIncrementer"), or none for "".
func NewIncrementer(name string) (port.JobParametersIncrementer, error) {
	switch name {
	case "":
		return nil, nil
	case DefaultRunIDKey, "runIdIncrementer":
		return NewRunIDIncrementer(DefaultRunIDKey), nil
	case "timestamp", "timestampIncrementer":
		return NewTimestampIncrementer(DefaultTimestampKey), nil
	default:
		return nil, fmt.Errorf("unknown job parameters incrementer: '%s'", name)
	}
}

// NewIncrementerProvider selects the incrementer from batch.incrementer.
func NewIncrementerProvider(cfg *config.BatchConfig) (port.JobParametersIncrementer, error) {
	return NewIncrementer(cfg.Incrementer)
}

// Module provides the configured port.JobParametersIncrementer (possibly nil).
var Module = fx.Options(
	fx.Provide(NewIncrementerProvider),
)
