// Package incrementer provides JobParametersIncrementer implementations.
package incrementer

import (
	"fmt"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// DefaultRunIDKey is the parameter name used by RunIDIncrementer when none is given.
const DefaultRunIDKey = "run.id"

// RunIDIncrementer increments an integer run id so that otherwise identical launches
// produce distinct parameters.
type RunIDIncrementer struct {
	name string
}

// NewRunIDIncrementer creates a RunIDIncrementer for the parameter name. Empty uses DefaultRunIDKey.
func NewRunIDIncrementer(name string) *RunIDIncrementer {
	if name == "" {
		name = DefaultRunIDKey
	}
	return &RunIDIncrementer{name: name}
}

// GetNext copies params and sets the run id to the previous value plus one, or 1 when absent.
func (i *RunIDIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	next := params.Copy()

	current, ok := params.GetInt64(i.name)
	if !ok {
		next.Put(i.name, int64(1))
		logger.Debugf("JobParametersIncrementer: '%s' not found, setting to 1.", i.name)
		return next
	}
	next.Put(i.name, current+1)
	logger.Debugf("JobParametersIncrementer: incrementing '%s' from %d to %d.", i.name, current, current+1)
	return next
}

func (i *RunIDIncrementer) String() string {
	return fmt.Sprintf("RunIDIncrementer[name=%s]", i.name)
}

var _ port.JobParametersIncrementer = (*RunIDIncrementer)(nil)
