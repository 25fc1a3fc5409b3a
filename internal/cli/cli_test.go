package cli_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/internal/cli"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
)

func TestParseParameters(t *testing.T) {
	params, err := cli.ParseParameters([]string{
		"input.file=people.csv",
		"run.id=7",
		"ratio=0.5",
		"dryRun=true",
		"date=2024-01-31T00:00:00Z",
		"query=a=b",
		"empty=",
	})
	require.NoError(t, err)

	file, _ := params.GetString("input.file")
	assert.Equal(t, "people.csv", file)
	runID, ok := params.GetInt64("run.id")
	assert.True(t, ok)
	assert.Equal(t, int64(7), runID)
	assert.Equal(t, 0.5, params.Get("ratio"))
	dryRun, ok := params.GetBool("dryRun")
	assert.True(t, ok)
	assert.True(t, dryRun)
	date, ok := params.GetTime("date")
	assert.True(t, ok)
	assert.True(t, date.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "a=b", params.Get("query"))
	assert.Equal(t, "", params.Get("empty"))
}

func TestParseParameters_Invalid(t *testing.T) {
	for _, pair := range []string{"noequals", "=value", " =value"} {
		_, err := cli.ParseParameters([]string{pair})
		assert.Error(t, err, pair)
	}
}

func TestPrintExecutions(t *testing.T) {
	params := model.NewJobParameters()
	params.Put("run.id", 1)
	params.Put("password", "hunter2")
	je := model.NewJobExecution("importUserJob", params)
	je.MarkAsStarted()
	se := model.NewStepExecution("s1", je, "step1")
	se.ReadCount, se.WriteCount, se.CommitCount = 5, 5, 1
	je.MarkAsFailed(errors.New("boom"))

	var out bytes.Buffer
	cli.PrintExecutions(&out, []*model.JobExecution{je})

	text := out.String()
	assert.Contains(t, text, "EXECUTION ID")
	assert.Contains(t, text, je.ID)
	assert.Contains(t, text, "FAILED")
	assert.Contains(t, text, "step1")
	assert.Contains(t, text, "read=5 write=5 skip=0")
	assert.NotContains(t, text, "hunter2")
}
