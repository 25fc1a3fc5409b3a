package person_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/internal/person"
	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

func TestItemProcessor_UpperCasesNames(t *testing.T) {
	tests := []struct {
		in   person.Person
		want person.Person
	}{
		{person.Person{FirstName: "Jill", LastName: "Doe"}, person.Person{FirstName: "JILL", LastName: "DOE"}},
		{person.Person{FirstName: "josé", LastName: "o'neil"}, person.Person{FirstName: "JOSÉ", LastName: "O'NEIL"}},
		{person.Person{FirstName: "", LastName: "Doe"}, person.Person{FirstName: "", LastName: "DOE"}},
	}
	p := person.NewItemProcessor()
	for _, tt := range tests {
		got, err := p.Process(context.Background(), tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestItemProcessor_SkipsBlankRows(t *testing.T) {
	_, err := person.NewItemProcessor().Process(context.Background(), person.Person{FirstName: "  ", LastName: ""})
	assert.ErrorIs(t, err, port.ErrSkipItem)
}

func TestPerson_String(t *testing.T) {
	assert.Equal(t, "firstName: JILL, lastName: DOE", person.Person{FirstName: "JILL", LastName: "DOE"}.String())
}

type stubFinder struct {
	people []person.Person
	err    error
	calls  int
}

func (f *stubFinder) FindAll(ctx context.Context) ([]person.Person, error) {
	f.calls++
	return f.people, f.err
}

func TestCompletionListener(t *testing.T) {
	finder := &stubFinder{people: []person.Person{{FirstName: "JILL", LastName: "DOE"}}}
	l := person.NewCompletionListener(finder)

	je := model.NewJobExecution(person.JobName, model.NewJobParameters())
	l.BeforeJob(context.Background(), je)
	je.MarkAsStarted()
	je.MarkAsFailed(errors.New("boom"))
	l.AfterJob(context.Background(), je)
	assert.Equal(t, 0, finder.calls)

	done := model.NewJobExecution(person.JobName, model.NewJobParameters())
	done.MarkAsStarted()
	done.MarkAsCompleted()
	l.AfterJob(context.Background(), done)
	assert.Equal(t, 1, finder.calls)

	finder.err = errors.New("table missing")
	l.AfterJob(context.Background(), done)
	assert.Equal(t, 2, finder.calls)
}

func TestNewMongoTransactionManager_WarnsWithoutTransactions(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	person.NewMongoTransactionManager(nil, person.SinkConfig{Datasource: "people_mongo", Transactional: true})
	assert.NotContains(t, buf.String(), "[WARN]")

	person.NewMongoTransactionManager(nil, person.SinkConfig{Datasource: "people_mongo"})
	assert.Contains(t, buf.String(), "[WARN] MongoDB sink 'people_mongo' runs without transactions")
}
