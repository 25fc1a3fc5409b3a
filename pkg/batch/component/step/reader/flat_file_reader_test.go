package reader_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkflow/pkg/batch/component/step/reader"
	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

type person struct {
	FirstName string `name:"firstName"`
	LastName  string `name:"lastName"`
	Age       int    `name:"age"`
}

func files(content string) reader.FSResource {
	return reader.FSResource{FS: fstest.MapFS{"people.csv": {Data: []byte(content)}}}
}

func readAll[T any](t *testing.T, r port.ItemReader[T]) ([]T, error) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.Open(ctx))
	defer r.Close(ctx)

	var items []T
	for {
		item, err := r.Read(ctx)
		if errors.Is(err, port.ErrNoMoreItems) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}

func TestFlatFileReader_MapsRecordsByFieldName(t *testing.T) {
	r, err := reader.NewFlatFileReader[person]("personItemReader", "people.csv",
		files("first,last,age\nJill,Doe,31\nJoe,Doe,29\n"),
		[]string{"firstName", "lastName", "age"},
		reader.NewBeanWrapperFieldSetMapper[person](),
		reader.WithLinesToSkip(1),
	)
	require.NoError(t, err)

	items, err := readAll[person](t, r)
	require.NoError(t, err)
	assert.Equal(t, []person{{"Jill", "Doe", 31}, {"Joe", "Doe", 29}}, items)
	assert.Equal(t, "people.csv", r.Resource())
}

func TestFlatFileReader_Delimiter(t *testing.T) {
	r, err := reader.NewFlatFileReader[person]("personItemReader", "people.csv",
		files("Jill;Doe;1\n"),
		[]string{"firstName", "lastName", "age"},
		reader.NewBeanWrapperFieldSetMapper[person](),
		reader.WithDelimiter(';'),
	)
	require.NoError(t, err)

	items, err := readAll[person](t, r)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Jill", items[0].FirstName)
}

func TestFlatFileReader_WrongColumnCountIsParseError(t *testing.T) {
	r, err := reader.NewFlatFileReader[person]("personItemReader", "people.csv",
		files("Jill,Doe,1\nJoe,Doe\n"),
		[]string{"firstName", "lastName", "age"},
		reader.NewBeanWrapperFieldSetMapper[person](),
	)
	require.NoError(t, err)

	items, err := readAll[person](t, r)
	assert.Len(t, items, 1)
	assert.ErrorIs(t, err, exception.ErrParse)

	var pe *exception.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, int64(2), pe.Line)
	assert.Equal(t, "people.csv", pe.Resource)
}

func TestFlatFileReader_UnconvertibleValueIsParseError(t *testing.T) {
	r, err := reader.NewFlatFileReader[person]("personItemReader", "people.csv",
		files("Jill,Doe,old\n"),
		[]string{"firstName", "lastName", "age"},
		reader.NewBeanWrapperFieldSetMapper[person](),
	)
	require.NoError(t, err)

	_, err = readAll[person](t, r)
	assert.ErrorIs(t, err, exception.ErrParse)
}

// trackedResource records whether the opened resource was closed.
type trackedResource struct {
	content string
	closed  bool
}

func (r *trackedResource) OpenResource(ctx context.Context, name string) (io.ReadCloser, error) {
	return r, nil
}

func (r *trackedResource) Read(p []byte) (int, error) {
	n := copy(p, r.content)
	r.content = r.content[n:]
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *trackedResource) Close() error {
	r.closed = true
	return nil
}

func TestFlatFileReader_MalformedHeaderClosesResource(t *testing.T) {
	res := &trackedResource{content: "first,la\"st\nJill,Doe\n"}
	r, err := reader.NewFlatFileReader[person]("personItemReader", "people.csv", res,
		[]string{"firstName", "lastName"},
		reader.NewBeanWrapperFieldSetMapper[person](),
		reader.WithLinesToSkip(1),
	)
	require.NoError(t, err)

	err = r.Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrParse)
	assert.True(t, res.closed)
	assert.True(t, strings.Contains(err.Error(), "people.csv"))
}

func TestFlatFileReader_MissingResource(t *testing.T) {
	r, err := reader.NewFlatFileReader[person]("personItemReader", "absent.csv",
		files(""),
		[]string{"firstName"},
		reader.NewBeanWrapperFieldSetMapper[person](),
	)
	require.NoError(t, err)
	assert.Error(t, r.Open(context.Background()))
}

type fixedResolver string

func (f fixedResolver) Resolve(ctx context.Context, expression string, je *model.JobExecution, se *model.StepExecution) (string, error) {
	return string(f), nil
}

func TestFlatFileReader_ResolvesResourceExpression(t *testing.T) {
	r, err := reader.NewFlatFileReader[person]("personItemReader", "#{jobParameters['input.file']}",
		files("Jill,Doe,1\n"),
		[]string{"firstName", "lastName", "age"},
		reader.NewBeanWrapperFieldSetMapper[person](),
		reader.WithResourceResolver(fixedResolver("people.csv")),
	)
	require.NoError(t, err)

	items, err := readAll[person](t, r)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "people.csv", r.Resource())
}

func TestNewFlatFileReader_Validation(t *testing.T) {
	mapper := reader.NewBeanWrapperFieldSetMapper[person]()
	_, err := reader.NewFlatFileReader[person]("r", "", files(""), []string{"a"}, mapper)
	assert.ErrorIs(t, err, exception.ErrConfiguration)
	_, err = reader.NewFlatFileReader[person]("r", "people.csv", files(""), nil, mapper)
	assert.ErrorIs(t, err, exception.ErrConfiguration)
}

func TestFieldSet(t *testing.T) {
	fs := reader.FieldSet{Names: []string{"a", "b"}, Values: []string{"1", "2"}}
	assert.Equal(t, "2", fs.ReadString("b"))
	_, ok := fs.Get("c")
	assert.False(t, ok)
	assert.Equal(t, map[string]interface{}{"a": "1", "b": "2"}, fs.ToMap())
}
