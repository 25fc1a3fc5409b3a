package reader

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// FieldSet is one tokenized line of a flat file: values keyed positionally by the configured names.
type FieldSet struct {
	// Names are the configured field names, in column order.
	Names []string
	// Values are the raw column values, in column order.
	Values []string
	// Line is the 1-based line number the record starts on.
	Line int64
}

// Get returns the value of the named field.
func (fs FieldSet) Get(name string) (string, bool) {
	for i, n := range fs.Names {
		if n == name && i < len(fs.Values) {
			return fs.Values[i], true
		}
	}
	return "", false
}

// ReadString returns the value of the named field, or "" when it does not exist.
func (fs FieldSet) ReadString(name string) string {
	v, _ := fs.Get(name)
	return v
}

// ToMap returns the fields as a name to value map.
func (fs FieldSet) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(fs.Names))
	for i, n := range fs.Names {
		if i < len(fs.Values) {
			m[n] = fs.Values[i]
		}
	}
	return m
}

// FieldSetMapper maps a FieldSet to an item.
type FieldSetMapper[T any] interface {
	MapFieldSet(fs FieldSet) (T, error)
}

// FieldSetMapperFunc adapts a plain function to FieldSetMapper.
type FieldSetMapperFunc[T any] func(fs FieldSet) (T, error)

// MapFieldSet implements FieldSetMapper.
func (f FieldSetMapperFunc[T]) MapFieldSet(fs FieldSet) (T, error) {
	return f(fs)
}

// BeanWrapperFieldSetMapper decodes a FieldSet into a struct whose fields carry `name` tags,
// e.g. `name:"firstName"`. Values are converted weakly, so "42" fills an int field.
type BeanWrapperFieldSetMapper[T any] struct{}

// NewBeanWrapperFieldSetMapper creates a BeanWrapperFieldSetMapper.
func NewBeanWrapperFieldSetMapper[T any]() *BeanWrapperFieldSetMapper[T] {
	return &BeanWrapperFieldSetMapper[T]{}
}

// MapFieldSet implements FieldSetMapper.
func (m *BeanWrapperFieldSetMapper[T]) MapFieldSet(fs FieldSet) (T, error) {
	var item T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &item,
		TagName:          "name",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return item, fmt.Errorf("failed to create field set decoder: %w", err)
	}
	if err := decoder.Decode(fs.ToMap()); err != nil {
		return item, fmt.Errorf("failed to map field set: %w", err)
	}
	return item, nil
}
