// Package person implements the importUserJob application: people are read from a
// delimited file, their names upper-cased and the result inserted into the people table.
package person

import (
	"context"
	"fmt"
	"strings"

	"github.com/tigerroll/chunkflow/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// Person is one row of the input file and of the people table.
// The name tags bind CSV columns and SQL named parameters, bson the Mongo sink and parquet the export.
type Person struct {
	FirstName string `name:"firstName" bson:"first_name" parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastName  string `name:"lastName" bson:"last_name" parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func (p Person) String() string {
	return fmt.Sprintf("firstName: %s, lastName: %s", p.FirstName, p.LastName)
}

// IsBlank reports whether both names are empty after trimming.
func (p Person) IsBlank() bool {
	return strings.TrimSpace(p.FirstName) == "" && strings.TrimSpace(p.LastName) == ""
}

// ItemProcessor upper-cases both names.
type ItemProcessor struct{}

var _ port.ItemProcessor[Person, Person] = (*ItemProcessor)(nil)

// NewItemProcessor creates an ItemProcessor.
func NewItemProcessor() *ItemProcessor {
	return &ItemProcessor{}
}

// Process returns the upper-cased person, or port.ErrSkipItem for a blank row.
func (p *ItemProcessor) Process(ctx context.Context, item Person) (Person, error) {
	if item.IsBlank() {
		logger.Debugf("Skipping blank person row.")
		return Person{}, port.ErrSkipItem
	}
	transformed := Person{
		FirstName: strings.ToUpper(item.FirstName),
		LastName:  strings.ToUpper(item.LastName),
	}
	logger.Infof("Converting (%s) into (%s)", item, transformed)
	return transformed, nil
}
