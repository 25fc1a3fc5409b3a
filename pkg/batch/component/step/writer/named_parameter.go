package writer

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tigerroll/chunkflow/pkg/batch/core/tx"
)

// BindTypeOf returns the sqlx bind type matching the placeholders of t.
// A store without placeholders (BindVar returns "") cannot run SQL statements.
func BindTypeOf(t tx.Tx) (int, error) {
	switch ph := t.BindVar(1); {
	case ph == "?":
		return sqlx.QUESTION, nil
	case strings.HasPrefix(ph, "$"):
		return sqlx.DOLLAR, nil
	case strings.HasPrefix(ph, "@p"):
		return sqlx.AT, nil
	case strings.HasPrefix(ph, ":"):
		return sqlx.NAMED, nil
	default:
		return sqlx.UNKNOWN, fmt.Errorf("transaction provides no placeholder style for SQL statements (got %q)", ph)
	}
}

// compileNamed binds params to statement and renders the placeholders of bindType.
func compileNamed(statement string, bindType int, params map[string]interface{}) (string, []interface{}, error) {
	query, args, err := sqlx.Named(statement, params)
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(bindType, query), args, nil
}

// hasNamedParameters reports whether statement references at least one :name.
// Binding an empty map only succeeds for a statement without parameters.
func hasNamedParameters(statement string) bool {
	_, args, err := sqlx.Named(statement, map[string]interface{}{})
	return err != nil || len(args) > 0
}
