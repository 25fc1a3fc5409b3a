package model

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkflow/pkg/batch/support/util/serialization"
)

// JobParameters is the set of named values identifying one launch of a job.
// Supported value types are string, int64 (and other integers), float64, bool and time.Time.
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters creates an empty JobParameters.
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put sets a value in JobParameters with the specified key and value.
func (jp JobParameters) Put(key string, value interface{}) {
	jp.Params[key] = value
}

// Get retrieves the value for the specified key. Returns nil if the value does not exist.
func (jp JobParameters) Get(key string) interface{} {
	return jp.Params[key]
}

// GetString retrieves the value for the specified key as a string.
func (jp JobParameters) GetString(key string) (string, bool) {
	str, ok := jp.Params[key].(string)
	return str, ok
}

// GetInt64 retrieves the value for the specified key as an int64.
// Whole float64 values, as produced by JSON decoding, are accepted.
func (jp JobParameters) GetInt64(key string) (int64, bool) {
	switch v := jp.Params[key].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	}
	return 0, false
}

// GetBool retrieves the value for the specified key as a bool.
func (jp JobParameters) GetBool(key string) (bool, bool) {
	b, ok := jp.Params[key].(bool)
	return b, ok
}

// GetTime retrieves the value for the specified key as a time.Time.
// RFC3339 strings, as produced by JSON decoding, are accepted.
func (jp JobParameters) GetTime(key string) (time.Time, bool) {
	switch v := jp.Params[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		return t, err == nil
	}
	return time.Time{}, false
}

// Copy returns a JobParameters holding a shallow copy of the values.
func (jp JobParameters) Copy() JobParameters {
	cp := NewJobParameters()
	for k, v := range jp.Params {
		cp.Params[k] = v
	}
	return cp
}

// Equal reports whether both parameter sets identify the same launch.
// Values are compared through their canonical JSON form, so int64(1) equals float64(1).
func (jp JobParameters) Equal(other JobParameters) bool {
	a, errA := jp.Hash()
	b, errB := other.Hash()
	return errA == nil && errB == nil && a == b
}

// Hash calculates the sha256 of the canonical JSON form of the parameters.
// Keys are sorted so that the hash does not depend on insertion order.
func (jp JobParameters) Hash() (string, error) {
	canonical, err := jp.toCanonicalJSON()
	if err != nil {
		return "", exception.NewBatchError("job_parameters", "failed to marshal JobParameters to canonical JSON", err)
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

func (jp JobParameters) toCanonicalJSON() (string, error) {
	keys := make([]string, 0, len(jp.Params))
	for k := range jp.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return "", err
		}
		v := jp.Params[k]
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(time.RFC3339Nano)
		}
		valBytes, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		sb.Write(keyBytes)
		sb.WriteString(":")
		sb.Write(valBytes)
	}
	sb.WriteString("}")
	return sb.String(), nil
}

// String returns the JSON form of the parameters with sensitive values masked.
func (jp JobParameters) String() string {
	data, err := json.Marshal(serialization.MaskParameters(jp.Params, config.GetMaskedParameterKeys()))
	if err != nil {
		return fmt.Sprintf("{[ERROR: failed to marshal masked parameters: %v]}", err)
	}
	return string(data)
}

// Value implements driver.Valuer, storing the parameters as JSON with sensitive values masked.
func (jp JobParameters) Value() (driver.Value, error) {
	data, err := serialization.MarshalJobParameters(jp.Params, config.GetMaskedParameterKeys())
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (jp *JobParameters) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case nil:
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for JobParameters: %T", value)
	}
	params, err := serialization.UnmarshalJobParameters(b)
	if err != nil {
		return err
	}
	jp.Params = params
	return nil
}

// FailureList holds the messages of the errors recorded on an execution.
type FailureList []string

// Value implements driver.Valuer.
func (fl FailureList) Value() (driver.Value, error) {
	data, err := serialization.MarshalFailures(fl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (fl *FailureList) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case nil:
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for FailureList: %T", value)
	}
	msgs, err := serialization.UnmarshalFailures(b)
	if err != nil {
		return err
	}
	*fl = msgs
	return nil
}

// add appends msg unless it is already recorded.
func (fl *FailureList) add(msg string) bool {
	for _, existing := range *fl {
		if existing == msg {
			return false
		}
	}
	*fl = append(*fl, msg)
	return true
}
