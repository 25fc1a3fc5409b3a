// Package serialization converts execution metadata to and from its persisted JSON form.
package serialization

import (
	"encoding/json"

	"github.com/tigerroll/chunkflow/pkg/batch/support/util/exception"
)

const module = "serialization"

// MaskedValue replaces the value of sensitive job parameters.
const MaskedValue = "********"

// MaskParameters returns a copy of params in which the values of maskedKeys are replaced by MaskedValue.
func MaskParameters(params map[string]interface{}, maskedKeys []string) map[string]interface{} {
	masked := make(map[string]interface{}, len(params))
	for k, v := range params {
		masked[k] = v
	}
	for _, key := range maskedKeys {
		if _, ok := masked[key]; ok {
			masked[key] = MaskedValue
		}
	}
	return masked
}

// MarshalJobParameters serializes parameters with sensitive values masked.
func MarshalJobParameters(params map[string]interface{}, maskedKeys []string) ([]byte, error) {
	if len(params) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(MaskParameters(params, maskedKeys))
	if err != nil {
		return nil, exception.NewBatchError(module, "failed to serialize JobParameters", err)
	}
	return data, nil
}

// UnmarshalJobParameters deserializes parameters. Numbers come back as float64.
func UnmarshalJobParameters(data []byte) (map[string]interface{}, error) {
	params := make(map[string]interface{})
	if len(data) == 0 || string(data) == "null" {
		return params, nil
	}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, exception.NewBatchError(module, "failed to deserialize JobParameters", err)
	}
	return params, nil
}

// MarshalFailures serializes a failure message list as a JSON array.
func MarshalFailures(failures []string) ([]byte, error) {
	if failures == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return nil, exception.NewBatchError(module, "failed to serialize failures", err)
	}
	return data, nil
}

// UnmarshalFailures deserializes a failure message list.
func UnmarshalFailures(data []byte) ([]string, error) {
	msgs := []string{}
	if len(data) == 0 || string(data) == "null" {
		return msgs, nil
	}
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, exception.NewBatchError(module, "failed to deserialize failures", err)
	}
	return msgs, nil
}
