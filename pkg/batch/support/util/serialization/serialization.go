// Package serialization converts execution records to and from the JSON text
// stored by the SQL job repository.
package serialization

import (
	"encoding/json"

	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

const moduleName = "serialization"

const mask = "********"

// MaskedParameterKeys lists job parameters that are never persisted in clear text.
var MaskedParameterKeys = []string{"password", "dsn"}

// MaskJobParameters returns a copy of params with MaskedParameterKeys replaced.
func MaskJobParameters(params map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(params))
	for k, v := range params {
		masked[k] = v
	}
	for _, key := range MaskedParameterKeys {
		if _, ok := masked[key]; ok {
			masked[key] = mask
		}
	}
	return masked
}

// MarshalExecutionContext serializes an ExecutionContext map. nil becomes "{}".
func MarshalExecutionContext(ec map[string]interface{}) (string, error) {
	if ec == nil {
		return "{}", nil
	}
	data, err := json.Marshal(ec)
	if err != nil {
		logger.Errorf("Failed to serialize ExecutionContext: %v", err)
		return "", exception.NewBatchError(moduleName, "failed to serialize ExecutionContext", err, false, false)
	}
	return string(data), nil
}

// UnmarshalExecutionContext parses data into a fresh map. Numbers come back as float64.
func UnmarshalExecutionContext(data string) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if data == "" || data == "null" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		logger.Errorf("Failed to deserialize ExecutionContext: %v", err)
		return nil, exception.NewBatchError(moduleName, "failed to deserialize ExecutionContext", err, false, false)
	}
	return out, nil
}

// MarshalJobParameters serializes params after masking.
func MarshalJobParameters(params map[string]interface{}) (string, error) {
	if len(params) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(MaskJobParameters(params))
	if err != nil {
		logger.Errorf("Failed to serialize JobParameters: %v", err)
		return "", exception.NewBatchError(moduleName, "failed to serialize JobParameters", err, false, false)
	}
	return string(data), nil
}

// UnmarshalJobParameters parses data into a fresh map.
func UnmarshalJobParameters(data string) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if data == "" || data == "null" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		logger.Errorf("Failed to deserialize JobParameters: %v", err)
		return nil, exception.NewBatchError(moduleName, "failed to deserialize JobParameters", err, false, false)
	}
	return out, nil
}

// MarshalFailures serializes a list of failure messages. nil becomes "[]".
func MarshalFailures(failures []string) (string, error) {
	if failures == nil {
		return "[]", nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return "", exception.NewBatchError(moduleName, "failed to serialize failures", err, false, false)
	}
	return string(data), nil
}

// UnmarshalFailures parses a list of failure messages.
func UnmarshalFailures(data string) ([]string, error) {
	out := make([]string, 0)
	if data == "" || data == "null" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to deserialize failures", err, false, false)
	}
	return out, nil
}
