package common

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Result is the status code returned alongside an error by most operations in this module. Success and
// NotReady are not errors, every other value has a matching sentinel error retrieved with ToError.
type Result int32

const (
	Success Result = iota
	// NotReady indicates that a bounded wait expired before the awaited stamp retired
	NotReady
	ErrorOutOfDeviceMemory
	ErrorInvalidArgument
	ErrorInvalidSize
	// ErrorDeviceLost indicates that the execution layer reported a hang while waiting
	ErrorDeviceLost
	ErrorUnknown
)

var resultNames = map[Result]string{
	Success:                "Success",
	NotReady:               "NotReady",
	ErrorOutOfDeviceMemory: "ErrorOutOfDeviceMemory",
	ErrorInvalidArgument:   "ErrorInvalidArgument",
	ErrorInvalidSize:       "ErrorInvalidSize",
	ErrorDeviceLost:        "ErrorDeviceLost",
	ErrorUnknown:           "ErrorUnknown",
}

var resultErrors = map[Result]error{}

func init() {
	for result, name := range resultNames {
		if result == Success || result == NotReady {
			continue
		}
		resultErrors[result] = errors.New(name)
	}
}

func (r Result) String() string {
	name, ok := resultNames[r]
	if !ok {
		return fmt.Sprintf("Result(%d)", int32(r))
	}
	return name
}

// IsError returns true for every Result that carries an error
func (r Result) IsError() bool {
	return r != Success && r != NotReady
}

// ToError returns the sentinel error for this Result, or nil for Success and NotReady. The returned
// value can be compared with errors.Is after wrapping.
func (r Result) ToError() error {
	if !r.IsError() {
		return nil
	}

	err, ok := resultErrors[r]
	if !ok {
		return resultErrors[ErrorUnknown]
	}
	return err
}

// ResultFromError recovers the Result matching a (possibly wrapped) sentinel error
func ResultFromError(err error) Result {
	if err == nil {
		return Success
	}

	for result, sentinel := range resultErrors {
		if errors.Is(err, sentinel) {
			return result
		}
	}

	return ErrorUnknown
}
