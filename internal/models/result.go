package models

import (
	"encoding/json"
	stderrors "errors"

	apperrors "snapmaster-gcp/internal/common/errors"
)

// Status discriminates the two ReturnValue variants
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ReturnValue is the uniform envelope returned by every public operation.
// A success carries Result; an error carries Message and optionally Detail.
type ReturnValue struct {
	Status  Status      `json:"status"`
	Result  interface{} `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
	Detail  interface{} `json:"detail,omitempty"`
}

// Success wraps result in a success ReturnValue
func Success(result interface{}) ReturnValue {
	return ReturnValue{Status: StatusSuccess, Result: result}
}

// Failure builds an error ReturnValue
func Failure(message string, detail interface{}) ReturnValue {
	return ReturnValue{Status: StatusError, Message: message, Detail: detail}
}

// FromError converts err into an error ReturnValue. The message is the
// user-facing AppError message; the error type and any AppError context are
// carried in Detail.
func FromError(err error) ReturnValue {
	detail := map[string]interface{}{"type": string(apperrors.GetType(err))}

	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		for k, v := range appErr.Context {
			detail[k] = v
		}
	}
	return Failure(apperrors.Message(err), detail)
}

// IsSuccess reports whether the value is the success variant
func (r ReturnValue) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// ExecutionResult is the outcome of running an action script. It is always
// produced, even when the script failed to launch; callers must inspect Error.
type ExecutionResult struct {
	Error    error  `json:"-"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// MarshalJSON renders Error as its message, or null
func (e ExecutionResult) MarshalJSON() ([]byte, error) {
	var errMsg *string
	if e.Error != nil {
		msg := e.Error.Error()
		errMsg = &msg
	}
	return json.Marshal(struct {
		Error    *string `json:"error"`
		Stdout   string  `json:"stdout"`
		Stderr   string  `json:"stderr"`
		ExitCode int     `json:"exitCode"`
	}{errMsg, e.Stdout, e.Stderr, e.ExitCode})
}
