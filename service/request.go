package service

import (
	"fmt"

	"github.com/runar-labs/runar-node/errors"
	"github.com/runar-labs/runar-node/value"
)

// Status is the outcome of a handled request
type Status int

const (
	// StatusSuccess means the operation completed and Data is meaningful
	StatusSuccess Status = iota
	// StatusError means the operation failed and Message explains why
	StatusError
)

// String returns the wire representation of Status
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MarshalJSON writes the status as its wire string
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON reads a status from its wire string
func (s *Status) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"Success"`:
		*s = StatusSuccess
	case `"Error"`:
		*s = StatusError
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown status %s", data), "Status", "UnmarshalJSON", "decoding")
	}
	return nil
}

// Request is a dispatched operation call as the handler sees it
type Request struct {
	// Operation is the resolved operation name (the last address segment)
	Operation string
	// Params carries the caller's parameters, usually a map
	Params value.Value
}

// Response is the uniform result envelope every operation returns
type Response struct {
	Status  Status      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    value.Value `json:"data"`
}

// IsSuccess reports whether the response carries a successful status
func (r Response) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Success builds a successful response with an optional message and payload
func Success(message string, data value.Value) Response {
	return Response{Status: StatusSuccess, Message: message, Data: data}
}

// Error builds a failed response; Data is null
func Error(message string) Response {
	return Response{Status: StatusError, Message: message, Data: value.Null()}
}

// Errorf builds a failed response from a format string
func Errorf(format string, args ...any) Response {
	return Error(fmt.Sprintf(format, args...))
}
