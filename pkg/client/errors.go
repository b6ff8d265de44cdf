package client

import (
	"errors"
	"fmt"
)

// ErrRemote matches every APIError via errors.Is.
var ErrRemote = errors.New("remote folder API call failed")

// Input errors wrapped by APIError when a call is rejected before any request is sent.
var (
	ErrInvalidSegment    = errors.New("invalid path segment")
	ErrInvalidPermission = errors.New("invalid permission filter")
)

// Failure reasons, one per operation.
const (
	ReasonNoFolders      = "no folders available"
	ReasonNoFiles        = "no files available"
	ReasonImportFailed   = "error during import"
	ReasonExportFailed   = "error during export"
	ReasonDownloadFailed = "error during download"
)

// APIError is returned by every client operation that could not complete
// with a success status. StatusCode is 0 when no response was received.
type APIError struct {
	Op         string
	Reason     string
	StatusCode int
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Op + ": " + e.Reason
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	return target == ErrRemote
}

// AsAPIError checks if an error is an APIError and returns it.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
