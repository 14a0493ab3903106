package service

import (
	"fmt"
)

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("invalid report request: %s", message)}
}

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uint, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %d not found", resourceType, id)}
}

func NewErrQueryNotFound(id uint) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "query")
}

func NewErrQueryLogNotFound(id uint) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "query log")
}

type ErrQueryExecution struct {
	error
}

func NewErrQueryExecution(queryName string, cause error) *ErrQueryExecution {
	return &ErrQueryExecution{fmt.Errorf("query %q execution failed: %w", queryName, cause)}
}

type ErrArtifactWrite struct {
	error
}

func NewErrArtifactWrite(queryName string, cause error) *ErrArtifactWrite {
	return &ErrArtifactWrite{fmt.Errorf("failed to write artifact for query %q: %w", queryName, cause)}
}

type ErrNotification struct {
	error
}

func NewErrNotification(emailAddress string, cause error) *ErrNotification {
	return &ErrNotification{fmt.Errorf("failed to notify %s: %w", emailAddress, cause)}
}

type ErrStatusUpdate struct {
	error
}

func NewErrStatusUpdate(queryLogID uint, cause error) *ErrStatusUpdate {
	return &ErrStatusUpdate{fmt.Errorf("failed to update status of query log %d: %w", queryLogID, cause)}
}

// Stage names the pipeline step an error escaped from. The consumer tags
// failure logs and events with it.
func Stage(err error) string {
	switch err.(type) {
	case *ErrInvalidRequest:
		return "validate"
	case *ErrQueryExecution:
		return "execute"
	case *ErrArtifactWrite:
		return "save"
	case *ErrNotification:
		return "notify"
	case *ErrStatusUpdate:
		return "status"
	default:
		return "unknown"
	}
}
