// Package apperr defines the error taxonomy shared by the repository and
// service layers. Handlers use errors.As to translate these to HTTP statuses.
package apperr

import "fmt"

// NotFoundError reports that a referenced entity does not exist. At the API
// boundary a missing user is a client error, while a missing recommendation
// row on mark-viewed is an expected race the handler treats as a no-op.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func NotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// StorageError wraps a failure from the persistence layer. The engine never
// retries these; they propagate to the handler which maps them to 500.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func Storage(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
