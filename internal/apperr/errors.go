// Package apperr holds the sentinel errors shared across packages and the
// JSON error body returned by the HTTP API.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("appointment not found")
	ErrReadOnly = errors.New("appointment is read-only")
)

type Error struct {
	Message string   `json:"message,omitempty"`
	Err     []string `json:"err,omitempty"`
}

func New(message string, errs ...error) *Error {
	e := &Error{Message: message}
	for _, err := range errs {
		if err != nil {
			e.Err = append(e.Err, err.Error())
		}
	}
	return e
}

func (e *Error) Error() string {
	data, _ := json.Marshal(e)
	return string(data)
}

func (e *Error) Unwrap() error {
	if e == nil || len(e.Err) == 0 {
		return nil
	}

	errs := make([]error, len(e.Err))
	for i, msg := range e.Err {
		errs[i] = fmt.Errorf("%s", msg)
	}
	return errors.Join(errs...)
}

func (e *Error) Messages() []string {
	return e.Err
}
