// Package httperr carries an HTTP status alongside an error and renders it
// as a JSON error body.
package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Response is the JSON body written for an error.
type Response struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
}

type httpError struct {
	err        error
	statusCode int
}

func New(err error, status int) error {
	return &httpError{err: err, statusCode: status}
}

func NewWithMessage(err error, message string, status int) error {
	return &httpError{err: fmt.Errorf("%s: %w", message, err), statusCode: status}
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%s: %d", e.err.Error(), e.statusCode)
}

func (e *httpError) Unwrap() error {
	return e.err
}

// Status returns the status carried by err, or 500 when it carries none.
func Status(err error) int {
	var he *httpError
	if errors.As(err, &he) {
		return he.statusCode
	}
	return http.StatusInternalServerError
}

// Write writes err as a JSON error response.
func Write(w http.ResponseWriter, err error) error {
	status := Status(err)
	msg := err.Error()
	var he *httpError
	if errors.As(err, &he) {
		msg = he.err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(&Response{
		StatusCode: status,
		Error:      msg,
	})
}
