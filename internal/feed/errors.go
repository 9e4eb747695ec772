package feed

import (
	"errors"
	"fmt"

	"github.com/bilgisen/newswatch/internal/storage"
)

// Business error codes attached to per-item failures
const (
	CodeDBSave         = "DB_SAVE_ERROR"
	CodeNewsProcessing = "NEWS_PROCESSING_ERROR"
)

// BusinessError is a classified pipeline failure carrying a stable code and a
// message naming the offending item. The cause stays reachable through Unwrap.
type BusinessError struct {
	Code string
	Text string
	Err  error
}

func (e *BusinessError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Text)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Text, e.Err)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func newBusinessError(code, text string, err error) *BusinessError {
	return &BusinessError{Code: code, Text: text, Err: err}
}

// CodeOf returns the business code carried by err, or NEWS_PROCESSING_ERROR
// for unclassified failures.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeNewsProcessing
}

// IsConflict reports whether err is a lost race against a concurrent insert
// of the same text
func IsConflict(err error) bool {
	return errors.Is(err, storage.ErrIntegrityConflict)
}
