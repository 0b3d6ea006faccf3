package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a data validation failure.
type ErrorKind string

// Validation failure kinds. Each one aborts a run.
const (
	MalformedIdentifier    ErrorKind = "malformed_identifier"
	UnknownCategoryLabel   ErrorKind = "unknown_category_label"
	ReconciliationMismatch ErrorKind = "reconciliation_mismatch"
	EmptyDataset           ErrorKind = "empty_dataset"
	NonUniqueJoinKey       ErrorKind = "non_unique_join_key"
	InvalidCount           ErrorKind = "invalid_count"
	UnknownField           ErrorKind = "unknown_field"
)

// ValidationError reports a data-quality defect tied to one row or identifier.
type ValidationError struct {
	Kind   ErrorKind
	ID     string // offending row id or identifier; empty when not row-specific
	Detail string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.ID, e.Detail)
}

// NewValidationError builds a ValidationError with a formatted detail message.
func NewValidationError(kind ErrorKind, id, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, ID: id, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first ValidationError in err's chain, or ""
// when there is none.
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains a ValidationError of kind k.
func IsKind(err error, k ErrorKind) bool {
	return err != nil && KindOf(err) == k
}
