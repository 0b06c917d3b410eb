package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrInStock is returned when subscribing to a line that currently has stock.
	ErrInStock = errors.New("line is in stock")

	// ErrUnknownProduct is returned for public reads and subscriptions on
	// products the catalog does not list.
	ErrUnknownProduct = errors.New("product not in catalog")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
