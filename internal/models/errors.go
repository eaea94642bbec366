package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy shared by the engines. The API
// layer maps them to HTTP statuses with errors.Is/As; messages are
// user-facing and shown verbatim by the caller.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// NotFoundError reports a missing entity by kind and identifier.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidInputError reports a malformed or missing field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// InsufficientStockError names the product and the quantity still available,
// mirroring the message shown at the point of sale.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s has only %d item(s) in stock", e.ProductName, e.Available)
}

// ErrInsufficientStock lets callers branch on the error kind without
// inspecting the concrete type.
var ErrInsufficientStock = errors.New("insufficient stock")

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidTransitionError reports a disallowed purchase order status change.
type InvalidTransitionError struct {
	OrderID int64
	From    string
	To      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %d cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
