package service

import (
	"errors"

	"sales-service/internal/store"
)

// Business-rule failures. Routers map these to client errors; anything else
// coming out of the service is a persistence failure and maps to a server
// error.
var (
	ErrEmptyItems           = errors.New("sale must contain at least one item")
	ErrInvalidQuantity      = errors.New("item quantity must be positive")
	ErrInvalidPrice         = errors.New("item price must not be negative")
	ErrInvalidCurrency      = errors.New("unsupported currency")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidStatus        = errors.New("unknown sale status")
	ErrInvalidTransition    = errors.New("illegal status transition")
)

// ErrNotFound is the store's sentinel, re-exported so callers need not
// import the store package to classify errors.
var ErrNotFound = store.ErrNotFound
