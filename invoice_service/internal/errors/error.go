// Package errors provides sentinel errors for the invoice service.
package errors

import "errors"

var ErrNotFound = errors.New("record not found")

var ErrInvalidCounterValue = errors.New("counter value must be at least 1")
var ErrUnknownCounter = errors.New("unknown counter")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")

var ErrUnsupportedDriver = errors.New("unsupported store driver")
