package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrAlreadyRegistered    = errors.New("device already registered")
	ErrRouterUnavailable    = errors.New("router unavailable")
	ErrMissingConfiguration = errors.New("customer has no plan or router assigned")
	ErrInvalidPendingUpdate = errors.New("pending update payload is malformed")
	ErrLockBusy             = errors.New("another operation holds the device lock")

	// Database layer errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
)
