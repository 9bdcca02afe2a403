// Package errors provides centralized error definitions for mailcompact.
package errors

import "errors"

// Maildir errors.
var (
	// ErrMaildirNotFound indicates the maildir directory does not exist.
	ErrMaildirNotFound = errors.New("maildir not found")

	// ErrInvalidPath indicates a path that cannot be used as a scan root.
	ErrInvalidPath = errors.New("invalid maildir path")

	// ErrStaleJob indicates the original message changed between compression
	// and replacement, so the compressed copy was discarded.
	ErrStaleJob = errors.New("original message changed since compression")
)

// Lock errors.
var (
	// ErrLockFailed indicates the lock service refused or failed to grant the lock.
	ErrLockFailed = errors.New("lock acquisition failed")

	// ErrLockBusy indicates the lock is currently held by someone else.
	ErrLockBusy = errors.New("mailbox locked")

	// ErrLockExhausted indicates the retry policy gave up acquiring the lock.
	ErrLockExhausted = errors.New("lock retries exhausted")

	// ErrLockRelease indicates the lock could not be released cleanly.
	ErrLockRelease = errors.New("lock release failed")

	// ErrInvalidLockHolder indicates the lock service reported an unusable holder identity.
	ErrInvalidLockHolder = errors.New("invalid lock holder")
)

// Locker registry errors.
var (
	// ErrLockerNotRegistered indicates the requested lock backend is not registered.
	ErrLockerNotRegistered = errors.New("lock backend not registered")

	// ErrLockerConfigInvalid indicates the lock backend configuration is invalid.
	ErrLockerConfigInvalid = errors.New("invalid lock backend configuration")
)

// Configuration errors.
var (
	// ErrConfigInvalid indicates the compactor configuration is invalid.
	ErrConfigInvalid = errors.New("invalid configuration")
)
