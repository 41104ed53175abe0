// Package common defines shared constants, sentinel errors and error carriers
// used across client and server layers. Callers should use errors.Is and
// errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("server unavailable")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrBadRequest   = errors.New("bad request")

	// Local store errors.
	ErrStore       = errors.New("local store error")
	ErrAdd         = errors.New("entry was not added")
	ErrInvalidated = errors.New("entry already removed")
	ErrReplace     = errors.New("entry to replace not found")

	// Remote store errors.
	ErrRemote = errors.New("remote store error")

	// Codec errors.
	ErrEmptyPassword = errors.New("password is not set")
	ErrEncryption    = errors.New("encryption failed")
	ErrDecryption    = errors.New("decryption failed")
	ErrWrongPassword = errors.New("wrong password")
)

// StoreError reports a failed local transaction. The whole operation was
// rolled back when it is returned.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("local store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes every StoreError match ErrStore.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// NewStoreError wraps err unless it is nil or already a StoreError.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// RemoteError reports a failed remote document call and carries the cause.
type RemoteError struct {
	Op         string
	Collection string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is makes every RemoteError match ErrRemote.
func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// NewRemoteError wraps err unless it is nil or already a RemoteError.
func NewRemoteError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	return &RemoteError{Op: op, Collection: collection, Err: err}
}
