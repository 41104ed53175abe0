package models

import "fmt"

// SyncState tracks how far a local change has travelled to the remote store.
type SyncState int

const (
	// SyncLocalOnly entities never reached the remote store. Saving them
	// does not start a remote saga until they are retried explicitly.
	SyncLocalOnly SyncState = iota
	// SyncPendingRemote entities have a local change the remote store has
	// not seen yet, because the gate deferred it or a saga stage failed.
	SyncPendingRemote
	// SyncSynced entities completed their last remote saga.
	SyncSynced
)

func (s SyncState) String() string {
	switch s {
	case SyncLocalOnly:
		return "local-only"
	case SyncPendingRemote:
		return "pending-remote"
	case SyncSynced:
		return "synced"
	default:
		return fmt.Sprintf("SyncState(%d)", int(s))
	}
}

// NeedsRetry reports whether Retry should push the entity.
func (s SyncState) NeedsRetry() bool {
	return s != SyncSynced
}
