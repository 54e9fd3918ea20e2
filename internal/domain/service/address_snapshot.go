package service

import (
	"context"
	"time"
)

// AddressSnapshot keeps exports of the collection in a blob bucket
type AddressSnapshot interface {
	// Backup writes a full export under key, or under a timestamped key when
	// key is empty, and returns the key used.
	Backup(ctx context.Context, key string) (string, error)

	// Restore imports the snapshot stored under key, or the latest one when
	// key is empty. Returns ErrSnapshotNotFound when there is none.
	Restore(ctx context.Context, key string) (*ImportReport, error)

	// Latest returns the key of the most recent snapshot
	Latest(ctx context.Context) (string, error)

	// List returns every snapshot, oldest first
	List(ctx context.Context) ([]SnapshotInfo, error)
}

// SnapshotInfo describes one stored snapshot
type SnapshotInfo struct {
	Key     string    `json:"key"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}
