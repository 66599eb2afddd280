package store

import "time"

// SnapshotRecord is the stored-row view of a snapshot, without the blob.
type SnapshotRecord struct {
	ID            int64
	TenantID      string
	ScanTimestamp time.Time
}
