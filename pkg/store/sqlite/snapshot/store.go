package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/sectools/azrecon/pkg/models/store"
)

// ErrNotFound is returned when no snapshot has been stored yet. Callers
// render it as an empty "no data" state, not a hard failure.
var ErrNotFound = errors.New("no snapshot stored")

// Store persists scan snapshots. Snapshots are write-once, read-many:
// Save appends a new row and "latest" is simply the most recently saved
// one per tenant, so concurrent saves for the same tenant resolve to
// last-writer-wins.
type Store interface {
	Save(ctx context.Context, snapshot *domain.ScanSnapshot) error
	Latest(ctx context.Context, tenantID string) (*domain.ScanSnapshot, error)
	History(ctx context.Context, tenantID string, limit int) ([]store.SnapshotRecord, error)
}

type snapshotStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &snapshotStore{db: db}, nil
}

func (s *snapshotStore) Save(ctx context.Context, snapshot *domain.ScanSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is nil")
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (tenant_id, scan_timestamp, data) VALUES (?, ?, ?)`,
		snapshot.TenantID, snapshot.ScanTimestamp, string(data),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recently saved snapshot for the tenant, or the
// most recent across all tenants when tenantID is empty.
func (s *snapshotStore) Latest(ctx context.Context, tenantID string) (*domain.ScanSnapshot, error) {
	query := `SELECT data FROM snapshots`
	args := []any{}
	if tenantID != "" {
		query += ` WHERE tenant_id = ?`
		args = append(args, tenantID)
	}
	query += ` ORDER BY id DESC LIMIT 1`

	var data string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	var snapshot domain.ScanSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// History lists stored snapshot rows for the tenant, newest first.
func (s *snapshotStore) History(ctx context.Context, tenantID string, limit int) ([]store.SnapshotRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, tenant_id, scan_timestamp FROM snapshots`
	args := []any{}
	if tenantID != "" {
		query += ` WHERE tenant_id = ?`
		args = append(args, tenantID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer rows.Close()

	records := make([]store.SnapshotRecord, 0)
	for rows.Next() {
		var rec store.SnapshotRecord
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.ScanTimestamp); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
