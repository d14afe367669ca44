package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/poh/server/internal/world"
	"golang.org/x/crypto/blake2b"
)

// SaveRepo stores full world snapshots. Each save row carries a blake2b
// digest of the snapshot JSON; a digest mismatch on load means the row was
// corrupted or tampered with and the save is refused.
type SaveRepo struct {
	db *DB
}

func NewSaveRepo(db *DB) *SaveRepo {
	return &SaveRepo{db: db}
}

// SaveMeta is a listing row: everything but the snapshot itself.
type SaveMeta struct {
	ID      uuid.UUID
	Name    string
	Version string
	SavedAt time.Time
}

// Checksum computes the digest stored beside a snapshot.
func Checksum(snapshot []byte) []byte {
	sum := blake2b.Sum256(snapshot)
	return sum[:]
}

// Put upserts a named save. Saving over an existing name replaces it.
func (r *SaveRepo) Put(ctx context.Context, sd *world.SaveData) error {
	blob, err := json.Marshal(sd)
	if err != nil {
		return fmt.Errorf("marshal save %q: %w", sd.Name, err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO saves (id, name, version, checksum, snapshot)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO UPDATE
		 SET version = EXCLUDED.version,
		     saved_at = now(),
		     checksum = EXCLUDED.checksum,
		     snapshot = EXCLUDED.snapshot`,
		uuid.New(), sd.Name, sd.Version, Checksum(blob), blob,
	)
	if err != nil {
		return fmt.Errorf("store save %q: %w", sd.Name, err)
	}
	return nil
}

// Get loads a named save, verifying its checksum before decoding.
func (r *SaveRepo) Get(ctx context.Context, name string) (*world.SaveData, error) {
	var blob, sum []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT snapshot, checksum FROM saves WHERE name = $1`, name,
	).Scan(&blob, &sum)
	if err != nil {
		return nil, fmt.Errorf("load save %q: %w", name, err)
	}
	if !checksumEqual(sum, Checksum(blob)) {
		return nil, fmt.Errorf("load save %q: checksum mismatch, snapshot is corrupt", name)
	}
	var sd world.SaveData
	if err := json.Unmarshal(blob, &sd); err != nil {
		return nil, fmt.Errorf("decode save %q: %w", name, err)
	}
	return &sd, nil
}

// List returns metadata for every stored save, newest first.
func (r *SaveRepo) List(ctx context.Context) ([]SaveMeta, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, version, saved_at FROM saves ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var out []SaveMeta
	for rows.Next() {
		var m SaveMeta
		if err := rows.Scan(&m.ID, &m.Name, &m.Version, &m.SavedAt); err != nil {
			return nil, fmt.Errorf("scan save row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a named save; deleting a missing save is not an error.
func (r *SaveRepo) Delete(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM saves WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete save %q: %w", name, err)
	}
	return nil
}

func checksumEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
