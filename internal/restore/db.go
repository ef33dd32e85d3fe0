package restore

import (
	"context"
	"database/sql"
	"encoding/hex"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spacemeshos/quicksync/internal/errors"
)

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	return db, nil
}

// UserVersion reads the schema generation identifier of the database at
// path. It selects which manifest and restore script the distribution
// service serves.
func UserVersion(ctx context.Context, path string) (int64, error) {
	db, err := openDB(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = db.Close()
	}()

	var version int64
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, errors.Wrap(err, "read user_version")
	}
	return version, nil
}

// LatestLayer returns the highest layer the database has fully applied.
func LatestLayer(ctx context.Context, path string) (uint32, error) {
	db, err := openDB(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = db.Close()
	}()

	var latest sql.NullInt64
	err = db.QueryRowContext(ctx,
		"SELECT max(id) FROM layers WHERE applied_block IS NOT null").Scan(&latest)
	if err != nil {
		return 0, errors.Wrap(err, "read latest layer")
	}
	if !latest.Valid {
		return 0, nil
	}
	return uint32(latest.Int64), nil
}

// previousHash returns the chain-continuity anchor for a diff starting at
// layer: the first two bytes of the aggregated hash stored at layer-1,
// hex-encoded.
func previousHash(ctx context.Context, db *sql.DB, layer uint32) (string, error) {
	var hash []byte
	err := db.QueryRowContext(ctx,
		"SELECT aggregated_hash FROM layers WHERE id = ?", layer-1).Scan(&hash)
	if err != nil {
		return "", errors.Wrapf(err, "read aggregated hash of layer %d", layer-1)
	}
	if len(hash) < 2 {
		return "", errors.Errorf("aggregated hash of layer %d is too short", layer-1)
	}
	return hex.EncodeToString(hash[:2]), nil
}
