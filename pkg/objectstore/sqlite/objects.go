package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"plankton/pkg/models"
	"plankton/pkg/objectstore"
)

type versionRow struct {
	serial  int64
	uuid    string
	hash    string
	size    int64
	mtime   time.Time
	cluster int
}

func joinPath(account, container, name string) string {
	return account + "/" + container + "/" + name
}

func validateHash(hash string) error {
	if len(hash) != hashLength {
		return fmt.Errorf("%w: expected %d hex characters", objectstore.ErrInvalidHash, hashLength)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return fmt.Errorf("%w: %w", objectstore.ErrInvalidHash, err)
	}
	return nil
}

// currentVersion returns the normal version of path.
func (b *Backend) currentVersion(ctx context.Context, path string) (*versionRow, error) {
	row := &versionRow{}
	err := b.q().QueryRowContext(ctx,
		`SELECT serial, uuid, hash, size, mtime, cluster FROM versions
		 WHERE path = ? AND cluster = ? ORDER BY serial DESC LIMIT 1`,
		path, clusterNormal,
	).Scan(&row.serial, &row.uuid, &row.hash, &row.size, &row.mtime, &row.cluster)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", objectstore.ErrItemNotExists, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	return row, nil
}

// newVersion supersedes prev with a copy carrying prev's attributes and a fresh mtime.
func (b *Backend) newVersion(ctx context.Context, path, account string, prev *versionRow) (int64, error) {
	if _, err := b.q().ExecContext(ctx,
		`UPDATE versions SET cluster = ? WHERE serial = ?`, clusterHistory, prev.serial,
	); err != nil {
		return 0, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}

	result, err := b.q().ExecContext(ctx,
		`INSERT INTO versions (path, account, uuid, hash, size, mtime, cluster) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		path, account, prev.uuid, prev.hash, prev.size, time.Now().UTC(), clusterNormal,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	serial, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}

	if _, err := b.q().ExecContext(ctx,
		`INSERT INTO attributes (serial, domain, key, value)
		 SELECT ?, domain, key, value FROM attributes WHERE serial = ?`,
		serial, prev.serial,
	); err != nil {
		return 0, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	return serial, nil
}

// PutObject stores a new current version of an object and returns its identifier.
// Overwriting an object keeps its identifier and metadata.
func (b *Backend) PutObject(user, account, container, name, hash string, size int64) (string, error) {
	if err := validateHash(hash); err != nil {
		return "", err
	}
	if size < 0 {
		return "", fmt.Errorf("%w: negative size", objectstore.ErrDatabase)
	}

	ctx := context.Background()
	path := joinPath(account, container, name)
	if err := b.checkWrite(ctx, user, account, path); err != nil {
		return "", err
	}

	prev, err := b.currentVersion(ctx, path)
	if err != nil && !errors.Is(err, objectstore.ErrItemNotExists) {
		return "", err
	}

	if prev == nil {
		id := uuid.NewString()
		_, err = b.q().ExecContext(ctx,
			`INSERT INTO versions (path, account, uuid, hash, size, mtime, cluster) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			path, account, id, hash, size, time.Now().UTC(), clusterNormal,
		)
		if err != nil {
			return "", fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
		}
		return id, nil
	}

	serial, err := b.newVersion(ctx, path, account, prev)
	if err != nil {
		return "", err
	}
	if _, err := b.q().ExecContext(ctx,
		`UPDATE versions SET hash = ?, size = ? WHERE serial = ?`, hash, size, serial,
	); err != nil {
		return "", fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	return prev.uuid, nil
}

// DeleteObject removes the current version of an object. Its history stays listable.
func (b *Backend) DeleteObject(user, account, container, name string) error {
	ctx := context.Background()
	path := joinPath(account, container, name)
	if err := b.checkWrite(ctx, user, account, path); err != nil {
		return err
	}

	prev, err := b.currentVersion(ctx, path)
	if err != nil {
		return err
	}

	if _, err := b.q().ExecContext(ctx,
		`UPDATE versions SET cluster = ? WHERE serial = ?`, clusterHistory, prev.serial,
	); err != nil {
		return fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	if _, err := b.q().ExecContext(ctx,
		`INSERT INTO versions (path, account, uuid, hash, size, mtime, cluster) VALUES (?, ?, ?, '', 0, ?, ?)`,
		path, account, prev.uuid, time.Now().UTC(), clusterDeleted,
	); err != nil {
		return fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	return nil
}

// GetUUID resolves an object identifier to its path. Identifiers of removed
// objects resolve through their latest historical version.
func (b *Backend) GetUUID(user, id string) (string, string, string, error) {
	ctx := context.Background()

	var path, account string
	err := b.q().QueryRowContext(ctx,
		`SELECT path, account FROM versions WHERE uuid = ? AND cluster != ?
		 ORDER BY cluster ASC, serial DESC LIMIT 1`,
		id, clusterDeleted,
	).Scan(&path, &account)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", "", fmt.Errorf("%w: uuid %s", objectstore.ErrItemNotExists, id)
	}
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}

	if err := b.checkRead(ctx, user, account, path); err != nil {
		return "", "", "", err
	}

	container, name, ok := strings.Cut(strings.TrimPrefix(path, account+"/"), "/")
	if !ok {
		return "", "", "", fmt.Errorf("%w: malformed path %q", objectstore.ErrDatabase, path)
	}
	return account, container, name, nil
}

// ListVersions returns the non-deleted versions of an object, oldest first.
func (b *Backend) ListVersions(user, account, container, name string) ([]models.Version, error) {
	ctx := context.Background()
	path := joinPath(account, container, name)
	if err := b.checkRead(ctx, user, account, path); err != nil {
		return nil, err
	}

	rows, err := b.q().QueryContext(ctx,
		`SELECT serial, mtime FROM versions WHERE path = ? AND cluster != ? ORDER BY serial`,
		path, clusterDeleted,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var versions []models.Version
	for rows.Next() {
		var v models.Version
		if scanErr := rows.Scan(&v.Version, &v.Timestamp); scanErr != nil {
			return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, scanErr)
		}
		versions = append(versions, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}

	return versions, nil
}
