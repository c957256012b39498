package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"plankton/pkg/log"
	"plankton/pkg/models"
	"plankton/pkg/objectstore"
)

// attributes returns the domain metadata of a version.
func (b *Backend) attributes(ctx context.Context, serial int64, domain string) (map[string]string, error) {
	rows, err := b.q().QueryContext(ctx,
		`SELECT key, value FROM attributes WHERE serial = ? AND domain = ?`,
		serial, domain,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if scanErr := rows.Scan(&key, &value); scanErr != nil {
			return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, scanErr)
		}
		meta[key] = value
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	return meta, nil
}

func (b *Backend) objectMeta(ctx context.Context, row *versionRow, domain string) (*models.ObjectMeta, error) {
	meta, err := b.attributes(ctx, row.serial, domain)
	if err != nil {
		return nil, err
	}
	return &models.ObjectMeta{
		UUID:             row.uuid,
		Hash:             row.hash,
		Bytes:            row.size,
		Version:          row.serial,
		Modified:         row.mtime,
		VersionTimestamp: row.mtime,
		Meta:             meta,
	}, nil
}

// GetObjectMeta returns the metadata of the current or a given version of an object.
func (b *Backend) GetObjectMeta(user, account, container, name, domain string, version int64) (*models.ObjectMeta, error) {
	ctx := context.Background()
	path := joinPath(account, container, name)
	if err := b.checkRead(ctx, user, account, path); err != nil {
		return nil, err
	}

	if version == objectstore.CurrentVersion {
		row, err := b.currentVersion(ctx, path)
		if err != nil {
			return nil, err
		}
		return b.objectMeta(ctx, row, domain)
	}

	row := &versionRow{}
	err := b.q().QueryRowContext(ctx,
		`SELECT serial, uuid, hash, size, mtime, cluster FROM versions
		 WHERE serial = ? AND path = ? AND cluster != ?`,
		version, path, clusterDeleted,
	).Scan(&row.serial, &row.uuid, &row.hash, &row.size, &row.mtime, &row.cluster)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s version %d", objectstore.ErrVersionNotExists, path, version)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	return b.objectMeta(ctx, row, domain)
}

// UpdateObjectMeta creates a new version of an object with its domain metadata
// merged with meta, or replaced by it when replace is set.
func (b *Backend) UpdateObjectMeta(user, account, container, name, domain string, meta map[string]string, replace bool) error {
	ctx := context.Background()
	path := joinPath(account, container, name)
	if err := b.checkWrite(ctx, user, account, path); err != nil {
		return err
	}

	prev, err := b.currentVersion(ctx, path)
	if err != nil {
		return err
	}
	serial, err := b.newVersion(ctx, path, account, prev)
	if err != nil {
		return err
	}

	if replace {
		if _, err := b.q().ExecContext(ctx,
			`DELETE FROM attributes WHERE serial = ? AND domain = ?`, serial, domain,
		); err != nil {
			return fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
		}
	}

	for key, value := range meta {
		if _, err := b.q().ExecContext(ctx,
			`INSERT INTO attributes (serial, domain, key, value) VALUES (?, ?, ?, ?)
			 ON CONFLICT(serial, domain, key) DO UPDATE SET value = excluded.value`,
			serial, domain, key, value,
		); err != nil {
			return fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
		}
	}

	log.Debug().
		Str("path", path).
		Str("domain", domain).
		Int64("version", serial).
		Bool("replace", replace).
		Msg("Object metadata updated")
	return nil
}

// GetDomainObjects returns the current objects carrying metadata in domain
// that user may read. An empty user selects public objects only.
func (b *Backend) GetDomainObjects(domain, user string) ([]models.DomainObject, error) {
	ctx := context.Background()

	rows, err := b.q().QueryContext(ctx,
		`SELECT v.serial, v.path, v.account, v.uuid, v.hash, v.size, v.mtime, v.cluster
		 FROM versions v
		 WHERE v.cluster = ?
		   AND EXISTS (SELECT 1 FROM attributes a WHERE a.serial = v.serial AND a.domain = ?)
		 ORDER BY v.path`,
		clusterNormal, domain,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}

	type candidate struct {
		row     versionRow
		path    string
		account string
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		scanErr := rows.Scan(&c.row.serial, &c.path, &c.account, &c.row.uuid, &c.row.hash, &c.row.size, &c.row.mtime, &c.row.cluster)
		if scanErr != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, scanErr)
		}
		candidates = append(candidates, c)
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	_ = rows.Close()

	objects := make([]models.DomainObject, 0, len(candidates))
	for _, c := range candidates {
		if err := b.checkRead(ctx, user, c.account, c.path); err != nil {
			if errors.Is(err, objectstore.ErrNotAllowed) {
				continue
			}
			return nil, err
		}

		meta, err := b.objectMeta(ctx, &c.row, domain)
		if err != nil {
			return nil, err
		}
		perms, err := b.permissions(ctx, c.path)
		if err != nil {
			return nil, err
		}
		objects = append(objects, models.DomainObject{Path: c.path, Meta: *meta, Permissions: perms})
	}

	return objects, nil
}
