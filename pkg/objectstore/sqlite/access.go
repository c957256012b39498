package sqlite

import (
	"context"
	"fmt"
	"slices"

	"plankton/pkg/models"
	"plankton/pkg/objectstore"
)

const wildcard = "*"

// subjects returns the subjects granted action on path.
func (b *Backend) subjects(ctx context.Context, path, action string) ([]string, error) {
	rows, err := b.q().QueryContext(ctx,
		`SELECT subject FROM permissions WHERE path = ? AND action = ? ORDER BY subject`,
		path, action,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var subjects []string
	for rows.Next() {
		var subject string
		if scanErr := rows.Scan(&subject); scanErr != nil {
			return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, scanErr)
		}
		subjects = append(subjects, subject)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	return subjects, nil
}

func (b *Backend) permissions(ctx context.Context, path string) (models.Permissions, error) {
	read, err := b.subjects(ctx, path, actionRead)
	if err != nil {
		return models.Permissions{}, err
	}
	write, err := b.subjects(ctx, path, actionWrite)
	if err != nil {
		return models.Permissions{}, err
	}
	return models.Permissions{Read: read, Write: write}, nil
}

// checkRead allows the owner, readers, writers and anyone on public paths.
func (b *Backend) checkRead(ctx context.Context, user, account, path string) error {
	if user != "" && user == account {
		return nil
	}
	perms, err := b.permissions(ctx, path)
	if err != nil {
		return err
	}
	if slices.Contains(perms.Read, wildcard) {
		return nil
	}
	if user != "" && (slices.Contains(perms.Read, user) || slices.Contains(perms.Write, user)) {
		return nil
	}
	return fmt.Errorf("%w: %q may not read %s", objectstore.ErrNotAllowed, user, path)
}

// checkWrite allows the owner and writers.
func (b *Backend) checkWrite(ctx context.Context, user, account, path string) error {
	if user != "" && user == account {
		return nil
	}
	write, err := b.subjects(ctx, path, actionWrite)
	if err != nil {
		return err
	}
	if user != "" && (slices.Contains(write, user) || slices.Contains(write, wildcard)) {
		return nil
	}
	return fmt.Errorf("%w: %q may not write %s", objectstore.ErrNotAllowed, user, path)
}

// GetObjectPermissions returns the permissions set on an object.
func (b *Backend) GetObjectPermissions(user, account, container, name string) (string, models.Permissions, error) {
	ctx := context.Background()
	path := joinPath(account, container, name)
	if err := b.checkRead(ctx, user, account, path); err != nil {
		return "", models.Permissions{}, err
	}

	perms, err := b.permissions(ctx, path)
	if err != nil {
		return "", models.Permissions{}, err
	}
	if perms.IsEmpty() {
		return "", perms, nil
	}
	return path, perms, nil
}

// UpdateObjectPermissions replaces the permissions of an existing object. Only the owner may do so.
func (b *Backend) UpdateObjectPermissions(user, account, container, name string, perms models.Permissions) error {
	ctx := context.Background()
	path := joinPath(account, container, name)
	if user == "" || user != account {
		return fmt.Errorf("%w: only the owner may share %s", objectstore.ErrNotAllowed, path)
	}
	if _, err := b.currentVersion(ctx, path); err != nil {
		return err
	}

	if _, err := b.q().ExecContext(ctx, `DELETE FROM permissions WHERE path = ?`, path); err != nil {
		return fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}

	grants := map[string][]string{actionRead: perms.Read, actionWrite: perms.Write}
	for action, subjects := range grants {
		for _, subject := range subjects {
			if subject == "" {
				continue
			}
			if _, err := b.q().ExecContext(ctx,
				`INSERT OR IGNORE INTO permissions (path, action, subject) VALUES (?, ?, ?)`,
				path, action, subject,
			); err != nil {
				return fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
			}
		}
	}
	return nil
}
