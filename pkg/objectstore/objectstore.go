// Package objectstore defines the contract of the generic versioned object store
// that image backends are built on.
package objectstore

import (
	"errors"

	"plankton/pkg/models"
)

var (
	// ErrNotAllowed is returned when the acting user may not perform the operation.
	ErrNotAllowed = errors.New("not allowed")

	// ErrItemNotExists is returned when the object has no current version.
	ErrItemNotExists = errors.New("object does not exist")

	// ErrVersionNotExists is returned when a requested version does not exist.
	ErrVersionNotExists = errors.New("version does not exist")

	// ErrInvalidHash is returned when a content hash is not a hex SHA-256.
	ErrInvalidHash = errors.New("invalid hash")

	// ErrDatabase is returned when the underlying database fails.
	ErrDatabase = errors.New("database error")

	// ErrTransaction is returned on misuse of PreExec/PostExec.
	ErrTransaction = errors.New("transaction error")
)

// CurrentVersion selects the current version of an object.
const CurrentVersion int64 = 0

// Backend is one connection to the object store. It is not safe for concurrent use.
type Backend interface {
	// GetUUID resolves an object identifier to its path.
	GetUUID(user, uuid string) (account, container, name string, err error)

	// GetObjectMeta returns the metadata of an object version, restricted to domain.
	// version CurrentVersion selects the current version.
	GetObjectMeta(user, account, container, name, domain string, version int64) (*models.ObjectMeta, error)

	// UpdateObjectMeta merges meta into the domain metadata, or replaces it when replace is set.
	UpdateObjectMeta(user, account, container, name, domain string, meta map[string]string, replace bool) error

	// GetObjectPermissions returns the permissions of an object and the path they were set on.
	// path is empty when the object has no permissions of its own.
	GetObjectPermissions(user, account, container, name string) (path string, perms models.Permissions, err error)

	// UpdateObjectPermissions replaces the permissions of an object.
	UpdateObjectPermissions(user, account, container, name string, perms models.Permissions) error

	// ListVersions returns the historical versions of an object, oldest first.
	ListVersions(user, account, container, name string) ([]models.Version, error)

	// GetDomainObjects returns the current objects with metadata in domain that user may read.
	// An empty user selects public objects only.
	GetDomainObjects(domain, user string) ([]models.DomainObject, error)

	// PreExec begins a transaction.
	PreExec() error

	// PostExec commits the transaction when success is set and rolls it back otherwise.
	PostExec(success bool) error

	// Close releases the connection.
	Close() error
}
