package image

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"plankton/pkg/config"
	"plankton/pkg/errs"
	"plankton/pkg/location"
	"plankton/pkg/log"
	"plankton/pkg/metadata"
	"plankton/pkg/models"
	"plankton/pkg/objectstore"
	"plankton/pkg/permissions"
	"plankton/pkg/transaction"
)

// StoreBackend keeps images as metadata on object store objects. Every public
// method runs in exactly one store transaction.
type StoreBackend struct {
	user    string
	backend objectstore.Backend
	mapper  metadata.Mapper
	formats config.FormatsConfig
	now     func() time.Time
}

var _ Backend = (*StoreBackend)(nil)

// NewStoreBackend binds a store connection to user. Closing the StoreBackend closes the connection.
func NewStoreBackend(user string, backend objectstore.Backend, cfg *config.Config) *StoreBackend {
	return &StoreBackend{
		user:    user,
		backend: backend,
		mapper:  cfg.Mapper(),
		formats: cfg.Formats,
		now:     time.Now,
	}
}

// Close returns the store connection.
func (b *StoreBackend) Close() error {
	return b.backend.Close()
}

// GetImage returns the image with the given id.
func (b *StoreBackend) GetImage(id string) (*models.Image, error) {
	return transaction.Run(b.backend, func() (*models.Image, error) {
		loc, err := b.imageLocation(id)
		if err != nil {
			return nil, err
		}
		return b.getImage(loc)
	})
}

// Register turns the object at locator into an image owned by its account.
func (b *StoreBackend) Register(name, locator string, params models.ImageParams) (*models.Image, error) {
	return transaction.Run(b.backend, func() (*models.Image, error) {
		if params.ID != nil {
			return nil, fmt.Errorf("%w: passing an ID is not supported", errs.ErrInvalidValue)
		}
		if err := checkStore(params.Store); err != nil {
			return nil, err
		}
		diskFormat, err := b.diskFormat(params.DiskFormat)
		if err != nil {
			return nil, err
		}
		containerFormat, err := b.containerFormat(params.ContainerFormat)
		if err != nil {
			return nil, err
		}

		loc, err := location.Decode(locator)
		if err != nil {
			return nil, err
		}
		meta, err := b.getMeta(loc, objectstore.CurrentVersion)
		if err != nil {
			return nil, err
		}
		if err := checkDerived(params, meta); err != nil {
			return nil, err
		}

		status := StatusAvailable
		if params.Status != nil {
			status = *params.Status
		}
		attrs := map[string]string{
			metadata.KeyName:            name,
			metadata.KeyDiskFormat:      diskFormat,
			metadata.KeyContainerFormat: containerFormat,
			metadata.KeyStatus:          status,
			metadata.KeyCreatedAt:       metadata.FormatTime(b.now()),
		}
		public := params.IsPublic != nil && *params.IsPublic

		if err := b.updateMeta(loc, attrs, params.Properties, false); err != nil {
			return nil, err
		}
		if err := b.updatePermissions(loc, permissions.Initial(public)); err != nil {
			return nil, err
		}

		log.Debug().Str("user", b.user).Str("location", loc.String()).Str("name", name).Msg("Image registered")
		return b.getImage(loc)
	})
}

// UpdateMetadata merges params into an image. Visibility is applied first,
// then reserved attributes and properties are merged into the existing metadata.
func (b *StoreBackend) UpdateMetadata(id string, params models.ImageParams) (*models.Image, error) {
	return transaction.Run(b.backend, func() (*models.Image, error) {
		loc, err := b.imageLocation(id)
		if err != nil {
			return nil, err
		}
		if _, err := b.getImage(loc); err != nil {
			return nil, err
		}

		if err := checkStore(params.Store); err != nil {
			return nil, err
		}
		if params.DiskFormat != nil {
			if _, err := b.diskFormat(params.DiskFormat); err != nil {
				return nil, err
			}
		}
		if params.ContainerFormat != nil {
			if _, err := b.containerFormat(params.ContainerFormat); err != nil {
				return nil, err
			}
		}
		if params.Size != nil || params.Checksum != nil {
			meta, err := b.getMeta(loc, objectstore.CurrentVersion)
			if err != nil {
				return nil, err
			}
			if err := checkDerived(params, meta); err != nil {
				return nil, err
			}
		}

		if params.IsPublic != nil {
			perms, err := b.getPermissions(loc)
			if err != nil {
				return nil, err
			}
			if err := b.updatePermissions(loc, permissions.SetPublic(perms, *params.IsPublic)); err != nil {
				return nil, err
			}
		}

		attrs := make(map[string]string)
		setAttr(attrs, metadata.KeyName, params.Name)
		setAttr(attrs, metadata.KeyDiskFormat, params.DiskFormat)
		setAttr(attrs, metadata.KeyContainerFormat, params.ContainerFormat)
		setAttr(attrs, metadata.KeyStatus, params.Status)
		if err := b.updateMeta(loc, attrs, params.Properties, false); err != nil {
			return nil, err
		}

		return b.getImage(loc)
	})
}

// Unregister removes every image key from the object, leaving the object and
// metadata of other domains in place.
func (b *StoreBackend) Unregister(id string) error {
	return transaction.Do(b.backend, func() error {
		loc, err := b.imageLocation(id)
		if err != nil {
			return err
		}
		if _, err := b.getImage(loc); err != nil {
			return err
		}
		if err := b.updateMeta(loc, nil, nil, true); err != nil {
			return err
		}
		log.Debug().Str("user", b.user).Str("location", loc.String()).Msg("Image unregistered")
		return nil
	})
}

// AddUser grants user read access to an image.
func (b *StoreBackend) AddUser(id, user string) error {
	if user == "" {
		return fmt.Errorf("%w: empty user", errs.ErrInvalidValue)
	}
	return b.changeReaders(id, func(perms models.Permissions) models.Permissions {
		return permissions.AddReader(perms, user)
	})
}

// RemoveUser revokes read access from user. Removing a non-member is a no-op.
func (b *StoreBackend) RemoveUser(id, user string) error {
	if user == "" {
		return fmt.Errorf("%w: empty user", errs.ErrInvalidValue)
	}
	return b.changeReaders(id, func(perms models.Permissions) models.Permissions {
		return permissions.RemoveReader(perms, user)
	})
}

// ReplaceUsers replaces the members of an image, keeping it public if it was.
func (b *StoreBackend) ReplaceUsers(id string, users []string) error {
	if slices.Contains(users, "") {
		return fmt.Errorf("%w: empty user in member list", errs.ErrInvalidValue)
	}
	return b.changeReaders(id, func(perms models.Permissions) models.Permissions {
		return permissions.ReplaceReaders(perms, users)
	})
}

// ListUsers returns the members of an image, without the public wildcard.
func (b *StoreBackend) ListUsers(id string) ([]string, error) {
	return transaction.Run(b.backend, func() ([]string, error) {
		loc, err := b.imageLocation(id)
		if err != nil {
			return nil, err
		}
		if _, err := b.getImage(loc); err != nil {
			return nil, err
		}
		perms, err := b.getPermissions(loc)
		if err != nil {
			return nil, err
		}
		return permissions.Readers(perms), nil
	})
}

// ListImages returns the images owned by, shared with, or public to the caller.
func (b *StoreBackend) ListImages(filters models.ListFilters, params models.ListParams) ([]models.Image, error) {
	return transaction.Run(b.backend, func() ([]models.Image, error) {
		return b.listImages(b.user, filters, params, nil)
	})
}

// ListSharedImages returns the private images of member visible to the caller.
func (b *StoreBackend) ListSharedImages(member string, filters models.ListFilters, params models.ListParams) ([]models.Image, error) {
	return transaction.Run(b.backend, func() ([]models.Image, error) {
		return b.listImages(b.user, filters, params, func(img *models.Image) bool {
			return !img.IsPublic && img.Owner == member
		})
	})
}

// ListPublicImages returns the public images of all accounts.
func (b *StoreBackend) ListPublicImages(filters models.ListFilters, params models.ListParams) ([]models.Image, error) {
	return transaction.Run(b.backend, func() ([]models.Image, error) {
		return b.listImages("", filters, params, func(img *models.Image) bool {
			return img.IsPublic
		})
	})
}

func (b *StoreBackend) listImages(user string, filters models.ListFilters, params models.ListParams, keep func(*models.Image) bool) ([]models.Image, error) {
	compare, err := ordering(params)
	if err != nil {
		return nil, err
	}

	objects, err := b.backend.GetDomainObjects(metadata.Domain, user)
	if err != nil {
		return nil, err
	}

	images := make([]models.Image, 0, len(objects))
	for i := range objects {
		obj := &objects[i]
		loc, err := location.FromPath(obj.Path)
		if err != nil {
			return nil, err
		}
		if _, _, ok := metadata.FromStore(obj.Meta.Meta); !ok {
			log.Warn().Str("location", loc.String()).Msg("Skipping object without image name")
			continue
		}
		meta := obj.Meta
		meta.Modified = meta.VersionTimestamp
		images = append(images, *assemble(loc, &meta, obj.Permissions, time.Time{}))
	}

	images = FilterImages(images, filters, keep)
	slices.SortStableFunc(images, func(a, b models.Image) int { return compare(&a, &b) })
	return images, nil
}

// changeReaders applies change to the read permissions of an image, writing only on change.
func (b *StoreBackend) changeReaders(id string, change func(models.Permissions) models.Permissions) error {
	return transaction.Do(b.backend, func() error {
		loc, err := b.imageLocation(id)
		if err != nil {
			return err
		}
		if _, err := b.getImage(loc); err != nil {
			return err
		}
		perms, err := b.getPermissions(loc)
		if err != nil {
			return err
		}
		updated := change(perms)
		if slices.Equal(perms.Read, updated.Read) {
			return nil
		}
		return b.updatePermissions(loc, updated)
	})
}

// imageLocation resolves an image id to its location.
func (b *StoreBackend) imageLocation(id string) (location.Location, error) {
	account, container, name, err := b.backend.GetUUID(b.user, id)
	if err != nil {
		return location.Location{}, err
	}
	locator, err := location.Encode(account, container, name)
	if err != nil {
		return location.Location{}, err
	}
	return location.Decode(locator)
}

// getImage assembles the image at loc. A removed object is rendered from its
// latest prior version, with the deletion time set to that version's timestamp.
func (b *StoreBackend) getImage(loc location.Location) (*models.Image, error) {
	var deleted time.Time
	meta, err := b.getMeta(loc, objectstore.CurrentVersion)
	if errors.Is(err, objectstore.ErrItemNotExists) {
		versions, verr := b.backend.ListVersions(b.user, loc.Account, loc.Container, loc.Name)
		if verr != nil {
			return nil, verr
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("%w: image without versions %s", errs.ErrImageNotFound, loc)
		}
		last := versions[len(versions)-1]
		meta, err = b.getMeta(loc, last.Version)
		deleted = last.Timestamp
	}
	if err != nil {
		return nil, err
	}

	// The store reports common metadata for any object; only named ones are images.
	if _, ok := meta.Meta[metadata.Prefix+metadata.KeyName]; !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrImageNotFound, loc)
	}

	perms, err := b.getPermissions(loc)
	if err != nil {
		return nil, err
	}
	return assemble(loc, meta, perms, deleted), nil
}

func (b *StoreBackend) getMeta(loc location.Location, version int64) (*models.ObjectMeta, error) {
	return b.backend.GetObjectMeta(b.user, loc.Account, loc.Container, loc.Name, metadata.Domain, version)
}

func (b *StoreBackend) updateMeta(loc location.Location, attrs, properties map[string]string, replace bool) error {
	prefixed, err := b.mapper.ToStore(attrs, properties)
	if err != nil {
		return err
	}
	if err := b.backend.UpdateObjectMeta(b.user, loc.Account, loc.Container, loc.Name, metadata.Domain, prefixed, replace); err != nil {
		return err
	}
	log.Debug().Str("user", b.user).Str("location", loc.String()).Interface("meta", prefixed).Msg("Image metadata updated")
	return nil
}

func (b *StoreBackend) getPermissions(loc location.Location) (models.Permissions, error) {
	path, perms, err := b.backend.GetObjectPermissions(b.user, loc.Account, loc.Container, loc.Name)
	if err != nil {
		return models.Permissions{}, err
	}
	if err := permissions.CheckSource(loc.String(), path, perms); err != nil {
		log.Warn().Str("location", loc.String()).Interface("permissions", perms).Msg("Image got permissions from an empty path")
		return models.Permissions{}, err
	}
	return perms, nil
}

func (b *StoreBackend) updatePermissions(loc location.Location, perms models.Permissions) error {
	if err := b.backend.UpdateObjectPermissions(b.user, loc.Account, loc.Container, loc.Name, perms); err != nil {
		return err
	}
	log.Debug().Str("user", b.user).Str("location", loc.String()).Interface("permissions", perms).Msg("Image permissions updated")
	return nil
}

func (b *StoreBackend) diskFormat(requested *string) (string, error) {
	return pickFormat("disk", requested, b.formats.Disk)
}

func (b *StoreBackend) containerFormat(requested *string) (string, error) {
	return pickFormat("container", requested, b.formats.Container)
}

func pickFormat(kind string, requested *string, formats config.Formats) (string, error) {
	format := formats.Default
	if requested != nil {
		format = *requested
	}
	if !slices.Contains(formats.Allowed, format) {
		return "", fmt.Errorf("%w: invalid %s format '%s'", errs.ErrInvalidValue, kind, format)
	}
	return format, nil
}

func checkStore(requested *string) error {
	if requested != nil && *requested != Store {
		return fmt.Errorf("%w: invalid store '%s', only '%s' store is supported", errs.ErrInvalidValue, *requested, Store)
	}
	return nil
}

// checkDerived compares caller supplied size and checksum with the store's values.
// An absent caller value accepts the store's; an object without content cannot
// be vouched for; anything else must match exactly.
func checkDerived(params models.ImageParams, meta *models.ObjectMeta) error {
	hasContent := meta.Hash != ""
	if params.Size != nil {
		if !hasContent {
			return fmt.Errorf("%w: object has no size yet", errs.ErrInvalidValue)
		}
		if *params.Size != meta.Bytes {
			return fmt.Errorf("%w: invalid size %d", errs.ErrInvalidValue, *params.Size)
		}
	}
	if params.Checksum != nil {
		if !hasContent {
			return fmt.Errorf("%w: object has no checksum yet", errs.ErrInvalidValue)
		}
		if *params.Checksum != meta.Hash {
			return fmt.Errorf("%w: invalid checksum", errs.ErrInvalidValue)
		}
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value *string) {
	if value != nil {
		attrs[key] = *value
	}
}
