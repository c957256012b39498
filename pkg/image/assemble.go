package image

import (
	"time"

	"plankton/pkg/location"
	"plankton/pkg/log"
	"plankton/pkg/metadata"
	"plankton/pkg/models"
	"plankton/pkg/permissions"
)

// Store is the only supported image store.
const Store = location.Scheme

// StatusAvailable is the status of a freshly registered image.
const StatusAvailable = "available"

// assemble renders object metadata and permissions into an Image.
// deleted is zero unless the image was recovered from a prior version.
func assemble(loc location.Location, meta *models.ObjectMeta, perms models.Permissions, deleted time.Time) *models.Image {
	attrs, properties, _ := metadata.FromStore(meta.Meta)

	created := meta.Modified
	if raw, ok := attrs[metadata.KeyCreatedAt]; ok {
		parsed, err := metadata.ParseTime(raw)
		if err != nil {
			log.Warn().Err(err).Str("location", loc.String()).Msg("Image with unreadable creation time")
		} else {
			created = parsed
		}
	}

	return &models.Image{
		ID:              meta.UUID,
		Location:        loc.String(),
		Owner:           loc.Account,
		Name:            attrs[metadata.KeyName],
		DiskFormat:      attrs[metadata.KeyDiskFormat],
		ContainerFormat: attrs[metadata.KeyContainerFormat],
		Status:          attrs[metadata.KeyStatus],
		Checksum:        meta.Hash,
		Size:            meta.Bytes,
		Store:           Store,
		CreatedAt:       models.NewTimestamp(created),
		UpdatedAt:       models.NewTimestamp(meta.Modified),
		DeletedAt:       models.NewTimestamp(deleted),
		IsPublic:        permissions.IsPublic(perms),
		Properties:      properties,
	}
}
