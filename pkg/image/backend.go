// Package image manages virtual machine images kept as metadata on object store objects.
package image

import "plankton/pkg/models"

// Backend is the image capability shared by every backend implementation.
// A Backend is bound to one caller and must be closed when the session ends.
type Backend interface {
	// GetImage returns the image with the given id.
	GetImage(id string) (*models.Image, error)

	// Register turns the object at locator into an image.
	Register(name, locator string, params models.ImageParams) (*models.Image, error)

	// UpdateMetadata merges params into an image and returns the refreshed image.
	UpdateMetadata(id string, params models.ImageParams) (*models.Image, error)

	// Unregister strips all image metadata from the underlying object.
	Unregister(id string) error

	// AddUser shares an image with user.
	AddUser(id, user string) error

	// RemoveUser stops sharing an image with user.
	RemoveUser(id, user string) error

	// ReplaceUsers replaces the members of an image, keeping its visibility.
	ReplaceUsers(id string, users []string) error

	// ListUsers returns the members of an image.
	ListUsers(id string) ([]string, error)

	// ListImages returns the images visible to the caller.
	ListImages(filters models.ListFilters, params models.ListParams) ([]models.Image, error)

	// ListSharedImages returns the private images owned by member that the caller can see.
	ListSharedImages(member string, filters models.ListFilters, params models.ListParams) ([]models.Image, error)

	// ListPublicImages returns the public images of all accounts.
	ListPublicImages(filters models.ListFilters, params models.ListParams) ([]models.Image, error)

	// Close ends the session.
	Close() error
}

// Provider opens per-caller backends. It is created once at startup.
type Provider interface {
	Open(user string) (Backend, error)
	Close() error
}
