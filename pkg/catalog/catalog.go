// Package catalog serves a fixed list of images from a JSON document.
// It backs deployments without an object store; all mutations are refused.
package catalog

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"

	"plankton/pkg/config"
	"plankton/pkg/errs"
	"plankton/pkg/image"
	"plankton/pkg/log"
	"plankton/pkg/models"
)

func init() {
	image.Register(config.BackendCatalog, func(cfg *config.Config) (image.Provider, error) {
		return Load(cfg.Catalog.File)
	})
}

// Catalog is a read-only image backend. The same Catalog serves every caller.
type Catalog struct {
	images []models.Image
}

var (
	_ image.Backend  = (*Catalog)(nil)
	_ image.Provider = (*Catalog)(nil)
)

// New returns a catalog of images.
func New(images []models.Image) *Catalog {
	return &Catalog{images: images}
}

// Load reads a catalog document: a JSON array of images in their rendered form.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var images []models.Image
	if err := json.Unmarshal(data, &images); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	log.Info().Str("file", path).Int("images", len(images)).Msg("Image catalog loaded")
	return New(images), nil
}

// Open returns the catalog itself; it holds no per-caller state.
func (c *Catalog) Open(string) (image.Backend, error) {
	return c, nil
}

// Close is a no-op.
func (c *Catalog) Close() error {
	return nil
}

// GetImage scans the catalog for id.
func (c *Catalog) GetImage(id string) (*models.Image, error) {
	for i := range c.images {
		if c.images[i].ID == id {
			img := clone(c.images[i])
			return &img, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errs.ErrImageNotFound, id)
}

// ListImages returns the catalog in document order. Filters apply; the order
// only changes when a sort key or direction is requested.
func (c *Catalog) ListImages(filters models.ListFilters, params models.ListParams) ([]models.Image, error) {
	return c.list(filters, params, nil)
}

func (c *Catalog) ListSharedImages(member string, filters models.ListFilters, params models.ListParams) ([]models.Image, error) {
	return c.list(filters, params, func(img *models.Image) bool {
		return !img.IsPublic && img.Owner == member
	})
}

func (c *Catalog) ListPublicImages(filters models.ListFilters, params models.ListParams) ([]models.Image, error) {
	return c.list(filters, params, func(img *models.Image) bool {
		return img.IsPublic
	})
}

func (c *Catalog) list(filters models.ListFilters, params models.ListParams, keep func(*models.Image) bool) ([]models.Image, error) {
	images := image.FilterImages(c.images, filters, keep)
	for i := range images {
		images[i] = clone(images[i])
	}
	if params.SortKey != "" || params.SortDir != "" {
		if err := image.SortImages(images, params); err != nil {
			return nil, err
		}
	}
	return images, nil
}

func (c *Catalog) Register(string, string, models.ImageParams) (*models.Image, error) {
	return nil, notSupported("register")
}

func (c *Catalog) UpdateMetadata(string, models.ImageParams) (*models.Image, error) {
	return nil, notSupported("update metadata")
}

func (c *Catalog) Unregister(string) error {
	return notSupported("unregister")
}

func (c *Catalog) AddUser(string, string) error {
	return notSupported("add user")
}

func (c *Catalog) RemoveUser(string, string) error {
	return notSupported("remove user")
}

func (c *Catalog) ReplaceUsers(string, []string) error {
	return notSupported("replace users")
}

func (c *Catalog) ListUsers(string) ([]string, error) {
	return nil, notSupported("list users")
}

func notSupported(op string) error {
	return fmt.Errorf("%w: %s on a static catalog", errs.ErrNotSupported, op)
}

func clone(img models.Image) models.Image {
	img.Properties = maps.Clone(img.Properties)
	return img
}
