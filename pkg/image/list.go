package image

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"plankton/pkg/errs"
	"plankton/pkg/models"
)

// Sort defaults.
const (
	DefaultSortKey = "created_at"
	SortAsc        = "asc"
	SortDesc       = "desc"
)

type comparator func(a, b *models.Image) int

var sortKeys = map[string]comparator{
	"created_at":       func(a, b *models.Image) int { return a.CreatedAt.Compare(b.CreatedAt.Time) },
	"updated_at":       func(a, b *models.Image) int { return a.UpdatedAt.Compare(b.UpdatedAt.Time) },
	"deleted_at":       func(a, b *models.Image) int { return a.DeletedAt.Compare(b.DeletedAt.Time) },
	"name":             func(a, b *models.Image) int { return strings.Compare(a.Name, b.Name) },
	"size":             func(a, b *models.Image) int { return cmp.Compare(a.Size, b.Size) },
	"disk_format":      func(a, b *models.Image) int { return strings.Compare(a.DiskFormat, b.DiskFormat) },
	"container_format": func(a, b *models.Image) int { return strings.Compare(a.ContainerFormat, b.ContainerFormat) },
	"status":           func(a, b *models.Image) int { return strings.Compare(a.Status, b.Status) },
	"id":               func(a, b *models.Image) int { return strings.Compare(a.ID, b.ID) },
	"owner":            func(a, b *models.Image) int { return strings.Compare(a.Owner, b.Owner) },
}

// ordering resolves list params into a comparator, applying the defaults.
func ordering(params models.ListParams) (comparator, error) {
	key := params.SortKey
	if key == "" {
		key = DefaultSortKey
	}
	compare, ok := sortKeys[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort key %q", errs.ErrInvalidValue, key)
	}

	switch params.SortDir {
	case "", SortDesc:
		return func(a, b *models.Image) int { return compare(b, a) }, nil
	case SortAsc:
		return compare, nil
	default:
		return nil, fmt.Errorf("%w: unknown sort direction %q", errs.ErrInvalidValue, params.SortDir)
	}
}

// SortImages orders images in place by the key and direction in params.
func SortImages(images []models.Image, params models.ListParams) error {
	compare, err := ordering(params)
	if err != nil {
		return err
	}
	slices.SortStableFunc(images, func(a, b models.Image) int { return compare(&a, &b) })
	return nil
}

// Matches reports whether img passes every set filter.
func Matches(img *models.Image, filters models.ListFilters) bool {
	switch {
	case filters.Name != "" && img.Name != filters.Name:
		return false
	case filters.DiskFormat != "" && img.DiskFormat != filters.DiskFormat:
		return false
	case filters.ContainerFormat != "" && img.ContainerFormat != filters.ContainerFormat:
		return false
	case filters.Status != "" && img.Status != filters.Status:
		return false
	case filters.SizeMin > 0 && img.Size < filters.SizeMin:
		return false
	case filters.SizeMax > 0 && img.Size > filters.SizeMax:
		return false
	}
	return true
}

// FilterImages returns the images passing filters and keep.
func FilterImages(images []models.Image, filters models.ListFilters, keep func(*models.Image) bool) []models.Image {
	out := make([]models.Image, 0, len(images))
	for i := range images {
		if !Matches(&images[i], filters) {
			continue
		}
		if keep != nil && !keep(&images[i]) {
			continue
		}
		out = append(out, images[i])
	}
	return out
}
