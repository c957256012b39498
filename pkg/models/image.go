package models

// Image is the logical image entity. It is never persisted directly; it is
// assembled from object store metadata and permissions on every read.
type Image struct {
	ID              string            `json:"id"`
	Location        string            `json:"location"`
	Owner           string            `json:"owner"`
	Name            string            `json:"name"`
	DiskFormat      string            `json:"disk_format"`
	ContainerFormat string            `json:"container_format"`
	Status          string            `json:"status"`
	Checksum        string            `json:"checksum"`
	Size            int64             `json:"size"`
	Store           string            `json:"store"`
	CreatedAt       Timestamp         `json:"created_at"`
	UpdatedAt       Timestamp         `json:"updated_at"`
	DeletedAt       Timestamp         `json:"deleted_at"`
	IsPublic        bool              `json:"is_public"`
	Properties      map[string]string `json:"properties"`
}

// ToMap renders the image as a flat dictionary with formatted timestamps.
func (i *Image) ToMap() map[string]any {
	properties := make(map[string]string, len(i.Properties))
	for k, v := range i.Properties {
		properties[k] = v
	}
	return map[string]any{
		"id":               i.ID,
		"location":         i.Location,
		"owner":            i.Owner,
		"name":             i.Name,
		"disk_format":      i.DiskFormat,
		"container_format": i.ContainerFormat,
		"status":           i.Status,
		"checksum":         i.Checksum,
		"size":             i.Size,
		"store":            i.Store,
		"created_at":       i.CreatedAt.String(),
		"updated_at":       i.UpdatedAt.String(),
		"deleted_at":       i.DeletedAt.String(),
		"is_public":        i.IsPublic,
		"properties":       properties,
	}
}

// ImageParams carries caller supplied attributes for register and update.
// Nil fields are treated as absent.
type ImageParams struct {
	ID              *string
	Store           *string
	Name            *string
	DiskFormat      *string
	ContainerFormat *string
	Status          *string
	Size            *int64
	Checksum        *string
	IsPublic        *bool
	Properties      map[string]string
}

// ListFilters narrows image listings. Empty fields do not filter.
type ListFilters struct {
	Name            string
	DiskFormat      string
	ContainerFormat string
	Status          string
	SizeMin         int64
	SizeMax         int64
}

// ListParams selects the ordering of image listings.
type ListParams struct {
	SortKey string
	SortDir string
}
