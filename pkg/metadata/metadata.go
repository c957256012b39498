// Package metadata maps image attributes onto namespaced object store metadata.
//
// Reserved attributes are stored as "plankton:<key>", user properties as
// "plankton:property:<key>", all within the "plankton" domain.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"plankton/pkg/errs"
)

const (
	// Domain is the object store domain holding image metadata.
	Domain = "plankton"
	// Prefix tags every image key within the domain.
	Prefix = "plankton:"
	// PropertyPrefix tags user defined properties, after Prefix.
	PropertyPrefix = "property:"
)

// Reserved attribute names.
const (
	KeyName            = "name"
	KeyDiskFormat      = "disk_format"
	KeyContainerFormat = "container_format"
	KeyStatus          = "status"
	KeyCreatedAt       = "created_at"
)

const (
	// DefaultMaxKeyLength bounds a prefixed key.
	DefaultMaxKeyLength = 128
	// DefaultMaxValueLength bounds a value.
	DefaultMaxValueLength = 256
)

var reserved = map[string]bool{
	KeyName:            true,
	KeyDiskFormat:      true,
	KeyContainerFormat: true,
	KeyStatus:          true,
	KeyCreatedAt:       true,
}

// IsReserved reports whether key is a recognized image attribute.
func IsReserved(key string) bool {
	return reserved[key]
}

// Mapper converts between image attributes and flat store metadata.
type Mapper struct {
	MaxKeyLength   int
	MaxValueLength int
}

// NewMapper returns a Mapper with the given limits, falling back to the defaults for non-positive values.
func NewMapper(maxKeyLength, maxValueLength int) Mapper {
	if maxKeyLength <= 0 {
		maxKeyLength = DefaultMaxKeyLength
	}
	if maxValueLength <= 0 {
		maxValueLength = DefaultMaxValueLength
	}
	return Mapper{MaxKeyLength: maxKeyLength, MaxValueLength: maxValueLength}
}

// ToStore prefixes reserved attributes and properties. Attributes outside the
// reserved set are dropped. Any key or value over its limit fails the whole mapping.
func (m Mapper) ToStore(attrs, properties map[string]string) (map[string]string, error) {
	prefixed := make(map[string]string, len(attrs)+len(properties))
	for k, v := range attrs {
		if !IsReserved(k) {
			continue
		}
		prefixed[Prefix+k] = v
	}
	for k, v := range properties {
		prefixed[Prefix+PropertyPrefix+k] = v
	}

	for k, v := range prefixed {
		if len(k) > m.MaxKeyLength {
			return nil, fmt.Errorf("%w: metadata keys should be less than %d characters",
				errs.ErrInvalidMetadata, m.maxPropertyKeyLength())
		}
		if len(v) > m.MaxValueLength {
			return nil, fmt.Errorf("%w: metadata values should be less than %d characters",
				errs.ErrInvalidMetadata, m.MaxValueLength)
		}
	}
	return prefixed, nil
}

// maxPropertyKeyLength is the limit as seen by a caller naming a property.
func (m Mapper) maxPropertyKeyLength() int {
	return m.MaxKeyLength - len(Prefix) - len(PropertyPrefix)
}

// FromStore splits store metadata into reserved attributes and properties.
// Keys outside the image namespace are ignored. ok is false when the
// metadata lacks the name attribute, meaning the object is not an image.
func FromStore(meta map[string]string) (attrs, properties map[string]string, ok bool) {
	attrs = make(map[string]string)
	properties = make(map[string]string)
	for k, v := range meta {
		if !strings.HasPrefix(k, Prefix) {
			continue
		}
		k = strings.TrimPrefix(k, Prefix)
		switch {
		case IsReserved(k):
			attrs[k] = v
		case strings.HasPrefix(k, PropertyPrefix):
			properties[strings.TrimPrefix(k, PropertyPrefix)] = v
		}
	}
	_, ok = attrs[KeyName]
	return attrs, properties, ok
}

// FormatTime renders t as fractional unix seconds for storage.
func FormatTime(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/float64(time.Second), 'f', 6, 64)
}

// ParseTime parses a value produced by FormatTime.
func ParseTime(value string) (time.Time, error) {
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", errs.ErrInvalidMetadata, value)
	}
	whole := int64(secs)
	frac := int64((secs - float64(whole)) * float64(time.Second))
	return time.Unix(whole, frac).UTC(), nil
}
