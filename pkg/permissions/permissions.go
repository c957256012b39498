// Package permissions expresses image visibility and membership as object read permissions.
package permissions

import (
	"fmt"
	"slices"

	"plankton/pkg/errs"
	"plankton/pkg/models"
)

// Wildcard grants read access to any caller; its presence makes an image public.
const Wildcard = "*"

// IsPublic reports whether the wildcard entry is present.
func IsPublic(p models.Permissions) bool {
	return slices.Contains(p.Read, Wildcard)
}

// SetPublic adds or removes the wildcard entry only.
func SetPublic(p models.Permissions, public bool) models.Permissions {
	if public {
		return AddReader(p, Wildcard)
	}
	return RemoveReader(p, Wildcard)
}

// AddReader grants read access to who. Adding an existing reader is a no-op.
func AddReader(p models.Permissions, who string) models.Permissions {
	out := p.Clone()
	if !slices.Contains(out.Read, who) {
		out.Read = append(out.Read, who)
	}
	return out
}

// RemoveReader revokes read access from who. Removing an absent reader is a no-op.
func RemoveReader(p models.Permissions, who string) models.Permissions {
	out := p.Clone()
	out.Read = slices.DeleteFunc(out.Read, func(s string) bool { return s == who })
	return out
}

// ReplaceReaders replaces the named readers with who, keeping the wildcard if p was public.
// Wildcard entries in who are ignored; visibility only changes through SetPublic.
func ReplaceReaders(p models.Permissions, who []string) models.Permissions {
	out := p.Clone()
	out.Read = nil
	for _, user := range who {
		if user == Wildcard || slices.Contains(out.Read, user) {
			continue
		}
		out.Read = append(out.Read, user)
	}
	if IsPublic(p) {
		out.Read = append(out.Read, Wildcard)
	}
	return out
}

// Readers returns the read entries without the wildcard.
func Readers(p models.Permissions) []string {
	readers := make([]string, 0, len(p.Read))
	for _, user := range p.Read {
		if user != Wildcard {
			readers = append(readers, user)
		}
	}
	return readers
}

// Initial returns the permissions of a freshly registered image. A private
// image has no read entries; its owner reads it by virtue of owning the object.
func Initial(public bool) models.Permissions {
	if public {
		return models.Permissions{Read: []string{Wildcard}}
	}
	return models.Permissions{}
}

// CheckSource fails when non-empty permissions were reported for a null path.
func CheckSource(locator, path string, p models.Permissions) error {
	if path == "" && !p.IsEmpty() {
		return fmt.Errorf("%w: image '%s' got permissions from an empty path", errs.ErrInconsistentStore, locator)
	}
	return nil
}
