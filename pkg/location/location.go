// Package location encodes object coordinates into image locators.
//
// A locator has the form pithos://<account>/<container>/<name>. The object name
// may itself contain slashes; account and container may not.
package location

import (
	"fmt"
	"strings"

	"plankton/pkg/errs"
)

// Scheme is the locator scheme of the only supported store.
const Scheme = "pithos"

const (
	separator = "/"
	// "pithos:", "", account, container, name.
	locatorParts = 5
)

// Location is a decoded locator.
type Location struct {
	Account   string
	Container string
	Name      string
}

// String returns the encoded locator.
func (l Location) String() string {
	return Scheme + "://" + l.Account + separator + l.Container + separator + l.Name
}

// Path returns the account/container/name path as used by the object store.
func (l Location) Path() string {
	return l.Account + separator + l.Container + separator + l.Name
}

// Encode builds a locator from its three parts.
func Encode(account, container, name string) (string, error) {
	if strings.Contains(account, separator) {
		return "", fmt.Errorf("%w: account %q contains %q", errs.ErrInvalidLocation, account, separator)
	}
	if strings.Contains(container, separator) {
		return "", fmt.Errorf("%w: container %q contains %q", errs.ErrInvalidLocation, container, separator)
	}
	return Location{Account: account, Container: container, Name: name}.String(), nil
}

// Decode splits a locator into account, container and name.
func Decode(locator string) (Location, error) {
	parts := strings.SplitN(locator, separator, locatorParts)
	if len(parts) != locatorParts || parts[0] != Scheme+":" || parts[1] != "" {
		return Location{}, fmt.Errorf("%w: '%s'", errs.ErrInvalidLocation, locator)
	}
	return Location{Account: parts[2], Container: parts[3], Name: parts[4]}, nil
}

// FromPath converts a store path (account/container/name) into a Location.
func FromPath(path string) (Location, error) {
	return Decode(Scheme + "://" + path)
}
