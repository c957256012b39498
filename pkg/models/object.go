package models

import "time"

// ObjectMeta is the metadata of one object version as reported by the object store.
type ObjectMeta struct {
	UUID             string            `json:"uuid"`
	Hash             string            `json:"hash"`
	Bytes            int64             `json:"bytes"`
	Version          int64             `json:"version"`
	Modified         time.Time         `json:"modified"`
	VersionTimestamp time.Time         `json:"version_timestamp"`
	Meta             map[string]string `json:"meta,omitempty"`
}

// Permissions holds the subjects granted access to an object, per action.
type Permissions struct {
	Read  []string `json:"read,omitempty"`
	Write []string `json:"write,omitempty"`
}

// IsEmpty reports whether no subject is granted anything.
func (p Permissions) IsEmpty() bool {
	return len(p.Read) == 0 && len(p.Write) == 0
}

// Clone returns a deep copy.
func (p Permissions) Clone() Permissions {
	return Permissions{
		Read:  append([]string(nil), p.Read...),
		Write: append([]string(nil), p.Write...),
	}
}

// Version is one historical snapshot of an object.
type Version struct {
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// DomainObject is an object carrying metadata in a given domain, as returned by listings.
type DomainObject struct {
	Path        string      `json:"path"`
	Meta        ObjectMeta  `json:"meta"`
	Permissions Permissions `json:"permissions"`
}
