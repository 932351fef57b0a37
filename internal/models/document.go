package models

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Document is the envelope of a dictionary or type document.
type Document struct {
	FileName string `yaml:"file_name" json:"file_name"`
	Locked   bool   `yaml:"_locked" json:"_locked"`
	// Version is derived from FileName and is not stored in the body.
	Version ConfigVersion `yaml:"-" json:"version"`
	Root    *PropertyNode `yaml:"root" json:"root"`
}

// IsLocked reports the document's lock flag.
func (d *Document) IsLocked() bool { return d.Locked }

// SetLocked sets the document's lock flag.
func (d *Document) SetLocked(locked bool) { d.Locked = locked }

// Clone deep-copies the document.
func (d *Document) Clone() *Document {
	c := *d
	c.Root = d.Root.Clone()
	return &c
}

// Enumeration maps enumeration values to their descriptions.
type Enumeration = orderedmap.OrderedMap[string, string]

// Enumerations maps enumeration names to their values, in order.
type Enumerations = orderedmap.OrderedMap[string, *Enumeration]

// NewEnumerations returns an empty enumeration set.
func NewEnumerations() *Enumerations {
	return orderedmap.New[string, *Enumeration]()
}

// NewEnumeration returns an empty value map.
func NewEnumeration() *Enumeration {
	return orderedmap.New[string, string]()
}

// CloneEnumerations deep-copies e.
func CloneEnumerations(e *Enumerations) *Enumerations {
	out := NewEnumerations()
	if e == nil {
		return out
	}
	for pair := e.Oldest(); pair != nil; pair = pair.Next() {
		values := NewEnumeration()
		if pair.Value != nil {
			for v := pair.Value.Oldest(); v != nil; v = v.Next() {
				values.Set(v.Key, v.Value)
			}
		}
		out.Set(pair.Key, values)
	}
	return out
}

// EnumerationValues returns the values of the named enumeration in order.
func EnumerationValues(e *Enumerations, name string) ([]string, bool) {
	if e == nil {
		return nil, false
	}
	values, ok := e.Get(name)
	if !ok {
		return nil, false
	}
	var out []string
	if values != nil {
		for v := values.Oldest(); v != nil; v = v.Next() {
			out = append(out, v.Key)
		}
	}
	return out, true
}

// EnumeratorDocument holds every enumeration of one enumerator version.
type EnumeratorDocument struct {
	FileName string `yaml:"file_name" json:"file_name"`
	// Version is derived from FileName and is not stored in the body.
	Version      int           `yaml:"-" json:"version"`
	Locked       bool          `yaml:"_locked" json:"_locked"`
	Enumerations *Enumerations `yaml:"enumerations" json:"enumerations"`
}

// IsLocked reports the document's lock flag.
func (d *EnumeratorDocument) IsLocked() bool { return d.Locked }

// SetLocked sets the document's lock flag.
func (d *EnumeratorDocument) SetLocked(locked bool) { d.Locked = locked }

// Clone deep-copies the document.
func (d *EnumeratorDocument) Clone() *EnumeratorDocument {
	c := *d
	c.Enumerations = CloneEnumerations(d.Enumerations)
	return &c
}

// Listing is the summary of one stored document.
type Listing struct {
	FileName  string    `json:"file_name"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Locked    bool      `json:"locked"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileMetadata describes a stored file without decoding it.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
