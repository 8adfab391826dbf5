// Package codec implements the payload codec contract: a pure, deterministic
// mapping between an in-memory Value and the bytes a record log stores.
// Decode failures are reported as ErrBadPayload so callers can distinguish
// "this isn't a payload we wrote" from an I/O error.
package codec

import "errors"

// ErrBadPayload indicates FromBytes was given data that does not decode to
// a well-formed Value.
var ErrBadPayload = errors.New("codec: payload is not a well-formed document")

// Attr is a single XML-style attribute. Attrs are stored as an ordered
// slice (not a map) so that ToBytes is deterministic for a given Value.
type Attr struct {
	Key   string
	Value string
}

// Value is the structured, XML-shaped document the queue enqueues and
// dequeues. A Value is a tree: a tag name, an ordered list of attributes,
// text content, and child values.
type Value struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []Value
}

// Attr returns the value of the first attribute named key, and whether it
// was present.
func (v Value) Attr(key string) (string, bool) {
	for _, a := range v.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Codec converts between Value and its wire representation.
type Codec interface {
	// ToBytes encodes v. It is pure: the same Value always produces the
	// same bytes.
	ToBytes(v Value) ([]byte, error)

	// FromBytes decodes data produced by ToBytes. It returns ErrBadPayload
	// if data is not a well-formed document.
	FromBytes(data []byte) (Value, error)
}
