package dreamqueue

import "github.com/mindtouch/dreamqueue/internal/codec"

// Value is the structured payload enqueued and dequeued by the queue: an
// XML-shaped tree of a tag, ordered attributes, text, and children.
type Value = codec.Value

// Attr is a single Value attribute.
type Attr = codec.Attr

// Codec converts between Value and its wire representation. Any
// implementation satisfying this contract may be passed to WithCodec.
type Codec = codec.Codec

// NewXMLCodec returns the default Codec: an XML document codec backed by
// github.com/beevik/etree.
func NewXMLCodec() Codec {
	return codec.NewXMLCodec()
}
