package codec

import (
	"fmt"

	"github.com/beevik/etree"
)

// XMLCodec implements Codec as an XML-like structured document, using
// etree for parsing and serialization.
type XMLCodec struct{}

// NewXMLCodec returns a ready-to-use XMLCodec.
func NewXMLCodec() *XMLCodec {
	return &XMLCodec{}
}

func (c *XMLCodec) ToBytes(v Value) ([]byte, error) {
	doc := etree.NewDocument()
	buildElement(&doc.Element, v)
	return doc.WriteToBytes()
}

func (c *XMLCodec) FromBytes(data []byte) (Value, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	root := doc.Root()
	if root == nil {
		return Value{}, fmt.Errorf("%w: no root element", ErrBadPayload)
	}
	return parseElement(root), nil
}

func buildElement(parent *etree.Element, v Value) {
	el := parent.CreateElement(v.Tag)
	for _, a := range v.Attrs {
		el.CreateAttr(a.Key, a.Value)
	}
	if v.Text != "" {
		el.SetText(v.Text)
	}
	for _, child := range v.Children {
		buildElement(el, child)
	}
}

func parseElement(el *etree.Element) Value {
	v := Value{Tag: el.Tag, Text: el.Text()}
	for _, a := range el.Attr {
		v.Attrs = append(v.Attrs, Attr{Key: a.Key, Value: a.Value})
	}
	for _, child := range el.ChildElements() {
		v.Children = append(v.Children, parseElement(child))
	}
	return v
}
