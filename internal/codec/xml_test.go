package codec

import (
	"errors"
	"testing"
)

func TestXMLCodec_RoundTrip(t *testing.T) {
	c := NewXMLCodec()
	v := Value{
		Tag:  "order",
		Attrs: []Attr{{Key: "id", Value: "42"}},
		Children: []Value{
			{Tag: "item", Text: "widget"},
			{Tag: "item", Text: "gadget"},
		},
	}

	data, err := c.ToBytes(v)
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}

	got, err := c.FromBytes(data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if got.Tag != "order" {
		t.Fatalf("Tag = %q, want %q", got.Tag, "order")
	}
	if id, ok := got.Attr("id"); !ok || id != "42" {
		t.Fatalf("Attr(id) = %q, %v, want 42, true", id, ok)
	}
	if len(got.Children) != 2 || got.Children[0].Text != "widget" || got.Children[1].Text != "gadget" {
		t.Fatalf("Children = %+v", got.Children)
	}
}

func TestXMLCodec_ToBytesIsDeterministic(t *testing.T) {
	c := NewXMLCodec()
	v := Value{Tag: "x", Attrs: []Attr{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}}
	first, err := c.ToBytes(v)
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	second, err := c.ToBytes(v)
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("ToBytes not deterministic: %q vs %q", first, second)
	}
}

func TestXMLCodec_FromBytesRejectsGarbage(t *testing.T) {
	c := NewXMLCodec()
	if _, err := c.FromBytes([]byte("not xml at all <<<")); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("FromBytes(garbage) error = %v, want ErrBadPayload", err)
	}
}

func TestXMLCodec_FromBytesRejectsEmpty(t *testing.T) {
	c := NewXMLCodec()
	if _, err := c.FromBytes(nil); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("FromBytes(nil) error = %v, want ErrBadPayload", err)
	}
}
