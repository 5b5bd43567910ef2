package segment

import (
	"fmt"
	"strings"
)

// Type names an element kind.
type Type string

const (
	TypeText  Type = "text"
	TypeAt    Type = "at"
	TypeQuote Type = "reply"
	TypeImage Type = "image"
	TypeFace  Type = "face"
)

// Element is one piece of a message.
type Element interface {
	Type() Type
	// Raw renders the element as loggable text.
	Raw() string
}

// TextElement is plain text.
type TextElement struct {
	Text string
}

func (TextElement) Type() Type { return TypeText }

func (e TextElement) Raw() string { return e.Text }

// AtElement mentions a user. TargetID "all" mentions everyone.
type AtElement struct {
	TargetID string
	Name     string
}

func (AtElement) Type() Type { return TypeAt }

func (e AtElement) Raw() string {
	return fmt.Sprintf("[at:%s]", e.TargetID)
}

// QuoteElement quotes an earlier message.
type QuoteElement struct {
	MessageID string
}

func (QuoteElement) Type() Type { return TypeQuote }

func (e QuoteElement) Raw() string {
	return fmt.Sprintf("[reply:%s]", e.MessageID)
}

// ImageElement references an image by url, path or base64 payload.
type ImageElement struct {
	File string
}

func (ImageElement) Type() Type { return TypeImage }

func (e ImageElement) Raw() string {
	if len(e.File) > 32 {
		return "[image:" + e.File[:32] + "...]"
	}
	return "[image:" + e.File + "]"
}

// FaceElement is a platform emoji id.
type FaceElement struct {
	ID    int
	IsBig bool
}

func (FaceElement) Type() Type { return TypeFace }

func (e FaceElement) Raw() string {
	return fmt.Sprintf("[face:%d]", e.ID)
}

// Text builds a text element.
func Text(s string) TextElement { return TextElement{Text: s} }

// At builds a mention element.
func At(targetID string) AtElement { return AtElement{TargetID: targetID} }

// Quote builds a quote-reference element.
func Quote(messageID string) QuoteElement { return QuoteElement{MessageID: messageID} }

// Image builds an image element.
func Image(file string) ImageElement { return ImageElement{File: file} }

// Face builds an emoji element.
func Face(id int) FaceElement { return FaceElement{ID: id} }

// Make normalizes loosely typed values into an element list. Strings become
// text elements, elements and element slices are kept, and any other value
// is formatted with fmt.Sprint.
func Make(values ...any) []Element {
	out := make([]Element, 0, len(values))
	for _, v := range values {
		switch val := v.(type) {
		case nil:
		case Element:
			out = append(out, val)
		case []Element:
			out = append(out, val...)
		case string:
			out = append(out, Text(val))
		case []string:
			for _, s := range val {
				out = append(out, Text(s))
			}
		default:
			out = append(out, Text(fmt.Sprint(val)))
		}
	}
	return out
}

// Raw concatenates the loggable form of every element.
func Raw(elems []Element) string {
	var b strings.Builder
	for _, e := range elems {
		b.WriteString(e.Raw())
	}
	return b.String()
}

// PlainText returns only the text elements joined together.
func PlainText(elems []Element) string {
	var b strings.Builder
	for _, e := range elems {
		if t, ok := e.(TextElement); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}
