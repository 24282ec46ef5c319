package markup

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Marshal returns the wire encoding of e. Control characters and characters
// outside printable ASCII are written as numeric references to their
// ISO-8859-1 byte value; characters with no Latin-1 mapping are dropped.
func Marshal(e *Element) []byte {
	var sb strings.Builder
	writeElement(&sb, e)
	return []byte(sb.String())
}

func writeElement(sb *strings.Builder, e *Element) {
	sb.WriteByte('<')
	sb.WriteString(e.Name)
	for _, a := range e.Attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.Name)
		sb.WriteString(`="`)
		Escape(sb, a.Value)
		sb.WriteByte('"')
	}
	if len(e.Children) == 0 {
		sb.WriteString("/>")
		return
	}
	sb.WriteByte('>')
	for _, c := range e.Children {
		if c.Elem != nil {
			writeElement(sb, c.Elem)
		} else {
			Escape(sb, c.Text)
		}
	}
	sb.WriteString("</")
	sb.WriteString(e.Name)
	sb.WriteByte('>')
}

// Escape writes s to sb with markup metacharacters replaced by entities.
func Escape(sb *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '>':
			sb.WriteString("&gt;")
		case '<':
			sb.WriteString("&lt;")
		case '&':
			sb.WriteString("&amp;")
		case '\'':
			sb.WriteString("&apos;")
		case '"':
			sb.WriteString("&quot;")
		default:
			if r < 0x20 || r >= 0x7F {
				b, ok := charmap.ISO8859_1.EncodeRune(r)
				if !ok {
					continue
				}
				sb.WriteString("&#")
				sb.WriteString(strconv.Itoa(int(b)))
				sb.WriteByte(';')
				continue
			}
			sb.WriteRune(r)
		}
	}
}
