package markup

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parse decodes every top-level element in data. A frame may batch several
// commands; they are returned in document order. A leading processing
// instruction (<?...?>) is skipped.
func Parse(data []byte) ([]*Element, error) {
	p := &parser{src: string(data)}
	var out []*Element
	for {
		p.skipSpace()
		if p.eof() {
			return out, nil
		}
		if strings.HasPrefix(p.src[p.pos:], "<?") {
			end := strings.Index(p.src[p.pos:], "?>")
			if end < 0 {
				return out, p.errorf("unterminated processing instruction")
			}
			p.pos += end + 2
			continue
		}
		e, err := p.element()
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}

// ParseOne decodes data that must contain exactly one element.
func ParseOne(data []byte) (*Element, error) {
	elems, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if len(elems) != 1 {
		return nil, &SyntaxError{Offset: 0, Msg: "expected exactly one element, got " + strconv.Itoa(len(elems))}
	}
	return elems[0], nil
}

// MaxDepth bounds element nesting. Real commands nest a few levels.
const MaxDepth = 256

type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) errorf(msg string) error {
	return &SyntaxError{Offset: p.pos, Msg: msg}
}

func (p *parser) peek() byte {
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		r, n := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += n
	}
}

func isNameRune(r rune) bool {
	return r == '_' || r == '.' || r == '-' || r == ':' || r == '$' ||
		unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (p *parser) name() string {
	start := p.pos
	for !p.eof() {
		r, n := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isNameRune(r) {
			break
		}
		p.pos += n
	}
	return p.src[start:p.pos]
}

func (p *parser) element() (*Element, error) {
	if p.peek() != '<' {
		return nil, p.errorf("'<' expected")
	}
	if p.depth >= MaxDepth {
		return nil, p.errorf("elements nested deeper than " + strconv.Itoa(MaxDepth))
	}
	p.depth++
	defer func() { p.depth-- }()
	p.pos++
	name := p.name()
	if name == "" {
		return nil, p.errorf("element name expected")
	}
	e := &Element{Name: name}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("premature end of document")
		}
		switch p.peek() {
		case '>':
			p.pos++
			if err := p.content(e); err != nil {
				return nil, err
			}
			return e, nil
		case '/':
			p.pos++
			if p.eof() || p.peek() != '>' {
				return nil, p.errorf("'>' expected after '/'")
			}
			p.pos++
			return e, nil
		}
		attr := p.name()
		if attr == "" {
			return nil, p.errorf("attribute name expected")
		}
		p.skipSpace()
		if p.eof() || p.peek() != '=' {
			return nil, p.errorf("'=' expected after attribute " + attr)
		}
		p.pos++
		p.skipSpace()
		value, err := p.attrValue()
		if err != nil {
			return nil, err
		}
		e.Attrs = append(e.Attrs, Attr{Name: attr, Value: value})
	}
}

func (p *parser) attrValue() (string, error) {
	if p.eof() {
		return "", p.errorf("premature end of document")
	}
	q := p.peek()
	if q != '"' && q != '\'' {
		// unquoted values are a single name token
		start := p.pos
		v := p.name()
		if v == "" {
			return "", p.errorf("attribute value expected")
		}
		return unescape(v, start)
	}
	p.pos++
	end := strings.IndexByte(p.src[p.pos:], q)
	if end < 0 {
		return "", p.errorf("unterminated attribute value")
	}
	start := p.pos
	p.pos += end + 1
	return unescape(p.src[start:start+end], start)
}

func (p *parser) content(e *Element) error {
	for {
		if p.eof() {
			return p.errorf("premature end of document in <" + e.Name + ">")
		}
		if p.peek() != '<' {
			end := strings.IndexByte(p.src[p.pos:], '<')
			if end < 0 {
				end = len(p.src) - p.pos
			}
			start := p.pos
			p.pos += end
			text, err := unescape(p.src[start:p.pos], start)
			if err != nil {
				return err
			}
			e.Children = append(e.Children, Node{Text: text})
			continue
		}
		if strings.HasPrefix(p.src[p.pos:], "</") {
			p.pos += 2
			name := p.name()
			if name != e.Name {
				return p.errorf("invalid element nesting: </" + name + "> closes <" + e.Name + ">")
			}
			p.skipSpace()
			if p.eof() || p.peek() != '>' {
				return p.errorf("'>' expected")
			}
			p.pos++
			return nil
		}
		child, err := p.element()
		if err != nil {
			return err
		}
		e.Children = append(e.Children, Node{Elem: child})
	}
}

// unescape resolves the builtin entities and numeric character references.
func unescape(s string, offset int) (string, error) {
	if strings.IndexByte(s, '&') < 0 {
		return s, nil
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '&' {
			sb.WriteByte(c)
			continue
		}
		semi := strings.IndexByte(s[i:], ';')
		if semi < 0 {
			return "", &SyntaxError{Offset: offset + i, Msg: "unterminated entity"}
		}
		ent := s[i+1 : i+semi]
		switch ent {
		case "lt":
			sb.WriteByte('<')
		case "gt":
			sb.WriteByte('>')
		case "amp":
			sb.WriteByte('&')
		case "apos":
			sb.WriteByte('\'')
		case "quot":
			sb.WriteByte('"')
		default:
			r, ok := charRef(ent)
			if !ok {
				return "", &SyntaxError{Offset: offset + i, Msg: "invalid entity &" + ent + ";"}
			}
			sb.WriteRune(r)
		}
		i += semi
	}
	return sb.String(), nil
}

func charRef(ent string) (rune, bool) {
	if len(ent) < 2 || ent[0] != '#' {
		return 0, false
	}
	base, digits := 10, ent[1:]
	if digits[0] == 'x' || digits[0] == 'X' {
		base, digits = 16, digits[1:]
	}
	n, err := strconv.ParseUint(digits, base, 32)
	if err != nil || n > unicode.MaxRune {
		return 0, false
	}
	return rune(n), true
}
