package jsonlite

import "strconv"

// Parse builds the value tree for text. Supported: objects, arrays, quoted
// strings, integers (optional minus, digits only) and the true/false/null
// literals. Parsing stops quietly at the first thing it cannot match:
//
//	Parse(`{"on":true,"bri":128}`)  // object with two fields
//	Parse(`{on:true`)               // empty object
//	Parse(`garbage`)                // Unknown
//
// When an object repeats a key the first occurrence is kept.
//
// A \uXXXX escape reads the four characters after the u as a decimal number
// (leading digits only, as with atoi) and appends that number's decimal text,
// not a code point: "\u0041" reads as "41" and "\u00e9" as "0". Callers relying
// on real unicode escapes get neither the character nor an error. The escape
// always consumes four characters, even if one of them is the closing quote.
func Parse(text string) Value {
	p := parser{src: text}
	return p.value()
}

type parser struct {
	src string
	pos int
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) skipWhitespace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) hasPrefix(word string) bool {
	return len(p.src)-p.pos >= len(word) && p.src[p.pos:p.pos+len(word)] == word
}

func (p *parser) value() Value {
	p.skipWhitespace()

	c := p.peek()
	switch {
	case c == '"':
		return NewString(p.quoted())
	case c == '-' || (c >= '0' && c <= '9'):
		return NewInteger(p.number())
	case c == '{':
		return NewObject(p.object())
	case c == '[':
		return NewArray(p.array()...)
	case p.hasPrefix("true"):
		p.pos += 4
		return NewBool(true)
	case p.hasPrefix("false"):
		p.pos += 5
		return NewBool(false)
	case p.hasPrefix("null"):
		p.pos += 4
		return NewNull()
	}
	return Value{}
}

func (p *parser) object() map[string]Value {
	fields := map[string]Value{}

	p.pos++ // {
	for {
		p.skipWhitespace()
		if p.peek() != '"' {
			break
		}
		name := p.quoted()

		p.skipWhitespace()
		if p.peek() == ':' {
			p.pos++
			v := p.value()
			if _, seen := fields[name]; !seen {
				fields[name] = v
			}
		}
		p.skipWhitespace()
		if p.peek() == ',' {
			p.pos++
		}
	}
	if p.peek() == '}' {
		p.pos++
	}
	return fields
}

func (p *parser) array() []Value {
	var items []Value

	p.pos++ // [
	for {
		p.skipWhitespace()
		if p.eof() || p.peek() == ']' {
			break
		}
		start := p.pos

		v := p.value()
		p.skipWhitespace()
		if p.peek() == ',' {
			p.pos++
		}

		// nothing was consumed, the element can't be parsed
		if p.pos == start {
			break
		}
		items = append(items, v)
	}
	if p.peek() == ']' {
		p.pos++
	}
	return items
}

func (p *parser) quoted() string {
	var out []byte

	p.pos++ // opening quote
	for !p.eof() && p.peek() != '"' {
		c := p.src[p.pos]
		if c != '\\' {
			out = append(out, c)
			p.pos++
			continue
		}

		p.pos++
		if p.eof() {
			break
		}
		switch p.src[p.pos] {
		case '"':
			out = append(out, '"')
		case '\\':
			out = append(out, '\\')
		case '/':
			out = append(out, '/')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'u':
			end := min(p.pos+5, len(p.src))
			digits := p.src[p.pos+1 : end]
			out = strconv.AppendInt(out, int64(leadingInt(digits)), 10)
			p.pos = end - 1
		}
		p.pos++
	}
	if p.peek() == '"' {
		p.pos++
	}
	return string(out)
}

func (p *parser) number() int {
	negative := false
	if p.peek() == '-' {
		negative = true
		p.pos++
	}

	start := p.pos
	for !p.eof() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}

	// out of range values saturate, an empty digit run reads as 0
	n, _ := strconv.Atoi(p.src[start:p.pos])
	if negative {
		n = -n
	}
	return n
}

// leadingInt reads the run of decimal digits at the start of s.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
