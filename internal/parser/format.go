package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Indent is the indentation used by canonical metadata files
const Indent = "  "

// Canonical re-serializes a JSON document the way JSON.stringify(value,
// null, 2) does, followed by a newline. Object keys keep their order,
// except that array-index keys come first in ascending order.
func Canonical(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	r := &tokenReader{dec: dec, data: data}

	root, err := r.readNode()
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}

	var buf bytes.Buffer
	writeNode(&buf, root, 0)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// IsCanonical reports whether data is already in canonical form
func IsCanonical(data []byte) (bool, []byte, error) {
	canonical, err := Canonical(data)
	if err != nil {
		return false, nil, err
	}
	return bytes.Equal(data, canonical), canonical, nil
}

type member struct {
	key   string
	value interface{}
}

type object struct {
	members []member
	index   map[string]int
}

func (o *object) set(key string, value interface{}) {
	if i, ok := o.index[key]; ok {
		o.members[i].value = value
		return
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, member{key: key, value: value})
}

// ordered returns members with array-index keys first
func (o *object) ordered() []member {
	var indexed, named []member
	for _, m := range o.members {
		if _, ok := arrayIndex(m.key); ok {
			indexed = append(indexed, m)
		} else {
			named = append(named, m)
		}
	}
	sort.SliceStable(indexed, func(i, j int) bool {
		a, _ := arrayIndex(indexed[i].key)
		b, _ := arrayIndex(indexed[j].key)
		return a < b
	})
	return append(indexed, named...)
}

func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return n, true
}

// tokenReader reads the token stream of data. encoding/json turns lone
// UTF-16 surrogate escapes into U+FFFD, so strings holding U+FFFD are
// decoded again from their literal, keeping lone surrogates as WTF-8.
type tokenReader struct {
	dec  *json.Decoder
	data []byte
}

func (r *tokenReader) token() (json.Token, error) {
	start := r.dec.InputOffset()
	tok, err := r.dec.Token()
	if err != nil {
		return nil, err
	}
	if s, ok := tok.(string); ok && strings.ContainsRune(s, utf8.RuneError) {
		lit := r.data[start:r.dec.InputOffset()]
		if i := bytes.IndexByte(lit, '"'); i >= 0 && len(lit)-i >= 2 {
			return decodeLiteral(lit[i+1 : len(lit)-1]), nil
		}
	}
	return tok, nil
}

func (r *tokenReader) readNode() (interface{}, error) {
	tok, err := r.token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &object{index: make(map[string]int)}
		for r.dec.More() {
			keyTok, err := r.token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("invalid object key %v", keyTok)
			}
			value, err := r.readNode()
			if err != nil {
				return nil, err
			}
			obj.set(key, value)
		}
		if _, err := r.dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []interface{}{}
		for r.dec.More() {
			value, err := r.readNode()
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		if _, err := r.dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// decodeLiteral decodes the body of a JSON string literal that the decoder
// already accepted. Surrogate pairs are combined, lone surrogates are kept
// as their WTF-8 encoding and invalid UTF-8 becomes U+FFFD.
func decodeLiteral(lit []byte) string {
	var buf []byte
	for i := 0; i < len(lit); {
		c := lit[i]
		if c != '\\' {
			r, size := utf8.DecodeRune(lit[i:])
			buf = utf8.AppendRune(buf, r)
			i += size
			continue
		}
		if i+1 >= len(lit) {
			break
		}
		switch lit[i+1] {
		case 'b':
			buf = append(buf, '\b')
		case 'f':
			buf = append(buf, '\f')
		case 'n':
			buf = append(buf, '\n')
		case 'r':
			buf = append(buf, '\r')
		case 't':
			buf = append(buf, '\t')
		case 'u':
			r, ok := hexUnit(lit[i+2:])
			if !ok {
				return string(buf)
			}
			i += 6
			if utf16.IsSurrogate(r) {
				if r < 0xdc00 && i+1 < len(lit) && lit[i] == '\\' && lit[i+1] == 'u' {
					if lo, ok := hexUnit(lit[i+2:]); ok {
						if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
							buf = utf8.AppendRune(buf, pair)
							i += 6
							continue
						}
					}
				}
				buf = append(buf, 0xe0|byte(r>>12), 0x80|byte(r>>6)&0x3f, 0x80|byte(r)&0x3f)
				continue
			}
			buf = utf8.AppendRune(buf, r)
			continue
		default:
			buf = append(buf, lit[i+1])
		}
		i += 2
	}
	return string(buf)
}

func hexUnit(b []byte) (rune, bool) {
	if len(b) < 4 {
		return 0, false
	}
	n, err := strconv.ParseUint(string(b[:4]), 16, 16)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}

// loneSurrogate returns the surrogate encoded as WTF-8 at the start of s
func loneSurrogate(s string) (rune, bool) {
	if len(s) < 3 || s[0] != 0xed || s[1] < 0xa0 || s[1] > 0xbf || s[2]&0xc0 != 0x80 {
		return 0, false
	}
	return 0xd000 | rune(s[1]&0x3f)<<6 | rune(s[2]&0x3f), true
}

func writeNode(buf *bytes.Buffer, node interface{}, depth int) {
	switch v := node.(type) {
	case *object:
		if len(v.members) == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteString("{\n")
		for i, m := range v.ordered() {
			writeIndent(buf, depth+1)
			writeString(buf, m.key)
			buf.WriteString(": ")
			writeNode(buf, m.value, depth+1)
			if i < len(v.members)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeIndent(buf, depth)
		buf.WriteByte('}')
	case []interface{}:
		if len(v) == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteString("[\n")
		for i, item := range v {
			writeIndent(buf, depth+1)
			writeNode(buf, item, depth+1)
			if i < len(v)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeIndent(buf, depth)
		buf.WriteByte(']')
	case string:
		writeString(buf, v)
	case json.Number:
		buf.WriteString(formatNumber(v))
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case nil:
		buf.WriteString("null")
	}
}

func writeIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString(Indent)
	}
}

// formatNumber renders a number as ECMAScript Number.prototype.toString
func formatNumber(n json.Number) string {
	f, err := strconv.ParseFloat(string(n), 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "null"
	}
	if err != nil {
		return string(n)
	}
	if f == 0 {
		return "0"
	}
	// encoding/json already follows the ES6 number-to-string rules
	out, err := json.Marshal(f)
	if err != nil {
		return string(n)
	}
	return string(out)
}

const hex = "0123456789abcdef"

// writeString quotes s the way JSON.stringify does: only quotes,
// backslashes, control characters and lone surrogates are escaped.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			if u, ok := loneSurrogate(s[i:]); ok {
				buf.WriteString(`\u`)
				buf.WriteByte(hex[u>>12])
				buf.WriteByte(hex[u>>8&0xf])
				buf.WriteByte(hex[u>>4&0xf])
				buf.WriteByte(hex[u&0xf])
				i += 3
				continue
			}
			r, size := utf8.DecodeRuneInString(s[i:])
			buf.WriteRune(r)
			i += size
			continue
		}
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hex[c>>4])
				buf.WriteByte(hex[c&0xf])
			} else {
				buf.WriteByte(c)
			}
		}
		i++
	}
	buf.WriteByte('"')
}
