package codec

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// decimalLiteral matches a bare numeral acceptable on the wire: an
// optional sign, digits with an optional fractional part (or a leading
// dot), and an optional exponent. This is intentionally stricter than
// strconv.ParseFloat, which also accepts "NaN", "Inf" and hex floats -
// none of which are finite decimal numbers.
var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)([eE][+-]?\d+)?$`)

func isFiniteDecimal(s string) bool {
	if !decimalLiteral.MatchString(s) {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return !math.IsInf(f, 0)
}

// EncodeObject renders r as "{\n  \"key\": value,\n  ...\n}", emitting
// each value unquoted iff it parses as a finite decimal and quoted
// (with escaping) otherwise. Field order follows r.Keys().
func EncodeObject(r *Record) (string, error) {
	if r == nil || r.Len() == 0 {
		return "", fmt.Errorf("%w: cannot encode an empty object", ErrMalformedStructure)
	}

	keys := r.Keys()
	var b strings.Builder
	b.WriteString("{\n")
	for i, k := range keys {
		v, _ := r.Get(k)
		b.WriteString("  ")
		b.WriteString(escapeString(k))
		b.WriteString(": ")
		if isFiniteDecimal(v) {
			b.WriteString(v)
		} else {
			b.WriteString(escapeString(v))
		}
		if i != len(keys)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteByte('}')
	return b.String(), nil
}

// EncodeArray renders records as "[\n<obj>,\n<obj>\n]".
func EncodeArray(records []*Record) (string, error) {
	var b strings.Builder
	b.WriteString("[\n")
	for i, r := range records {
		obj, err := EncodeObject(r)
		if err != nil {
			return "", err
		}
		b.WriteString(obj)
		if i != len(records)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteByte(']')
	return b.String(), nil
}

// DecodeObject parses text as a single flat object.
func DecodeObject(text string) (*Record, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, fmt.Errorf("%w: expected an outer '{...}'", ErrMalformedStructure)
	}

	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return nil, fmt.Errorf("%w: empty object", ErrMalformedStructure)
	}

	fields, err := splitTopLevelComma(inner)
	if err != nil {
		return nil, err
	}

	rec := NewRecord()
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, fmt.Errorf("%w: empty field (trailing or doubled comma)", ErrMalformedStructure)
		}

		idx := strings.IndexByte(field, ':')
		if idx < 0 {
			return nil, fmt.Errorf("%w: field missing ':'", ErrMalformedStructure)
		}

		keyPart := strings.TrimSpace(field[:idx])
		valPart := strings.TrimSpace(field[idx+1:])
		if keyPart == "" || valPart == "" {
			return nil, fmt.Errorf("%w: field missing key or value", ErrMalformedStructure)
		}

		key, err := unquoteString(keyPart)
		if err != nil {
			return nil, err
		}

		var value string
		if strings.HasPrefix(valPart, `"`) {
			value, err = unquoteString(valPart)
			if err != nil {
				return nil, err
			}
		} else {
			if !isFiniteDecimal(valPart) {
				return nil, fmt.Errorf("%w: %q is not a finite decimal", ErrMalformedNumber, valPart)
			}
			value = valPart
		}

		rec.Set(key, value)
	}

	return rec, nil
}

// DecodeArray parses text as an array of flat objects.
func DecodeArray(text string) ([]*Record, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, fmt.Errorf("%w: expected an outer '[...]'", ErrMalformedStructure)
	}

	objTexts, err := splitTopLevelObjects(trimmed[1 : len(trimmed)-1])
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(objTexts))
	for _, o := range objTexts {
		rec, err := DecodeObject(o)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// splitTopLevelComma splits s on commas that are not inside a quoted
// string, mirroring the decoder's field-boundary rule.
func splitTopLevelComma(s string) ([]string, error) {
	var parts []string
	start := 0
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '"' {
			end, err := scanQuotedSpan(s, i)
			if err != nil {
				return nil, err
			}
			i = end + 1
			continue
		}
		if c == ',' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
		i++
	}
	parts = append(parts, s[start:])
	return parts, nil
}

// splitTopLevelObjects finds top-level "{...}" spans in s by brace
// counting outside of quoted strings.
func splitTopLevelObjects(s string) ([]string, error) {
	var objs []string
	depth := 0
	start := -1
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '"' {
			end, err := scanQuotedSpan(s, i)
			if err != nil {
				return nil, err
			}
			i = end + 1
			continue
		}
		switch c {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced '}'", ErrMalformedStructure)
			}
			if depth == 0 {
				objs = append(objs, s[start:i+1])
			}
		}
		i++
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced '{'", ErrMalformedStructure)
	}
	return objs, nil
}

// scanQuotedSpan returns the index of the closing quote of the string
// starting at s[start] (which must be '"'), treating a backslash as
// escaping the character that follows it - so a preceding backslash
// never lets a '"' terminate the string.
func scanQuotedSpan(s string, start int) (int, error) {
	i := start + 1
	for i < len(s) {
		switch s[i] {
		case '\\':
			i += 2
			continue
		case '"':
			return i, nil
		}
		i++
	}
	return 0, fmt.Errorf("%w: unterminated string", ErrMalformedStructure)
}

// unquoteString unescapes a quoted string token (including its
// surrounding quotes), supporting \" \\ \/ \b \f \n \r \t and \uXXXX.
func unquoteString(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' {
		return "", fmt.Errorf("%w: value does not start with '\"'", ErrMalformedString)
	}

	var b strings.Builder
	i := 1
	closed := false
	for i < len(s) {
		c := s[i]
		if c == '\\' {
			i++
			if i >= len(s) {
				return "", fmt.Errorf("%w: dangling escape", ErrMalformedString)
			}
			switch s[i] {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'u':
				if i+4 >= len(s) {
					return "", fmt.Errorf("%w: truncated unicode escape", ErrMalformedString)
				}
				v, err := strconv.ParseUint(s[i+1:i+5], 16, 32)
				if err != nil {
					return "", fmt.Errorf("%w: invalid unicode escape", ErrMalformedString)
				}
				b.WriteRune(rune(v))
				i += 4
			default:
				return "", fmt.Errorf("%w: unsupported escape '\\%c'", ErrMalformedString, s[i])
			}
			i++
			continue
		}
		if c == '"' {
			if i != len(s)-1 {
				return "", fmt.Errorf("%w: trailing data after closing quote", ErrMalformedString)
			}
			closed = true
			i++
			continue
		}
		b.WriteByte(c)
		i++
	}
	if !closed {
		return "", fmt.Errorf("%w: unterminated string", ErrMalformedString)
	}
	return b.String(), nil
}

// escapeString quotes and escapes s for the wire dialect.
func escapeString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
