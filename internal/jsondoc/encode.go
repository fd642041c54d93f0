package jsondoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const indentUnit = "    "

// Encode renders v as 4-space indented JSON with a trailing newline.
// Non-ASCII text is written literally and HTML characters are not escaped.
func Encode(v *Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v *Value, depth int) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		if !json.Valid([]byte(v.Str)) {
			return fmt.Errorf("invalid number literal %q", v.Str)
		}
		buf.WriteString(v.Str)
	case KindString:
		return encodeString(buf, v.Str)
	case KindArray:
		if len(v.Items) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, item := range v.Items {
			buf.WriteString(strings.Repeat(indentUnit, depth+1))
			if err := encodeValue(buf, item, depth+1); err != nil {
				return err
			}
			if i < len(v.Items)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat(indentUnit, depth))
		buf.WriteByte(']')
	case KindObject:
		if len(v.Members) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		for i, m := range v.Members {
			buf.WriteString(strings.Repeat(indentUnit, depth+1))
			if err := encodeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := encodeValue(buf, m.Value, depth+1); err != nil {
				return err
			}
			if i < len(v.Members)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat(indentUnit, depth))
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value kind %d", v.Kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
