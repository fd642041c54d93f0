package jsondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oukeidos/jsontp/internal/apperrors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads and parses a JSON document from path.
func Load(path string) (*Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	v, err := Parse(data)
	if err != nil {
		return nil, apperrors.New(apperrors.KindFormat,
			fmt.Sprintf("%s is not a valid JSON object: %s", path, rootCause(err)), err)
	}
	return v, nil
}

// Parse decodes a JSON document whose root must be an object.
// Object member order and number literals are preserved.
func Parse(data []byte) (*Value, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := decodeValue(dec)
	if err != nil {
		return nil, apperrors.Format(fmt.Errorf("invalid JSON: %w", err))
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, apperrors.Format(fmt.Errorf("invalid JSON: %w", err))
	}
	if root.Kind != KindObject {
		return nil, apperrors.Format(fmt.Errorf("root must be an object, got %s", root.Kind))
	}
	return root, nil
}

func decodeValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String()), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", t)
	}
}

func decodeObject(dec *json.Decoder) (*Value, error) {
	obj := &Value{Kind: KindObject}
	index := make(map[string]int)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", kt)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		// Last duplicate wins, first position is kept.
		if i, dup := index[key]; dup {
			obj.Members[i].Value = val
			continue
		}
		index[key] = len(obj.Members)
		obj.Members = append(obj.Members, Member{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) (*Value, error) {
	arr := &Value{Kind: KindArray}
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", len(arr.Items), err)
		}
		arr.Items = append(arr.Items, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

func rootCause(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Cause != nil {
		return appErr.Cause.Error()
	}
	return err.Error()
}
