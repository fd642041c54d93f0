// Package jsondoc models decoded JSON translation files as an ordered tree of
// tagged values, and converts between that tree and a flat key-path index.
package jsondoc

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is one node of a JSON document.
// Str holds the text of a string or the literal of a number, so numbers
// round-trip without float conversion.
type Value struct {
	Kind    Kind
	Str     string
	Bool    bool
	Items   []*Value
	Members []Member
}

// Member is a key/value pair of an object, kept in source order.
type Member struct {
	Key   string
	Value *Value
}

func String(s string) *Value { return &Value{Kind: KindString, Str: s} }
func Number(lit string) *Value { return &Value{Kind: KindNumber, Str: lit} }
func Bool(b bool) *Value { return &Value{Kind: KindBool, Bool: b} }
func Null() *Value { return &Value{Kind: KindNull} }
func Array(items ...*Value) *Value { return &Value{Kind: KindArray, Items: items} }

// Object builds an object with members in the given order.
func Object(members ...Member) *Value {
	return &Value{Kind: KindObject, Members: members}
}

// IsContainer reports whether v is an object or an array.
func (v *Value) IsContainer() bool {
	return v != nil && (v.Kind == KindObject || v.Kind == KindArray)
}

// Get returns the member value for key in an object.
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil || v.Kind != KindObject {
		return nil, false
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Equal reports deep structural equality. Numbers compare by literal.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindNumber, KindString:
		return v.Str == o.Str
	case KindArray:
		if len(v.Items) != len(o.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.Members) != len(o.Members) {
			return false
		}
		for i := range v.Members {
			if v.Members[i].Key != o.Members[i].Key || !v.Members[i].Value.Equal(o.Members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
