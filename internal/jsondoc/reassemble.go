package jsondoc

import (
	"fmt"
	"strconv"
)

// OutputIndex accumulates the final leaf value for every key path of a run.
type OutputIndex struct {
	values map[string]*Value
}

func NewOutputIndex() *OutputIndex {
	return &OutputIndex{values: make(map[string]*Value)}
}

// Seed returns an OutputIndex holding every leaf of f.
func Seed(f *FlatIndex) *OutputIndex {
	out := NewOutputIndex()
	for _, e := range f.Entries() {
		out.values[e.Path.Key()] = e.Value
	}
	return out
}

func (o *OutputIndex) Set(path KeyPath, v *Value) {
	o.values[path.Key()] = v
}

func (o *OutputIndex) Get(path KeyPath) (*Value, bool) {
	v, ok := o.values[path.Key()]
	return v, ok
}

func (o *OutputIndex) Len() int {
	return len(o.values)
}

// Reassemble rebuilds the tree shape of doc, taking each leaf from out.
// Every leaf of doc must be present in out.
func Reassemble(doc *Value, out *OutputIndex) (*Value, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	return rebuild(KeyPath{}, doc, out)
}

func rebuild(path KeyPath, v *Value, out *OutputIndex) (*Value, error) {
	switch v.Kind {
	case KindObject:
		obj := &Value{Kind: KindObject, Members: make([]Member, 0, len(v.Members))}
		for _, m := range v.Members {
			child, err := rebuild(path.Child(m.Key), m.Value, out)
			if err != nil {
				return nil, err
			}
			obj.Members = append(obj.Members, Member{Key: m.Key, Value: child})
		}
		return obj, nil
	case KindArray:
		arr := &Value{Kind: KindArray, Items: make([]*Value, 0, len(v.Items))}
		for i, item := range v.Items {
			child, err := rebuild(path.Child(strconv.Itoa(i)), item, out)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, child)
		}
		return arr, nil
	default:
		leaf, ok := out.Get(path)
		if !ok || leaf == nil {
			return nil, fmt.Errorf("unresolved key path %q", path.String())
		}
		return leaf, nil
	}
}
