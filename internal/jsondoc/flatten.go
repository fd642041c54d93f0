package jsondoc

import (
	"strconv"
	"strings"
)

// KeyPath addresses a leaf by its segments. Array elements use their decimal
// index as the segment.
type KeyPath []string

// String renders the path with dots, for display only. Distinct paths may
// render identically; use Key for identity.
func (p KeyPath) String() string {
	return strings.Join(p, ".")
}

// Key returns a canonical identity string for the path. Each segment is
// written as "<byte length>:<segment>", so no key content can forge a
// segment boundary.
func (p KeyPath) Key() string {
	var b strings.Builder
	for _, seg := range p {
		b.WriteString(strconv.Itoa(len(seg)))
		b.WriteByte(':')
		b.WriteString(seg)
	}
	return b.String()
}

func (p KeyPath) Equal(o KeyPath) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Child returns a new path with seg appended; p is not modified.
func (p KeyPath) Child(seg string) KeyPath {
	out := make(KeyPath, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// PathFromKey reverses KeyPath.Key. It returns false if key was not
// produced by Key.
func PathFromKey(key string) (KeyPath, bool) {
	p := KeyPath{}
	for key != "" {
		colon := strings.IndexByte(key, ':')
		if colon <= 0 {
			return nil, false
		}
		n, err := strconv.Atoi(key[:colon])
		if err != nil || n < 0 || n > len(key)-colon-1 {
			return nil, false
		}
		p = append(p, key[colon+1:colon+1+n])
		key = key[colon+1+n:]
	}
	return p, true
}

// Entry is one leaf of a FlatIndex.
type Entry struct {
	Path  KeyPath
	Value *Value
}

// Translatable reports whether the leaf is a string.
func (e Entry) Translatable() bool {
	return e.Value != nil && e.Value.Kind == KindString
}

// FlatIndex maps key paths to leaf values, in depth-first document order.
// A nil *FlatIndex behaves as an empty index.
type FlatIndex struct {
	entries []Entry
	pos     map[string]int
}

func newFlatIndex() *FlatIndex {
	return &FlatIndex{pos: make(map[string]int)}
}

// Flatten walks doc depth-first and records every scalar leaf. Empty objects
// and arrays produce no entries.
func Flatten(doc *Value) *FlatIndex {
	idx := newFlatIndex()
	if doc == nil {
		return idx
	}
	flattenInto(idx, KeyPath{}, doc)
	return idx
}

func flattenInto(idx *FlatIndex, prefix KeyPath, v *Value) {
	switch v.Kind {
	case KindObject:
		for _, m := range v.Members {
			flattenInto(idx, prefix.Child(m.Key), m.Value)
		}
	case KindArray:
		for i, item := range v.Items {
			flattenInto(idx, prefix.Child(strconv.Itoa(i)), item)
		}
	default:
		idx.add(prefix, v)
	}
}

func (f *FlatIndex) add(path KeyPath, v *Value) {
	key := path.Key()
	if i, ok := f.pos[key]; ok {
		f.entries[i].Value = v
		return
	}
	f.pos[key] = len(f.entries)
	f.entries = append(f.entries, Entry{Path: path, Value: v})
}

func (f *FlatIndex) Len() int {
	if f == nil {
		return 0
	}
	return len(f.entries)
}

// Entries returns the leaves in document order. The slice must not be modified.
func (f *FlatIndex) Entries() []Entry {
	if f == nil {
		return nil
	}
	return f.entries
}

func (f *FlatIndex) Lookup(path KeyPath) (Entry, bool) {
	return f.LookupKey(path.Key())
}

// LookupKey finds an entry by its canonical Key.
func (f *FlatIndex) LookupKey(key string) (Entry, bool) {
	if f == nil {
		return Entry{}, false
	}
	i, ok := f.pos[key]
	if !ok {
		return Entry{}, false
	}
	return f.entries[i], true
}

func (f *FlatIndex) Has(path KeyPath) bool {
	_, ok := f.Lookup(path)
	return ok
}
