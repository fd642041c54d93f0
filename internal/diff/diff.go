// Package diff classifies the leaves of a new translation file against an
// older one and derives the translation work list.
package diff

import (
	"strings"

	"github.com/oukeidos/jsontp/internal/jsondoc"
)

// Class is the classification of one key path.
type Class string

const (
	ClassAdded     Class = "added"
	ClassChanged   Class = "changed"
	ClassUnchanged Class = "unchanged"
	ClassRemoved   Class = "removed"
)

// Options controls the comparison policy.
type Options struct {
	// RetranslateChanged classifies keys whose leaf value differs between
	// old and new as changed and puts them on the work list. When false,
	// such keys are unchanged and carried over untranslated.
	RetranslateChanged bool
	// CarryFromOld seeds unchanged keys from the old document's value
	// instead of the new one, for when the old file is a previous
	// translation rather than a previous source.
	CarryFromOld bool
}

// Result is the outcome of Compare. It must not be modified after creation.
type Result struct {
	Added     []jsondoc.KeyPath
	Changed   []jsondoc.KeyPath
	Unchanged []jsondoc.KeyPath
	Removed   []jsondoc.KeyPath
	// WorkList holds the translatable, non-blank leaves of the new document
	// that are added (or changed, when enabled), in document order.
	WorkList []jsondoc.Entry

	classes map[string]Class
	oldIdx  *jsondoc.FlatIndex
	newIdx  *jsondoc.FlatIndex
	opts    Options
}

// Compare classifies every leaf of newIdx against oldIdx. oldIdx may be nil.
func Compare(oldIdx, newIdx *jsondoc.FlatIndex, opts Options) *Result {
	r := &Result{
		classes: make(map[string]Class, newIdx.Len()),
		oldIdx:  oldIdx,
		newIdx:  newIdx,
		opts:    opts,
	}

	for _, e := range newIdx.Entries() {
		key := e.Path.Key()
		prev, found := oldIdx.LookupKey(key)
		class := ClassAdded
		switch {
		case !found:
		case opts.RetranslateChanged && !prev.Value.Equal(e.Value):
			class = ClassChanged
		default:
			class = ClassUnchanged
		}
		r.classes[key] = class

		switch class {
		case ClassAdded:
			r.Added = append(r.Added, e.Path)
		case ClassChanged:
			r.Changed = append(r.Changed, e.Path)
		case ClassUnchanged:
			r.Unchanged = append(r.Unchanged, e.Path)
		}
		if class != ClassUnchanged && e.Translatable() && strings.TrimSpace(e.Value.Str) != "" {
			r.WorkList = append(r.WorkList, e)
		}
	}

	for _, e := range oldIdx.Entries() {
		if !newIdx.Has(e.Path) {
			r.Removed = append(r.Removed, e.Path)
		}
	}
	return r
}

// ClassOf returns the classification of a key path of either document.
func (r *Result) ClassOf(path jsondoc.KeyPath) (Class, bool) {
	key := path.Key()
	if c, ok := r.classes[key]; ok {
		return c, true
	}
	if r.oldIdx.Has(path) {
		return ClassRemoved, true
	}
	return "", false
}

// Seed returns the initial OutputIndex for a run: every leaf of the new
// document, with unchanged keys taken from the old document when
// CarryFromOld is set.
func (r *Result) Seed() *jsondoc.OutputIndex {
	out := jsondoc.Seed(r.newIdx)
	if !r.opts.CarryFromOld {
		return out
	}
	for _, path := range r.Unchanged {
		if prev, ok := r.oldIdx.Lookup(path); ok {
			out.Set(path, prev.Value)
		}
	}
	return out
}

// CarriedOver is the number of new-document leaves that will not be sent
// for translation.
func (r *Result) CarriedOver() int {
	return r.newIdx.Len() - len(r.WorkList)
}

// NewIndex returns the flat index of the new document.
func (r *Result) NewIndex() *jsondoc.FlatIndex {
	return r.newIdx
}
