package pipeline

import (
	"fmt"

	"github.com/oukeidos/jsontp/internal/diff"
	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/report"
)

// Preview markers.
const (
	MarkTranslate = "translate"
	MarkSkip      = "skip"
	MarkCarry     = "carry"
)

// PreviewLine is one leaf of the new document and what a run would do with it.
type PreviewLine struct {
	Path  jsondoc.KeyPath
	Class diff.Class
	Mark  string
	Value string
}

// PreviewLines lists every leaf of the new document in document order.
func PreviewLines(a *Analysis) []PreviewLine {
	marks := previewMarks(a)
	seed := a.Diff.Seed()
	lines := make([]PreviewLine, 0, a.NewIndex.Len())
	for _, e := range a.NewIndex.Entries() {
		class, _ := a.Diff.ClassOf(e.Path)
		mark, ok := marks[e.Path.Key()]
		if !ok {
			mark = MarkCarry
		}
		v := e.Value
		if mark == MarkCarry {
			if seeded, ok := seed.Get(e.Path); ok {
				v = seeded
			}
		}
		lines = append(lines, PreviewLine{Path: e.Path, Class: class, Mark: mark, Value: displayValue(v)})
	}
	return lines
}

// PreviewDocument returns the merged document with "[translate]" and "[skip]"
// prefixed to the strings a run would send or deselect.
func PreviewDocument(a *Analysis) (*jsondoc.Value, error) {
	marks := previewMarks(a)
	out := a.Diff.Seed()
	for _, e := range a.NewIndex.Entries() {
		mark, ok := marks[e.Path.Key()]
		if !ok {
			continue
		}
		out.Set(e.Path, jsondoc.String(fmt.Sprintf("[%s] %s", mark, e.Value.Str)))
	}
	return jsondoc.Reassemble(a.New, out)
}

func previewMarks(a *Analysis) map[string]string {
	marks := make(map[string]string, len(a.Selected)+len(a.Deselected))
	for _, e := range a.Selected {
		marks[e.Path.Key()] = MarkTranslate
	}
	for _, p := range a.Deselected {
		marks[p.Key()] = MarkSkip
	}
	return marks
}

// Review converts the analysis into the reviewer workbook content.
func Review(a *Analysis) report.Review {
	marks := previewMarks(a)
	r := report.Review{
		Summary: []report.SummaryItem{
			{Label: "Added", Value: len(a.Diff.Added)},
			{Label: "Changed", Value: len(a.Diff.Changed)},
			{Label: "Unchanged", Value: len(a.Diff.Unchanged)},
			{Label: "Removed", Value: len(a.Diff.Removed)},
			{Label: "Selected for translation", Value: len(a.Selected)},
			{Label: "Batches", Value: a.Estimate.Batches},
			{Label: "Estimated input tokens", Value: a.Estimate.InputTokens},
			{Label: "Estimated output tokens", Value: a.Estimate.OutputTokens},
			{Label: "Estimated cost (USD)", Value: fmt.Sprintf("%.6f", a.Estimate.Cost)},
		},
	}

	added := append(append([]jsondoc.KeyPath{}, a.Diff.Added...), a.Diff.Changed...)
	for _, p := range added {
		e, _ := a.NewIndex.Lookup(p)
		row := report.Row{Key: p.String(), New: displayValue(e.Value), Action: marks[p.Key()]}
		if row.Action == "" {
			row.Action = MarkCarry
		}
		if prev, ok := a.OldIndex.Lookup(p); ok {
			row.Old = displayValue(prev.Value)
		}
		r.Added = append(r.Added, row)
	}
	for _, p := range a.Diff.Removed {
		e, _ := a.OldIndex.Lookup(p)
		r.Removed = append(r.Removed, report.Row{Key: p.String(), Old: displayValue(e.Value)})
	}
	for _, p := range a.Diff.Unchanged {
		e, _ := a.NewIndex.Lookup(p)
		row := report.Row{Key: p.String(), New: displayValue(e.Value)}
		if prev, ok := a.OldIndex.Lookup(p); ok {
			row.Old = displayValue(prev.Value)
		}
		r.Unchanged = append(r.Unchanged, row)
	}
	return r
}

func displayValue(v *jsondoc.Value) string {
	if v == nil {
		return ""
	}
	switch v.Kind {
	case jsondoc.KindString, jsondoc.KindNumber:
		return v.Str
	case jsondoc.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case jsondoc.KindNull:
		return "null"
	default:
		data, err := jsondoc.Encode(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
