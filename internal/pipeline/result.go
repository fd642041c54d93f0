package pipeline

import (
	"github.com/oukeidos/jsontp/internal/jsondoc"
	"github.com/oukeidos/jsontp/internal/report"
	"github.com/oukeidos/jsontp/internal/translator"
)

// Status is the terminal state of a translation run.
type Status string

const (
	StatusSuccess        Status = report.StatusSuccess
	StatusPartialSuccess Status = report.StatusPartialSuccess
	StatusFailure        Status = report.StatusFailure
	StatusSkipped        Status = "Skipped"
)

// Result contains structured outputs of a run.
type Result struct {
	Status   Status
	Canceled bool

	OutputPath string
	ReportPath string

	Usage translator.Usage
	Cost  float64

	Translated   int
	CarriedOver  int
	TotalBatches int

	FailedBatches []report.FailedBatch
	CanceledKeys  []jsondoc.KeyPath

	Analysis *Analysis
}

// FailedKeys returns the key paths of every failed batch in order.
func (r Result) FailedKeys() []jsondoc.KeyPath {
	var keys []jsondoc.KeyPath
	for _, b := range r.FailedBatches {
		keys = append(keys, b.Keys...)
	}
	return keys
}

// Event reports progress. Events arrive in batch order and token totals
// never decrease.
type Event struct {
	Batch   int
	Batches int
	Attempt int
	State   translator.TranslationState
	Err     error
	// Canceled is set on the final event of a run stopped before all
	// batches were sent.
	Canceled bool

	Translated int
	Failed     int
	Usage      translator.Usage
	Cost       float64
}

func statusFromReport(status string) Status {
	switch status {
	case report.StatusSuccess:
		return StatusSuccess
	case report.StatusPartialSuccess:
		return StatusPartialSuccess
	default:
		return StatusFailure
	}
}
