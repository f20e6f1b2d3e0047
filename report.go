package sshclient

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
)

// Status is the outcome of a single transfer.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// BatchResult summarizes a whole batch.
type BatchResult string

const (
	// ResultSuccess means no item failed, including the empty batch.
	ResultSuccess BatchResult = "SUCCESS"
	// ResultPartialFailure means at least one item failed.
	ResultPartialFailure BatchResult = "PARTIAL_FAILURE"
)

// Operation names the direction of a batch.
type Operation string

const (
	OperationUpload   Operation = "upload"
	OperationDownload Operation = "download"
)

// Outcome records what happened to one planned item.
type Outcome struct {
	// Entry is the planned local file for uploads. For downloads only
	// RelPath and Size are set.
	Entry FileEntry

	// Source and Destination are the resolved paths of the transfer.
	// Destination is empty when resolution failed.
	Source      string
	Destination string

	Status  Status
	Message string

	// Bytes is the number of bytes transferred (planned, for dry runs).
	Bytes int64
}

// Report aggregates the outcomes of a batch. Exactly one Outcome is
// recorded per planned item, failed items included.
type Report struct {
	Operation    Operation
	SuccessCount int
	ErrorCount   int
	Outcomes     []Outcome
	DryRun       bool

	finalized bool
}

func newReport(op Operation, dryRun bool) *Report {
	return &Report{Operation: op, DryRun: dryRun, Outcomes: []Outcome{}}
}

// Record appends o and updates the counters. Records made after the batch
// has been finalized are ignored.
func (r *Report) Record(o Outcome) {
	if r.finalized {
		return
	}
	r.Outcomes = append(r.Outcomes, o)
	if o.Status == StatusSuccess {
		r.SuccessCount++
	} else {
		r.ErrorCount++
	}
}

func (r *Report) finalize() { r.finalized = true }

// Result returns ResultSuccess iff no item failed.
func (r *Report) Result() BatchResult {
	if r.ErrorCount == 0 {
		return ResultSuccess
	}
	return ResultPartialFailure
}

// TotalBytes returns the bytes moved by successful items.
func (r *Report) TotalBytes() int64 {
	var total int64
	for _, o := range r.Outcomes {
		if o.Status == StatusSuccess {
			total += o.Bytes
		}
	}
	return total
}

// Failed returns the failed outcomes in order.
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Summary returns a one-line description of the batch.
func (r *Report) Summary() string {
	verb := "Upload"
	if r.Operation == OperationDownload {
		verb = "Download"
	}
	line := fmt.Sprintf("%s finished: %d succeeded, %d failed (%s)",
		verb, r.SuccessCount, r.ErrorCount, humanize.IBytes(uint64(r.TotalBytes())))
	if r.DryRun {
		line = "[dry run] " + line
	}
	return line
}

type reportFile struct {
	Operation Operation         `json:"operation"`
	Result    BatchResult       `json:"result"`
	DryRun    bool              `json:"dry_run"`
	Files     []reportFileEntry `json:"files"`
	Errors    []reportFileError `json:"errors"`
	Summary   reportSummary     `json:"summary"`
}

type reportFileEntry struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Bytes       int64  `json:"bytes"`
}

type reportFileError struct {
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	Error       string `json:"error"`
}

type reportSummary struct {
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	Bytes     int64 `json:"bytes"`
}

// WriteJSON writes the report as an indented JSON document.
func (r *Report) WriteJSON(w io.Writer) error {
	doc := reportFile{
		Operation: r.Operation,
		Result:    r.Result(),
		DryRun:    r.DryRun,
		Files:     []reportFileEntry{},
		Errors:    []reportFileError{},
		Summary: reportSummary{
			Succeeded: r.SuccessCount,
			Failed:    r.ErrorCount,
			Bytes:     r.TotalBytes(),
		},
	}
	for _, o := range r.Outcomes {
		if o.Status == StatusSuccess {
			doc.Files = append(doc.Files, reportFileEntry{Source: o.Source, Destination: o.Destination, Bytes: o.Bytes})
			continue
		}
		doc.Errors = append(doc.Errors, reportFileError{Source: o.Source, Destination: o.Destination, Error: o.Message})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteJSONFile writes the report to path.
func (r *Report) WriteJSONFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
