package model

import (
	"context"
	"errors"
	"time"
)

// ItemStatus is the final state of a processed item.
type ItemStatus string

const (
	// ItemResolved means the item was processed. It may or may not have
	// produced a code.
	ItemResolved ItemStatus = "resolved"

	// ItemFailed means processing stopped early; the run continued.
	ItemFailed ItemStatus = "failed"
)

// ItemResult is the outcome of processing one catalog item.
type ItemResult struct {
	Item   CatalogItem `json:"item"`
	Status ItemStatus  `json:"status"`

	// Code is the code this item produced, if any.
	Code string `json:"code,omitempty"`

	// Stage is the processing step reached: where the code came from for
	// resolved items, where processing stopped for failed ones.
	Stage string `json:"stage,omitempty"`

	// Entries are the ledger entries this item produced, in order.
	Entries []LedgerEntry `json:"entries,omitempty"`

	Err   error  `json:"-"`
	Error string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// Failed reports whether the item failed.
func (r ItemResult) Failed() bool {
	return r.Status == ItemFailed
}

// RunReport collects everything a run produced.
type RunReport struct {
	// Site is the catalog base URL.
	Site string `json:"site"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Ledger holds every code obtained, in order.
	Ledger *Ledger `json:"ledger"`

	// Items holds one result per processed item, in processing order.
	Items []ItemResult `json:"items"`

	// PagesVisited counts listing pages walked.
	PagesVisited int `json:"pages_visited"`

	// PerformedSteps lists the pipeline steps that completed.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Interrupted is set when the run was cancelled by a signal or deadline.
	Interrupted bool `json:"interrupted"`

	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewRunReport creates a report for a run against site.
func NewRunReport(site string) *RunReport {
	return &RunReport{
		Site:      site,
		StartedAt: time.Now(),
		Ledger:    NewLedger(),
		Items:     make([]ItemResult, 0),
	}
}

// AddItemResult records an item outcome, filling Error from Err.
func (r *RunReport) AddItemResult(res ItemResult) {
	if res.Err != nil && res.Error == "" {
		res.Error = res.Err.Error()
	}
	r.Items = append(r.Items, res)
}

// TotalCodes returns the number of codes recorded in the ledger.
func (r *RunReport) TotalCodes() int {
	return r.Ledger.Len()
}

// FailureCount returns the number of failed items.
func (r *RunReport) FailureCount() int {
	n := 0
	for _, it := range r.Items {
		if it.Failed() {
			n++
		}
	}
	return n
}

// ResolvedCount returns the number of resolved items.
func (r *RunReport) ResolvedCount() int {
	return len(r.Items) - r.FailureCount()
}

// Finish stamps the end time and records err. Context cancellation marks
// the run as interrupted.
func (r *RunReport) Finish(err error) {
	r.FinishedAt = time.Now()
	if err == nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.Interrupted = true
	}
}

// Duration returns how long the run took. Zero until Finish is called.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
