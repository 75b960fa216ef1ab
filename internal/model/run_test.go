package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNewRunReport(t *testing.T) {
	t.Parallel()

	r := NewRunReport("https://catalog.example")

	if r.Site != "https://catalog.example" {
		t.Errorf("got %q, expected site", r.Site)
	}
	if r.StartedAt.IsZero() || time.Since(r.StartedAt) > time.Second {
		t.Error("expected StartedAt to be recent")
	}
	if r.Ledger == nil || r.Items == nil {
		t.Error("expected ledger and items to be initialized")
	}
	if r.Duration() != 0 {
		t.Error("unfinished run has no duration")
	}
}

func TestRunReport_Counts(t *testing.T) {
	t.Parallel()

	r := NewRunReport("site")
	r.Ledger.Append(LedgerEntry{Source: SourcePDF, OutputCode: "AAA111"})
	r.AddItemResult(ItemResult{Item: CatalogItem{Title: "Codex A"}, Status: ItemResolved, Code: "AAA111"})
	r.AddItemResult(ItemResult{Item: CatalogItem{Title: "Codex B"}, Status: ItemFailed, Err: errors.New("no credential")})
	r.AddItemResult(ItemResult{Item: CatalogItem{Title: "Codex D"}, Status: ItemResolved})

	if got := r.TotalCodes(); got != 1 {
		t.Errorf("TotalCodes() = %d, expected 1", got)
	}
	if got := r.FailureCount(); got != 1 {
		t.Errorf("FailureCount() = %d, expected 1", got)
	}
	if got := r.ResolvedCount(); got != 2 {
		t.Errorf("ResolvedCount() = %d, expected 2", got)
	}
	if r.Items[1].Error != "no credential" {
		t.Errorf("expected Error to mirror Err, got %q", r.Items[1].Error)
	}
}

func TestRunReport_Finish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		err             error
		wantMessage     string
		wantInterrupted bool
	}{
		{name: "success", err: nil},
		{name: "failure", err: errors.New("login failed"), wantMessage: "login failed"},
		{name: "cancelled", err: fmt.Errorf("walk catalog: %w", context.Canceled), wantMessage: "walk catalog: context canceled", wantInterrupted: true},
		{name: "deadline", err: context.DeadlineExceeded, wantMessage: "context deadline exceeded", wantInterrupted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewRunReport("site")
			r.Finish(tt.err)

			if r.FinishedAt.IsZero() {
				t.Error("expected FinishedAt to be set")
			}
			if r.ErrorMessage != tt.wantMessage {
				t.Errorf("ErrorMessage = %q, expected %q", r.ErrorMessage, tt.wantMessage)
			}
			if r.Interrupted != tt.wantInterrupted {
				t.Errorf("Interrupted = %v, expected %v", r.Interrupted, tt.wantInterrupted)
			}
			if r.Duration() < 0 {
				t.Error("negative duration")
			}
		})
	}
}
