package model

import (
	"encoding/json"
	"time"
)

// Source is where a ledger code came from.
type Source string

const (
	// SourcePDF marks a code extracted from a downloaded document.
	SourcePDF Source = "PDF"

	// SourceAPI marks a code obtained from the challenge API.
	SourceAPI Source = "API"
)

// LedgerEntry records one obtained code.
type LedgerEntry struct {
	Source       Source `json:"source"`
	ItemTitle    string `json:"item_title"`
	CenturyLabel string `json:"century_label"`

	// InputCode is the credential sent to the API. Empty for PDF entries.
	InputCode string `json:"input_code,omitempty"`

	OutputCode string `json:"output_code"`

	// Strategy names the extraction strategy or answer kind that produced
	// OutputCode.
	Strategy string `json:"strategy,omitempty"`

	// DocumentDigest is the SHA3-256 of the source document. PDF only.
	DocumentDigest string `json:"document_digest,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// Ledger is the append-only record of a run's codes.
type Ledger struct {
	entries []LedgerEntry
	now     func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Append records an entry, stamping RecordedAt if unset.
func (l *Ledger) Append(e LedgerEntry) {
	if e.RecordedAt.IsZero() {
		if l.now == nil {
			l.now = time.Now
		}
		e.RecordedAt = l.now()
	}
	l.entries = append(l.entries, e)
}

// Entries returns a copy of the recorded entries in insertion order.
func (l *Ledger) Entries() []LedgerEntry {
	if l == nil {
		return nil
	}
	out := make([]LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// CountBySource returns how many entries came from src.
func (l *Ledger) CountBySource(src Source) int {
	if l == nil {
		return 0
	}
	n := 0
	for _, e := range l.entries {
		if e.Source == src {
			n++
		}
	}
	return n
}

// Last returns the most recent entry.
func (l *Ledger) Last() (LedgerEntry, bool) {
	if l.Len() == 0 {
		return LedgerEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// MarshalJSON encodes the ledger as a list of entries.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	entries := l.Entries()
	if entries == nil {
		entries = []LedgerEntry{}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON restores a ledger from a list of entries.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var entries []LedgerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.entries = entries
	if l.now == nil {
		l.now = time.Now
	}
	return nil
}
