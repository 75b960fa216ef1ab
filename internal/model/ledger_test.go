package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLedger_Append(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	l := NewLedger()
	l.now = func() time.Time { return fixed }

	l.Append(LedgerEntry{Source: SourcePDF, ItemTitle: "Codex A", OutputCode: "AAA111"})
	l.Append(LedgerEntry{Source: SourceAPI, ItemTitle: "Codex C", InputCode: "AAA111", OutputCode: "CCC333"})
	explicit := fixed.Add(-time.Hour)
	l.Append(LedgerEntry{Source: SourcePDF, ItemTitle: "Codex C", OutputCode: "DDD444", RecordedAt: explicit})

	t.Run("keeps insertion order", func(t *testing.T) {
		t.Parallel()
		entries := l.Entries()
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		if entries[0].OutputCode != "AAA111" || entries[2].OutputCode != "DDD444" {
			t.Errorf("unexpected order: %+v", entries)
		}
	})

	t.Run("stamps missing time", func(t *testing.T) {
		t.Parallel()
		entries := l.Entries()
		if !entries[0].RecordedAt.Equal(fixed) {
			t.Errorf("expected %v, got %v", fixed, entries[0].RecordedAt)
		}
		if !entries[2].RecordedAt.Equal(explicit) {
			t.Errorf("explicit time overwritten: %v", entries[2].RecordedAt)
		}
	})

	t.Run("counts by source", func(t *testing.T) {
		t.Parallel()
		if got := l.CountBySource(SourcePDF); got != 2 {
			t.Errorf("expected 2 PDF entries, got %d", got)
		}
		if got := l.CountBySource(SourceAPI); got != 1 {
			t.Errorf("expected 1 API entry, got %d", got)
		}
	})

	t.Run("returns copies", func(t *testing.T) {
		t.Parallel()
		entries := l.Entries()
		entries[0].OutputCode = "TAMPERED"
		if l.Entries()[0].OutputCode != "AAA111" {
			t.Error("Entries must not expose internal storage")
		}
	})

	t.Run("last entry", func(t *testing.T) {
		t.Parallel()
		last, ok := l.Last()
		if !ok || last.OutputCode != "DDD444" {
			t.Errorf("unexpected last entry %+v (ok=%v)", last, ok)
		}
	})
}

func TestLedger_NilAndEmpty(t *testing.T) {
	t.Parallel()

	var nilLedger *Ledger
	if nilLedger.Len() != 0 || nilLedger.Entries() != nil || nilLedger.CountBySource(SourcePDF) != 0 {
		t.Error("nil ledger must behave as empty")
	}
	if _, ok := NewLedger().Last(); ok {
		t.Error("empty ledger has no last entry")
	}

	data, err := json.Marshal(NewLedger())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("expected empty array, got %s", data)
	}
}

func TestLedger_JSON(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	l.Append(LedgerEntry{Source: SourceAPI, ItemTitle: "Codex C", InputCode: "AAA111", OutputCode: "KELLS1234", Strategy: "vault"})

	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored Ledger
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", restored.Len())
	}
	got := restored.Entries()[0]
	if got.InputCode != "AAA111" || got.OutputCode != "KELLS1234" || got.Source != SourceAPI {
		t.Errorf("unexpected entry %+v", got)
	}

	restored.Append(LedgerEntry{Source: SourcePDF, OutputCode: "NEXT9999"})
	if restored.Entries()[1].RecordedAt.IsZero() {
		t.Error("restored ledger must still stamp entries")
	}
}
