package model

import "fmt"

// AccessState is how a catalog item can be opened.
type AccessState int

const (
	// AccessLocked items need the current credential typed into their code entry.
	// It is also the fallback when a card carries no recognised affordance.
	AccessLocked AccessState = iota

	// AccessUnlocked items expose their document for download.
	AccessUnlocked

	// AccessRequiresChallenge items need a challenge answer from the API
	// before they can be unlocked.
	AccessRequiresChallenge
)

// String returns the state name used in logs and reports.
func (s AccessState) String() string {
	switch s {
	case AccessLocked:
		return "locked"
	case AccessUnlocked:
		return "unlocked"
	case AccessRequiresChallenge:
		return "requires-challenge"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s AccessState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AccessState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "locked":
		*s = AccessLocked
	case "unlocked":
		*s = AccessUnlocked
	case "requires-challenge":
		*s = AccessRequiresChallenge
	default:
		return fmt.Errorf("unknown access state %q", text)
	}
	return nil
}

// CatalogItem is one manuscript card. Items are built once when a listing
// page is scanned and are not modified afterwards.
type CatalogItem struct {
	// Title is the card's display title.
	Title string `json:"title"`

	// CenturyLabel is the roman numeral shown on the card, e.g. "XIV".
	CenturyLabel string `json:"century_label"`

	// CenturyRank is the integer value of CenturyLabel and the sort key.
	CenturyRank int `json:"century_rank"`

	// AccessState is the classified access state.
	AccessState AccessState `json:"access_state"`

	// SequenceIndex is the card's position in page order.
	SequenceIndex int `json:"sequence_index"`

	// Ref locates the card in the page for the browser driver.
	Ref string `json:"-"`
}

// String returns a short description for logs.
func (c CatalogItem) String() string {
	return fmt.Sprintf("%s (siglo %s, %s)", c.Title, c.CenturyLabel, c.AccessState)
}
