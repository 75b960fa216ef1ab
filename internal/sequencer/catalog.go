package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nao1215/scriptorium/internal/browser"
	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/model"
	"github.com/nao1215/scriptorium/internal/roman"
)

// Classify derives the access state of a card from the affordances it
// contains. Challenge cards also carry a code entry, so the documentation
// link is checked first. A card with only a code entry, or with nothing
// recognisable, is locked.
func Classify(card browser.Element, sel config.Selectors) model.AccessState {
	switch {
	case card.Has(sel.Download):
		return model.AccessUnlocked
	case card.Has(sel.Documentation):
		return model.AccessRequiresChallenge
	default:
		return model.AccessLocked
	}
}

// SortChronologically orders items by ascending century rank. Items of
// the same century keep their page order. The input is not modified.
func SortChronologically(items []model.CatalogItem) []model.CatalogItem {
	sorted := make([]model.CatalogItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CenturyRank < sorted[j].CenturyRank
	})
	return sorted
}

// ScanCatalog reads every card on the current page. A card whose century
// label is not a roman numeral is logged and left out.
func (s *Sequencer) ScanCatalog(ctx context.Context) ([]model.CatalogItem, error) {
	cards, err := s.page.QueryAll(ctx, s.sel.Card)
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}

	items := make([]model.CatalogItem, 0, len(cards))
	for i, card := range cards {
		title, _ := card.FindText(s.sel.Title)
		label, _ := card.FindText(s.sel.Century)

		numeral, err := roman.ParseCenturyLabel(label)
		if err != nil {
			s.logInvalidCentury(title, label, err)
			continue
		}
		rank, err := roman.ToRank(numeral)
		if err != nil {
			s.logInvalidCentury(title, label, err)
			continue
		}

		items = append(items, model.CatalogItem{
			Title:         title,
			CenturyLabel:  numeral,
			CenturyRank:   rank,
			AccessState:   Classify(card, s.sel),
			SequenceIndex: i,
			Ref:           card.Path(),
		})
	}

	s.logger.Debug("catalog scanned", "cards", len(cards), "items", len(items))
	return items, nil
}

func (s *Sequencer) logInvalidCentury(title, label string, err error) {
	var numErr *roman.InvalidNumeralError
	if errors.As(err, &numErr) && numErr.Pos >= 0 {
		s.logger.Warn("skipping card with invalid century",
			"title", title, "label", label, "char", string(numErr.Char), "pos", numErr.Pos)
		return
	}
	s.logger.Warn("skipping card with invalid century", "title", title, "label", label, "error", err)
}
