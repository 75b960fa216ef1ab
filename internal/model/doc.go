// Package model defines the data shared by the sequencer, the report
// writers and the history store.
//
//   - CatalogItem: a manuscript card discovered on a listing page
//   - Ledger: the append-only record of every code obtained during a run
//   - ItemResult: the outcome of processing one item
//   - RunReport: everything a run produced, ready for serialization
//
// The types live in their own package so that sequencer, report and
// database can share them without import cycles.
package model
