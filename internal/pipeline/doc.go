// Package pipeline runs a catalog session as a sequence of steps.
//
// A run logs in, then walks the catalog page by page, handing every page to
// the item sequencer. Each step receives the run report and records its
// results in it. The first step error ends the run; item failures are
// recorded by the catalog step and are not step errors.
package pipeline
