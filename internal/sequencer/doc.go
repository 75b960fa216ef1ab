// Package sequencer walks a catalog page item by item and turns each item
// into a code.
//
// Items are classified by the affordances their card exposes, ranked by
// the roman numeral of their century and processed oldest first. The code
// produced by one item is the credential that unlocks the next locked
// item, so processing order decides which code feeds which item.
//
// The credential is never stored on the Sequencer. ProcessItem takes the
// current credential and returns the next one:
//
//	cred := ""
//	for _, item := range items {
//	    var res model.ItemResult
//	    cred, res = seq.ProcessItem(ctx, item, cred)
//	    // record res
//	}
//
// A failed item never stops the page. Its result carries the stage where it
// stopped and the error.
package sequencer
