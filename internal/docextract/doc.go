// Package docextract recovers unlock codes from downloaded PDF documents.
//
// Catalog documents are frequently malformed or deliberately corrupted, so
// extraction is a cascade:
//
//  1. ordered text strategies over github.com/ledongthuc/pdf, first usable
//     output wins (FirstSuccess)
//  2. the code matcher over that text and over its encoding-repaired form
//  3. show-text literals pulled straight out of the content streams,
//     inflating compressed streams when needed
//  4. the code matcher over the raw buffer
//
// Engine.ExtractCode never panics and never returns an error. Finding no
// code is a normal outcome.
package docextract
