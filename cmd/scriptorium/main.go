// Package main provides the entry point for the scriptorium CLI.
//
// scriptorium logs in to a gated manuscript catalog, walks its items in
// chronological order and recovers the unlock code chain, carrying each
// code forward to open the next item.
//
// Usage:
//
//	scriptorium run --base-url https://catalog.example
//	scriptorium extract document.pdf
//	scriptorium history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
