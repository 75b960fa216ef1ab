// Package codematch finds unlock codes embedded in free text.
//
// Documents served by the catalog are frequently produced with broken font
// mappings or re-encoded more than once, so the phrase that introduces the
// code ("Código de acceso") can arrive mangled: "CÃ³digo", "C?digo",
// "C�digo" or spaced out glyph by glyph. The matcher therefore tries an
// ordered list of tolerant patterns and returns the first acceptable hit.
//
// # Usage
//
//	code, ok := codematch.SearchCodeInText(text)
//	if ok && codematch.IsValidCode(code) {
//	    // use code
//	}
package codematch
