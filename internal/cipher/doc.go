// Package cipher resolves challenge-gated catalog items.
//
// The challenge API answers a (title, unlock code) query with either a direct
// code or a vault puzzle. FetchChallenge decodes the response once into an
// Answer, and Resolve turns any Answer into the code string:
//
//	ans, err := client.FetchChallenge(ctx, "Codex Aureus", "ABC123")
//	if err != nil {
//		return err
//	}
//	code := cipher.Resolve(ans)
//
// A vault puzzle is solved by positional lookup. The vault is already in the
// order the targets refer to, so no searching takes place.
package cipher
