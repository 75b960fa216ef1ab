package cipher

import "strings"

// Vault is a challenge puzzle: an ordered character sequence and the indices
// that spell the code.
type Vault struct {
	// Characters holds single-character strings in vault order.
	Characters []string `json:"vault"`

	// Targets are indices into Characters, in code order.
	Targets []int `json:"targets"`
}

// Solve reconstructs the code held by the vault.
func (v Vault) Solve() string {
	return Solve(v.Characters, v.Targets)
}

// Solve concatenates vault[t] for every target t in order.
// Targets outside [0, len(vault)) are skipped. Empty targets yield "".
func Solve(vault []string, targets []int) string {
	var b strings.Builder
	for _, t := range targets {
		if t < 0 || t >= len(vault) {
			continue
		}
		b.WriteString(vault[t])
	}
	return b.String()
}
