package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Selectors are the CSS selectors describing the catalog site. Card-level
// selectors are evaluated inside a single manuscript card.
type Selectors struct {
	// Login form.
	EmailInput    string `yaml:"emailInput,omitempty"`
	PasswordInput string `yaml:"passwordInput,omitempty"`
	LoginSubmit   string `yaml:"loginSubmit,omitempty"`

	// LoggedIn appears once authentication succeeded.
	LoggedIn string `yaml:"loggedIn,omitempty"`

	// Card matches one manuscript on a listing page.
	Card string `yaml:"card,omitempty"`

	// Title and Century locate the card's title and roman century label.
	Title   string `yaml:"title,omitempty"`
	Century string `yaml:"century,omitempty"`

	// Download is the affordance of an unlocked card.
	Download string `yaml:"download,omitempty"`

	// CodeInput and UnlockButton form the code entry of a locked card.
	CodeInput    string `yaml:"codeInput,omitempty"`
	UnlockButton string `yaml:"unlockButton,omitempty"`

	// Documentation opens the documentation view of a challenge card.
	Documentation string `yaml:"documentation,omitempty"`

	// DocumentationTitle holds the book title inside the documentation view.
	DocumentationTitle string `yaml:"documentationTitle,omitempty"`

	// ConfirmDialog may appear after submitting a code; ConfirmButton
	// dismisses it.
	ConfirmDialog string `yaml:"confirmDialog,omitempty"`
	ConfirmButton string `yaml:"confirmButton,omitempty"`

	// NextPage links to the following listing page when one exists.
	NextPage string `yaml:"nextPage,omitempty"`
}

// DefaultSelectors returns selectors matching the reference catalog markup.
func DefaultSelectors() Selectors {
	return Selectors{
		EmailInput:         "input[name=email]",
		PasswordInput:      "input[name=password]",
		LoginSubmit:        "form button[type=submit]",
		LoggedIn:           ".manuscript-card",
		Card:               ".manuscript-card",
		Title:              ".manuscript-title",
		Century:            ".manuscript-century",
		Download:           "a.download-btn",
		CodeInput:          "input.code-input",
		UnlockButton:       "button.unlock-btn",
		Documentation:      "a.docs-btn",
		DocumentationTitle: ".docs-title",
		ConfirmDialog:      ".confirm-dialog",
		ConfirmButton:      ".confirm-dialog button",
		NextPage:           "a.next-page:not(.disabled)",
	}
}

// Validate reports the first empty selector.
func (s Selectors) Validate() error {
	v := reflect.ValueOf(s)
	t := v.Type()
	for i := range v.NumField() {
		if v.Field(i).String() == "" {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
			return fmt.Errorf("%w: %s", ErrMissingSelector, name)
		}
	}
	return nil
}

// Scoped returns inner restricted to the element located by outer.
func Scoped(outer, inner string) string {
	if outer == "" {
		return inner
	}
	return outer + " " + inner
}
