package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default item timeout is 15 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.ItemTimeout != 15*time.Second {
			t.Errorf("expected ItemTimeout to be 15s, got %v", cfg.ItemTimeout)
		}
	})

	t.Run("downloads retry three times two seconds apart", func(t *testing.T) {
		t.Parallel()
		if cfg.DownloadAttempts != 3 || cfg.RetryDelay != 2*time.Second {
			t.Errorf("got %d attempts / %v delay", cfg.DownloadAttempts, cfg.RetryDelay)
		}
	})

	t.Run("default selectors are complete", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Selectors.Validate(); err != nil {
			t.Errorf("default selectors invalid: %v", err)
		}
	})

	t.Run("download dir lives under the cache dir", func(t *testing.T) {
		t.Parallel()
		if !strings.Contains(cfg.DownloadDir, AppName) {
			t.Errorf("unexpected download dir %q", cfg.DownloadDir)
		}
	})

	t.Run("title prefixes are a private copy", func(t *testing.T) {
		t.Parallel()
		other := NewConfig()
		other.TitlePrefixes[0] = "changed"
		if DefaultTitlePrefixes[0] == "changed" {
			t.Error("NewConfig must not alias DefaultTitlePrefixes")
		}
	})
}

// TestConfigValidate tests one validation rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.BaseURL = "https://catalog.example"
		cfg.Email = "monk@abbey.test"
		cfg.Password = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "separate API URL", mutate: func(c *Config) { c.APIURL = "http://api.example:8080" }},
		{name: "missing base URL", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: ErrNoBaseURL},
		{name: "relative base URL", mutate: func(c *Config) { c.BaseURL = "catalog.example" }, wantErr: ErrInvalidURL},
		{name: "ftp API URL", mutate: func(c *Config) { c.APIURL = "ftp://api.example" }, wantErr: ErrInvalidURL},
		{name: "missing password", mutate: func(c *Config) { c.Password = "" }, wantErr: ErrNoCredentials},
		{name: "missing email", mutate: func(c *Config) { c.Email = "" }, wantErr: ErrNoCredentials},
		{name: "zero item timeout", mutate: func(c *Config) { c.ItemTimeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative poll interval", mutate: func(c *Config) { c.PollInterval = -time.Second }, wantErr: ErrInvalidTimeout},
		{name: "zero attempts", mutate: func(c *Config) { c.DownloadAttempts = 0 }, wantErr: ErrInvalidAttempts},
		{name: "negative retry delay", mutate: func(c *Config) { c.RetryDelay = -time.Second }, wantErr: ErrInvalidRetryDelay},
		{name: "zero retry delay is fine", mutate: func(c *Config) { c.RetryDelay = 0 }},
		{name: "zero max pages", mutate: func(c *Config) { c.MaxPages = 0 }, wantErr: ErrInvalidMaxPages},
		{name: "both report formats", mutate: func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, wantErr: ErrConflictingReportFormats},
		{name: "empty selector", mutate: func(c *Config) { c.Selectors.Card = "" }, wantErr: ErrMissingSelector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSelectorsValidate_NamesField(t *testing.T) {
	t.Parallel()

	s := DefaultSelectors()
	s.DocumentationTitle = ""
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "documentationTitle") {
		t.Errorf("expected error naming documentationTitle, got %v", err)
	}
}

func TestScoped(t *testing.T) {
	t.Parallel()

	if got := Scoped("html > body > div:nth-child(2)", "a.download-btn"); got != "html > body > div:nth-child(2) a.download-btn" {
		t.Errorf("unexpected %q", got)
	}
	if got := Scoped("", ".x"); got != ".x" {
		t.Errorf("unexpected %q", got)
	}
}

func TestChallengeAPIURL(t *testing.T) {
	t.Parallel()

	cfg := &Config{BaseURL: "https://catalog.example"}
	if got := cfg.ChallengeAPIURL(); got != "https://catalog.example" {
		t.Errorf("expected fallback to base URL, got %q", got)
	}
	cfg.APIURL = "https://api.example"
	if got := cfg.ChallengeAPIURL(); got != "https://api.example" {
		t.Errorf("expected API URL, got %q", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// TestLoadConfigFile tests reading and merging config files.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.scriptorium")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".scriptorium")
		writeFile(t, path, `baseURL: https://catalog.example
email: monk@abbey.test
itemTimeout: 20s
maxPages: 7
titlePrefixes:
  - "Docs: "
selectors:
  card: article.book
`)

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.BaseURL != "https://catalog.example" || f.Email != "monk@abbey.test" {
			t.Errorf("unexpected file %+v", f)
		}
		if f.ItemTimeout != 20*time.Second {
			t.Errorf("expected 20s, got %v", f.ItemTimeout)
		}
		if f.MaxPages != 7 || len(f.TitlePrefixes) != 1 {
			t.Errorf("unexpected maxPages/titlePrefixes: %d %v", f.MaxPages, f.TitlePrefixes)
		}
		if f.Selectors.Card != "article.book" {
			t.Errorf("expected card selector, got %q", f.Selectors.Card)
		}
	})

	t.Run("local file overrides main file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".scriptorium")
		writeFile(t, path, `baseURL: https://catalog.example
email: monk@abbey.test
selectors:
  card: article.book
  title: h2
`)
		writeFile(t, path+LocalSuffix, `email: scribe@abbey.test
password: local-secret
selectors:
  title: h3.name
`)

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.BaseURL != "https://catalog.example" {
			t.Errorf("base URL lost in merge: %q", f.BaseURL)
		}
		if f.Email != "scribe@abbey.test" || f.Password != "local-secret" {
			t.Errorf("local values not applied: %q %q", f.Email, f.Password)
		}
		if f.Selectors.Card != "article.book" || f.Selectors.Title != "h3.name" {
			t.Errorf("unexpected selectors %+v", f.Selectors)
		}
	})

	t.Run("local file alone is enough", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".scriptorium")
		writeFile(t, path+LocalSuffix, "maxPages: 3\n")

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.MaxPages != 3 {
			t.Errorf("expected 3, got %d", f.MaxPages)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".scriptorium")
		writeFile(t, path, `invalid: yaml: content: [}`)

		if _, err := LoadConfigFile(path); err == nil || errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected parse error, got %v", err)
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		writeFile(t, path, "maxPages: 1\n")

		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit path with only a local override", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		writeFile(t, path+LocalSuffix, "maxPages: 1\n")

		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

func TestApplyFile(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	err := cfg.ApplyFile(&File{
		BaseURL:          "https://catalog.example",
		DownloadAttempts: 5,
		RetryDelay:       time.Second,
		TitlePrefixes:    []string{"Docs: "},
		Selectors:        Selectors{Card: "article.book"},
	})
	if err != nil {
		t.Fatalf("ApplyFile() error: %v", err)
	}

	if cfg.BaseURL != "https://catalog.example" {
		t.Errorf("BaseURL not applied: %q", cfg.BaseURL)
	}
	if cfg.DownloadAttempts != 5 || cfg.RetryDelay != time.Second {
		t.Errorf("download settings not applied: %d %v", cfg.DownloadAttempts, cfg.RetryDelay)
	}
	if cfg.ItemTimeout != DefaultItemTimeout {
		t.Errorf("unset value overwrote default: %v", cfg.ItemTimeout)
	}
	if cfg.Selectors.Card != "article.book" {
		t.Errorf("card selector not applied: %q", cfg.Selectors.Card)
	}
	if cfg.Selectors.Title != DefaultSelectors().Title {
		t.Errorf("unset selector overwrote default: %q", cfg.Selectors.Title)
	}
	if len(cfg.TitlePrefixes) != 1 || cfg.TitlePrefixes[0] != "Docs: " {
		t.Errorf("unexpected prefixes %v", cfg.TitlePrefixes)
	}

	if err := cfg.ApplyFile(nil); err != nil {
		t.Errorf("nil file must be a no-op, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvBaseURL:  "https://env.example",
		EnvEmail:    " monk@abbey.test ",
		EnvPassword: "secret",
		EnvAPIURL:   "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := NewConfig()
	cfg.APIURL = "https://api.from.file"
	cfg.ApplyEnv(lookup)

	if cfg.BaseURL != "https://env.example" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Email != "monk@abbey.test" {
		t.Errorf("Email = %q, expected trimmed value", cfg.Email)
	}
	if cfg.Password != "secret" {
		t.Errorf("Password not applied")
	}
	if cfg.APIURL != "https://api.from.file" {
		t.Errorf("empty env value must not clear APIURL, got %q", cfg.APIURL)
	}
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":     XDGDataDir(),
		"config":   XDGConfigDir(),
		"download": XDGDownloadDir(),
	} {
		if dir == "" {
			t.Errorf("expected non-empty XDG %s dir", name)
		}
	}
}
