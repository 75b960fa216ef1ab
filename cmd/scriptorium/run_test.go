package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/report"
)

const (
	testEmail    = "monk@abbey.test"
	testPassword = "secret"
)

func pdfDocument(text string) string {
	return "%PDF-1.4\n" + strings.Repeat("Folio en blanco. ", 8) + text + "\n"
}

// newTestCatalog serves a one-page catalog: Codex A (XV) is open and holds
// ABCD1234, Codex B (XVI) opens with ABCD1234 and holds EFGH5678.
func newTestCatalog(t *testing.T) *httptest.Server {
	t.Helper()

	var mu sync.Mutex
	unlocked := false

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><form action="/session" method="post">
<input name="email"><input name="password" type="password"><button type="submit">Entrar</button>
</form></body></html>`)
	})
	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		if r.ParseForm() != nil || r.PostForm.Get("email") != testEmail || r.PostForm.Get("password") != testPassword {
			fmt.Fprint(w, `<html><body><p>Credenciales incorrectas</p></body></html>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abbey", Path: "/"})
		http.Redirect(w, r, "/catalog", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /catalog", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("sid"); err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		mu.Lock()
		open := unlocked
		mu.Unlock()

		var b strings.Builder
		b.WriteString(`<html><body>`)
		b.WriteString(`<div class="manuscript-card"><h3 class="manuscript-title">Codex B</h3><span class="manuscript-century">Siglo XVI</span>`)
		if open {
			b.WriteString(`<a class="download-btn" href="/files/b.pdf">Descargar</a>`)
		} else {
			b.WriteString(`<form action="/unlock/b" method="post"><input class="code-input" name="code"><button class="unlock-btn" type="submit">Abrir</button></form>`)
		}
		b.WriteString(`</div>`)
		b.WriteString(`<div class="manuscript-card"><h3 class="manuscript-title">Codex A</h3><span class="manuscript-century">Siglo XV</span><a class="download-btn" href="/files/a.pdf">Descargar</a></div>`)
		b.WriteString(`</body></html>`)
		fmt.Fprint(w, b.String())
	})
	mux.HandleFunc("POST /unlock/b", func(w http.ResponseWriter, r *http.Request) {
		if r.ParseForm() == nil && r.PostForm.Get("code") == "ABCD1234" {
			mu.Lock()
			unlocked = true
			mu.Unlock()
		}
		http.Redirect(w, r, "/catalog", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /files/a.pdf", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, pdfDocument("Código de acceso: ABCD1234"))
	})
	mux.HandleFunc("GET /files/b.pdf", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		open := unlocked
		mu.Unlock()
		if !open {
			http.Error(w, "locked", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, pdfDocument("Código de acceso: EFGH5678"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// writeConfigFile writes a config file holding the password.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRunCmd_EndToEnd(t *testing.T) {
	t.Parallel()

	srv := newTestCatalog(t)
	cfgPath := writeConfigFile(t, "password: "+testPassword+"\npollInterval: 20ms\nretryDelay: 10ms\n")
	dbDir := t.TempDir()
	downloadDir := t.TempDir()

	out, err := executeRoot(t, "run",
		"--config", cfgPath,
		"--base-url", srv.URL,
		"--email", testEmail,
		"--download-dir", downloadDir,
		"--db-dir", dbDir,
		"--item-timeout", "3s",
		"--request-timeout", "3s",
		"--json",
	)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}

	var got report.JSONReport
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, out)
	}

	want := report.Summary{TotalCodes: 2, PDFCodes: 2, Resolved: 2, FinalCode: "EFGH5678"}
	if got.Summary != want {
		t.Errorf("summary = %+v, want %+v", got.Summary, want)
	}
	if got.Report.Items[0].Item.Title != "Codex A" {
		t.Errorf("expected oldest item first, got %q", got.Report.Items[0].Item.Title)
	}

	for _, name := range []string{"codex-a.pdf", "codex-b.pdf"} {
		if _, err := os.Stat(filepath.Join(downloadDir, name)); err != nil {
			t.Errorf("expected downloaded %s: %v", name, err)
		}
	}

	history, err := executeRoot(t, "history", "--db-dir", dbDir)
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if !strings.Contains(history, srv.URL) || !strings.Contains(history, "EFGH5678") {
		t.Errorf("expected run in history, got:\n%s", history)
	}
}

func TestRunCmd_ReportFileAndCodesOnly(t *testing.T) {
	t.Parallel()

	srv := newTestCatalog(t)
	cfgPath := writeConfigFile(t, "password: "+testPassword+"\npollInterval: 20ms\n")
	reportPath := filepath.Join(t.TempDir(), "reports", "codes.txt")

	out, err := executeRoot(t, "run",
		"--config", cfgPath,
		"--base-url", srv.URL,
		"--email", testEmail,
		"--download-dir", t.TempDir(),
		"--no-history",
		"--item-timeout", "3s",
		"--codes-only",
		"-o", reportPath,
	)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if out != "" {
		t.Errorf("expected nothing on stdout, got %q", out)
	}

	content, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	wantLines := []string{
		"PDF\tCodex A\tXV\tABCD1234",
		"PDF\tCodex B\tXVI\tEFGH5678",
	}
	if got := strings.TrimSpace(string(content)); got != strings.Join(wantLines, "\n") {
		t.Errorf("unexpected codes:\n%s", got)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(reportPath)
		if err != nil {
			t.Fatalf("stat report: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("expected permissions 0600, got %o", perm)
		}
	}
}

func TestRunCmd_LoginFailureStillReports(t *testing.T) {
	t.Parallel()

	srv := newTestCatalog(t)
	cfgPath := writeConfigFile(t, "password: wrong\npollInterval: 20ms\n")

	out, err := executeRoot(t, "run",
		"--config", cfgPath,
		"--base-url", srv.URL,
		"--email", testEmail,
		"--download-dir", t.TempDir(),
		"--no-history",
		"--request-timeout", "300ms",
	)
	if err == nil {
		t.Fatal("expected run error")
	}
	if !strings.Contains(err.Error(), "run failed") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "SCRIPTORIUM RUN REPORT") || !strings.Contains(out, "Error - ") {
		t.Errorf("expected error report on stdout, got:\n%s", out)
	}
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, "password: x\n")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{
			name: "missing base URL",
			args: []string{"run", "--config", cfgPath, "--base-url", "", "--email", "a@b.c"},
			want: config.ErrNoBaseURL,
		},
		{
			name: "conflicting formats",
			args: []string{"run", "--config", cfgPath, "--base-url", "https://c.example", "--email", "a@b.c", "-j", "-m"},
			want: config.ErrConflictingReportFormats,
		},
		{
			name: "missing config file",
			args: []string{"run", "--config", filepath.Join(t.TempDir(), "nope.yaml")},
			want: config.ErrConfigNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := executeRoot(t, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// newParsedRunCmd returns a run command with the root flags attached and
// args parsed, without executing it.
func newParsedRunCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := NewRunCmd()
	cmd.Flags().AddFlagSet(NewRootCmd().PersistentFlags())
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}
	return cmd
}

// Not parallel: uses t.Setenv.
func TestBuildConfig_Precedence(t *testing.T) {
	cfgPath := writeConfigFile(t, strings.Join([]string{
		"baseURL: https://file.example",
		"apiURL: https://api.file.example",
		"email: file@example.org",
		"password: from-file",
		"maxPages: 7",
		"itemTimeout: 9s",
		"selectors:",
		"  card: article.codex",
	}, "\n"))
	localPath := cfgPath + config.LocalSuffix
	if err := os.WriteFile(localPath, []byte("password: from-local\n"), 0o600); err != nil {
		t.Fatalf("write local config: %v", err)
	}

	t.Setenv(config.EnvBaseURL, "https://env.example")
	t.Setenv(config.EnvEmail, "env@example.org")

	cmd := newParsedRunCmd(t, "--config", cfgPath, "--email", "flag@example.org", "--max-pages", "3", "-m", "-v")

	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("buildConfig() error: %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"base URL from env", cfg.BaseURL, "https://env.example"},
		{"API URL from file", cfg.APIURL, "https://api.file.example"},
		{"email from flag", cfg.Email, "flag@example.org"},
		{"password from local override", cfg.Password, "from-local"},
		{"max pages from flag", cfg.MaxPages, 3},
		{"item timeout from file", cfg.ItemTimeout, 9 * time.Second},
		{"request timeout default", cfg.RequestTimeout, config.DefaultRequestTimeout},
		{"card selector from file", cfg.Selectors.Card, "article.codex"},
		{"title selector default", cfg.Selectors.Title, config.DefaultSelectors().Title},
		{"markdown", cfg.MarkdownReport, true},
		{"verbose", cfg.Verbose, true},
		{"history on", cfg.SaveToDB, true},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestApplyFlags_NoHistory(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	cmd := newParsedRunCmd(t, "--no-history", "--db-dir", dbDir, "--attempts", "5", "--request-timeout", "1s")

	cfg := config.NewConfig()
	if err := applyFlags(cmd, cfg); err != nil {
		t.Fatalf("applyFlags() error: %v", err)
	}

	if cfg.SaveToDB {
		t.Error("expected history to be disabled")
	}
	if cfg.DBDir != dbDir {
		t.Errorf("DBDir = %q, want %q", cfg.DBDir, dbDir)
	}
	if cfg.DownloadAttempts != 5 {
		t.Errorf("DownloadAttempts = %d, want 5", cfg.DownloadAttempts)
	}
	if cfg.RequestTimeout != time.Second {
		t.Errorf("RequestTimeout = %v, want 1s", cfg.RequestTimeout)
	}
	if cfg.ItemTimeout != config.DefaultItemTimeout {
		t.Errorf("unset flag overrode ItemTimeout: %v", cfg.ItemTimeout)
	}
}
