package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/scriptorium/internal/docextract"
)

// errNoCodeFound is returned by extract when at least one document held no code.
var errNoCodeFound = errors.New("no code found")

// extraction is the extract result for one file.
type extraction struct {
	File     string `json:"file"`
	Code     string `json:"code,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
	Digest   string `json:"digest"`
}

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <pdf>...",
		Short: "Find the unlock code in local PDF documents",
		Long: `Extract runs the same extraction cascade as "run" on local files: text
strategies, encoding repair, raw content streams and finally the raw bytes.

The command fails if any file cannot be read or holds no code.

Examples:
  scriptorium extract downloads/01_codex_aureus.pdf
  scriptorium extract -j downloads/*.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExtractCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

func runExtractCmd(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	engine := docextract.New(docextract.WithLogger(logger))

	results := make([]extraction, 0, len(args))
	missing := 0
	for _, path := range args {
		buf, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		res, ok := engine.ExtractCode(buf)
		if !ok {
			missing++
			logger.Warn("no code found", "file", path, "size", len(buf))
		}
		results = append(results, extraction{
			File:     path,
			Code:     res.Code,
			Stage:    res.Stage,
			Strategy: res.Strategy,
			Pattern:  res.Pattern,
			Digest:   docextract.Digest(buf),
		})
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.AppendHeader(table.Row{"File", "Code", "Stage", "Strategy"})
		for _, r := range results {
			t.AppendRow(table.Row{r.File, dash(r.Code), dash(r.Stage), dash(r.Strategy)})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	if missing > 0 {
		return fmt.Errorf("%w in %d of %d file(s)", errNoCodeFound, missing, len(args))
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
