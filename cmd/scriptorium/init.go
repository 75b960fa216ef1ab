package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/scriptorium/internal/config"
)

//go:embed templates/scriptorium.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a scriptorium configuration file",
		Long: `Init writes a commented .scriptorium configuration file.

The generated file documents:
- The catalog and challenge API URLs
- Timeouts, download retries and the page limit
- Documentation title prefixes and every CSS selector

Credentials may be stored in a .scriptorium.local file next to it, which is
merged over the main file and can be kept out of version control.

Examples:
  # Create .scriptorium in current directory
  scriptorium init

  # Create config file at a specific path
  scriptorium init -o myconfig.yaml

  # Force overwrite existing file
  scriptorium init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/scriptorium.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may end up holding credentials.
	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - baseURL of the catalog")
	fmt.Fprintln(out, "  - selectors if the site markup differs from the defaults")
	fmt.Fprintf(out, "  - credentials, preferably in %s%s\n", outputPath, config.LocalSuffix)

	return nil
}
