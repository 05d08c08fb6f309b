package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const starterFlow = `name: example
steps:
  - open: "https://example.com"
  - click: "More information..."
`

const screenshotsGitignore = "enbu-screenshots/\n"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a .enbuflow/ directory with a starter flow",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := ".enbuflow"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return exitCodeError{code: 2, err: fmt.Errorf("creating %s: %w", dir, err)}
	}

	examplePath := filepath.Join(dir, "example.enbu.yaml")
	if _, err := os.Stat(examplePath); os.IsNotExist(err) {
		if err := os.WriteFile(examplePath, []byte(starterFlow), 0o644); err != nil {
			return exitCodeError{code: 2, err: fmt.Errorf("writing %s: %w", examplePath, err)}
		}
	}

	// enbu-screenshots/ is created relative to the run's working directory,
	// not .enbuflow/, so the ignore rule belongs at the project root.
	gitignorePath := ".gitignore"
	if err := appendIfMissing(gitignorePath, screenshotsGitignore); err != nil {
		return exitCodeError{code: 2, err: fmt.Errorf("updating %s: %w", gitignorePath, err)}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "scaffolded %s\n", dir)
	return nil
}

// appendIfMissing appends line to path (creating it if absent), unless the
// file already contains it.
func appendIfMissing(path, line string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if strings.Contains(string(existing), strings.TrimSuffix(line, "\n")) {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}
