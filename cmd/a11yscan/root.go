package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for a11yscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "a11yscan",
		Short: "Accessibility compliance auditor for websites",
		Long: `a11yscan audits websites for accessibility issues.

It crawls a site with a headless Chrome, runs pluggable analyzers for
contrast, keyboard access, landmarks, links, forms, headings, skip links,
images and document metadata, and maps every finding to WCAG 2.1,
BITV 2.0 and EN 301 549. Results are scored, written as JSON and Markdown
and kept in a local history for comparison.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewNormsCmd())
	cmd.AddCommand(NewModulesCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
