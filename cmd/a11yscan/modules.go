package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/a11yscan/internal/analyzer"
	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/pipeline"
)

// NewModulesCmd creates the modules command.
func NewModulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List available analyzers and profiles",
		Long: `Modules lists every registered analyzer with its version and
prerequisites, followed by the built-in profiles and the custom profiles
of the configuration file.

Examples:
  a11yscan modules
  a11yscan modules -c ./.a11yscan.yaml`,
		Args: cobra.NoArgs,
		RunE: runModulesCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .a11yscan.yaml in current or home directory)")

	return cmd
}

// runModulesCmd executes the modules command.
func runModulesCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if err := loadConfigFile(cfg); err != nil {
		return err
	}

	registry, err := analyzer.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to build analyzer registry: %w", err)
	}

	out := cmd.OutOrStdout()
	writeModules(out, registry)
	fmt.Fprintln(out)
	writeProfiles(out, cfg.Profiles)
	return nil
}

// writeModules prints one line per registered analyzer.
func writeModules(out io.Writer, registry *pipeline.Registry) {
	fmt.Fprintf(out, "Analyzers (%d):\n\n", len(registry.All()))
	fmt.Fprintf(out, "  %-14s  %-8s  %s\n", "Slug", "Version", "Requires")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 40))
	for _, a := range registry.All() {
		requires := "-"
		if r := pipeline.RequiresOf(a); len(r) > 0 {
			requires = strings.Join(r, ", ")
		}
		fmt.Fprintf(out, "  %-14s  %-8s  %s\n", a.Slug(), a.Version(), requires)
	}
}

// writeProfiles prints built-in and custom profiles with their modules.
func writeProfiles(out io.Writer, custom map[string]config.Profile) {
	names := config.ProfileNames(custom)
	fmt.Fprintf(out, "Profiles (%d):\n\n", len(names))
	for _, name := range names {
		p, _ := config.LookupProfile(name, custom)
		marker := ""
		if _, ok := custom[name]; ok {
			marker = " (custom)"
		}
		if name == config.DefaultProfile {
			marker += " (default)"
		}
		fmt.Fprintf(out, "  %s%s\n", name, marker)
		if p.Description != "" {
			fmt.Fprintf(out, "    %s\n", p.Description)
		}
		fmt.Fprintf(out, "    modules: %s\n", strings.Join(p.Modules, ", "))
	}
}
