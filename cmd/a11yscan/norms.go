package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/a11yscan/internal/config"
	"github.com/nao1215/a11yscan/internal/model"
	"github.com/nao1215/a11yscan/internal/norms"
	"github.com/nao1215/a11yscan/internal/report"
)

// errUnmappedFindings makes the audit exit non-zero.
var errUnmappedFindings = errors.New("findings without complete norm references")

// NewNormsCmd creates the norms command group.
func NewNormsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "norms",
		Short: "Inspect the mapping of rules to WCAG, BITV and EN 301 549",
	}
	cmd.AddCommand(NewNormsAuditCmd())
	return cmd
}

// NewNormsAuditCmd creates the norms audit command.
func NewNormsAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [scan.json]",
		Short: "Report findings whose norm references are incomplete",
		Long: `Audit checks every rule of a stored scan result for WCAG, BITV and
EN 301 549 references and lists the rules where one of them is missing.
The command exits with a non-zero status when any rule is incomplete, so it
can gate a CI pipeline.

With --mapping the findings are mapped again with the given table merged
over the built-in one before the audit. With --table the mapping table
itself is audited and no scan result is needed.

Examples:
  # Audit a scan result
  a11yscan norms audit ./a11y-report/scan.json

  # Check a custom mapping table against a scan result
  a11yscan norms audit --mapping norms.yaml ./a11y-report/scan.json

  # Audit the built-in table merged with a custom one
  a11yscan norms audit --table --mapping norms.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: runNormsAuditCmd,
	}

	cmd.Flags().String("mapping", "",
		"Mapping table merged over the built-in table")
	cmd.Flags().Bool("table", false,
		"Audit the mapping table instead of a scan result")
	cmd.Flags().BoolP("json", "j", false,
		"Output the audit in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the audit in Markdown format")

	return cmd
}

// runNormsAuditCmd executes the norms audit command.
func runNormsAuditCmd(cmd *cobra.Command, args []string) error {
	mapping, err := cmd.Flags().GetString("mapping")
	if err != nil {
		return err
	}
	tableOnly, err := cmd.Flags().GetBool("table")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	if !tableOnly && len(args) == 0 {
		return errors.New("scan result file is required (or use --table)")
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	audit, err := auditNorms(path, mapping, tableOnly)
	if err != nil {
		return err
	}

	var w report.Writer
	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownOutput:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out)
	}
	if _, err := w.WriteAudit(audit); err != nil {
		return err
	}

	if !audit.OK() {
		return fmt.Errorf("%d rules: %w", len(audit.Missing), errUnmappedFindings)
	}
	return nil
}

// auditNorms builds the audit for a scan result file or, with tableOnly,
// for the mapping table.
func auditNorms(path, mapping string, tableOnly bool) (*model.NormAudit, error) {
	var mapper *norms.Mapper
	if tableOnly || mapping != "" {
		var err error
		mapper, err = norms.FromConfig(config.Norms{MappingFile: mapping})
		if err != nil {
			return nil, fmt.Errorf("failed to load norm mapping: %w", err)
		}
	}

	if tableOnly {
		audit := norms.AuditTable(mapper)
		return &audit, nil
	}

	result, err := readScanResult(path)
	if err != nil {
		return nil, err
	}
	if mapper != nil {
		mapper.ApplyAll(result.Findings)
	}
	audit := norms.Audit(result.Findings)
	return &audit, nil
}

// readScanResult loads a scan.json file.
func readScanResult(path string) (*model.ScanResult, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open scan result: %w", err)
	}
	defer f.Close()

	return decodeScanResult(f)
}

func decodeScanResult(r io.Reader) (*model.ScanResult, error) {
	var result model.ScanResult
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode scan result: %w", err)
	}
	return &result, nil
}
