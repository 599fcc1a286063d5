package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SooL/sool-builder/internal/store"
)

// defaultCatalog is where query commands look when --catalog is not given.
const defaultCatalog = "sool.db"

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a generation catalog",
	Long:  "Run queries against the catalog database a previous generate run snapshotted.",
}

func init() {
	queryCmd.AddCommand(chipsCmd)
	queryCmd.AddCommand(peripheralsCmd)
	queryCmd.AddCommand(registersCmd)
	queryCmd.AddCommand(instancesCmd)
	queryCmd.AddCommand(guardsCmd)
	queryCmd.AddCommand(diagsCmd)
}

// --- Helpers ---

// openCatalog opens the catalog from the --catalog flag path (or default).
func openCatalog() (*store.Store, error) {
	catalogPath := flagCatalog
	if catalogPath == "" {
		catalogPath = defaultCatalog
	}
	if _, err := os.Stat(catalogPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog not found: %s (run 'sool-builder generate --catalog %s' first)", catalogPath, catalogPath)
	}
	return store.Open(catalogPath)
}

// parseIDArg parses a positional argument as a row ID with a clear error.
func parseIDArg(value, name string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	return n, nil
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// --- Commands ---

var chipsCmd = &cobra.Command{
	Use:   "chips",
	Short: "List every chip in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runChips,
}

func runChips(cmd *cobra.Command, args []string) error {
	s, err := openCatalog()
	if err != nil {
		return outputError("chips", err)
	}
	defer s.Close()

	chips, err := s.Chips()
	if err != nil {
		return outputError("chips", err)
	}

	count := len(chips)
	return outputResult(CLIResult{
		Command:    "chips",
		Results:    chips,
		TotalCount: &count,
	})
}

var peripheralsCmd = &cobra.Command{
	Use:   "peripherals [group]",
	Short: "List merged peripherals, optionally filtered by group",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPeripherals,
}

func runPeripherals(cmd *cobra.Command, args []string) error {
	s, err := openCatalog()
	if err != nil {
		return outputError("peripherals", err)
	}
	defer s.Close()

	group := ""
	if len(args) > 0 {
		group = args[0]
	}
	rows, err := s.Peripherals(group)
	if err != nil {
		return outputError("peripherals", err)
	}

	count := len(rows)
	return outputResult(CLIResult{
		Command:    "peripherals",
		Results:    rows,
		TotalCount: &count,
	})
}

var registersCmd = &cobra.Command{
	Use:   "registers <peripheral-id>",
	Short: "List the registers of one peripheral",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegisters,
}

func runRegisters(cmd *cobra.Command, args []string) error {
	s, err := openCatalog()
	if err != nil {
		return outputError("registers", err)
	}
	defer s.Close()

	id, err := parseIDArg(args[0], "peripheral-id")
	if err != nil {
		return outputError("registers", err)
	}
	rows, err := s.Registers(id)
	if err != nil {
		return outputError("registers", err)
	}

	count := len(rows)
	return outputResult(CLIResult{
		Command:    "registers",
		Results:    rows,
		TotalCount: &count,
	})
}

var instancesCmd = &cobra.Command{
	Use:   "instances <peripheral-id>",
	Short: "List the placements of one peripheral",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstances,
}

func runInstances(cmd *cobra.Command, args []string) error {
	s, err := openCatalog()
	if err != nil {
		return outputError("instances", err)
	}
	defer s.Close()

	id, err := parseIDArg(args[0], "peripheral-id")
	if err != nil {
		return outputError("instances", err)
	}
	rows, err := s.Instances(id)
	if err != nil {
		return outputError("instances", err)
	}

	count := len(rows)
	return outputResult(CLIResult{
		Command:    "instances",
		Results:    rows,
		TotalCount: &count,
	})
}

var guardsCmd = &cobra.Command{
	Use:   "guards [chip-pattern]",
	Short: "List inferred guards, optionally filtered by chip glob",
	Long:  "Lists the guard table. With a glob pattern, keeps only guards whose scope contains a matching chip (e.g. 'STM32F1*').",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGuards,
}

func runGuards(cmd *cobra.Command, args []string) error {
	s, err := openCatalog()
	if err != nil {
		return outputError("guards", err)
	}
	defer s.Close()

	rows, err := s.Guards()
	if err != nil {
		return outputError("guards", err)
	}
	if len(args) > 0 {
		rows = filterGuards(rows, args[0])
	}

	count := len(rows)
	return outputResult(CLIResult{
		Command:    "guards",
		Results:    rows,
		TotalCount: &count,
	})
}

// filterGuards keeps the guards whose scope holds at least one chip matching
// the glob pattern. Malformed patterns match nothing.
func filterGuards(rows []store.GuardRow, pattern string) []store.GuardRow {
	var out []store.GuardRow
	for _, row := range rows {
		for _, chip := range strings.Split(row.Scope, "|") {
			if ok, err := path.Match(pattern, chip); err == nil && ok {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

var flagLevel string

var diagsCmd = &cobra.Command{
	Use:   "diags",
	Short: "List the findings the generate run recorded",
	Args:  cobra.NoArgs,
	RunE:  runDiags,
}

func init() {
	diagsCmd.Flags().StringVar(&flagLevel, "level", "", "filter by level: warn|error")
}

func runDiags(cmd *cobra.Command, args []string) error {
	if flagLevel != "" && flagLevel != "warn" && flagLevel != "error" {
		return outputError("diags", fmt.Errorf("invalid level %q: must be warn or error", flagLevel))
	}

	s, err := openCatalog()
	if err != nil {
		return outputError("diags", err)
	}
	defer s.Close()

	rows, err := s.Diagnostics(flagLevel)
	if err != nil {
		return outputError("diags", err)
	}

	count := len(rows)
	return outputResult(CLIResult{
		Command:    "diags",
		Results:    rows,
		TotalCount: &count,
	})
}
