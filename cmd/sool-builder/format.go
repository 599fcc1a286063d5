package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/SooL/sool-builder/internal/store"
)

// formatChipsText prints chip identifiers one per line.
func formatChipsText(w io.Writer, chips []string) {
	for _, c := range chips {
		fmt.Fprintln(w, c)
	}
}

// formatPeripheralsText formats PeripheralRow results as aligned columns.
func formatPeripheralsText(w io.Writer, rows []store.PeripheralRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tGROUP\tREGISTERS\tINSTANCES\tCHIPS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Name, r.Group, r.Registers, r.Instances, r.Chips)
	}
	tw.Flush()
}

// formatRegistersText formats RegisterRow results as aligned columns.
func formatRegistersText(w io.Writer, rows []store.RegisterRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tACCESS\tVARIANTS\tFIELDS\tCHIPS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%d\t%s\n",
			r.ID, r.Name, r.Size, r.Access, r.VariantCount, r.FieldCount, r.Chips)
	}
	tw.Flush()
}

// formatInstancesText formats InstanceRow results as aligned columns.
func formatInstancesText(w io.Writer, rows []store.InstanceRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tCHIPS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t0x%08X\t%s\n", r.ID, r.Name, r.Address, r.Chips)
	}
	tw.Flush()
}

// formatGuardsText formats GuardRow results as aligned columns.
func formatGuardsText(w io.Writer, rows []store.GuardRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ALIAS\tVALUE\tEXIT\tSCOPE")
	for _, r := range rows {
		exit := "-"
		switch {
		case r.Undefine:
			exit = "undef"
		case r.DefineNot:
			exit = "define-not"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Alias, r.Value, exit, r.Scope)
	}
	tw.Flush()
}

// formatDiagnosticsText formats DiagnosticRow results as aligned columns.
func formatDiagnosticsText(w io.Writer, rows []store.DiagnosticRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tKIND\tCHIP\tPERIPHERAL\tMESSAGE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Level, r.Kind, r.Chip, r.Peripheral, r.Message)
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case []string:
		formatChipsText(w, v)
	case []store.PeripheralRow:
		formatPeripheralsText(w, v)
	case []store.RegisterRow:
		formatRegistersText(w, v)
	case []store.InstanceRow:
		formatInstancesText(w, v)
	case []store.GuardRow:
		formatGuardsText(w, v)
	case []store.DiagnosticRow:
		formatDiagnosticsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
