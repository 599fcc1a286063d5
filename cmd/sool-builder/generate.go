package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	sool "github.com/SooL/sool-builder"
	"github.com/SooL/sool-builder/internal/config"
	"github.com/SooL/sool-builder/internal/diag"
	"github.com/SooL/sool-builder/internal/emit"
	"github.com/SooL/sool-builder/internal/store"
)

var (
	flagOut      string
	flagJobs     int
	flagRulesDir string
	flagFailFast bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <svd-file>...",
	Short: "Merge SVD documents and render C++ headers",
	Long:  "Parses the given SVD documents, merges them into one cross-chip register tree, infers the preprocessor guard table, and writes one header per peripheral plus the chip setup header.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&flagOut, "out", "", "header output directory (default from config)")
	generateCmd.Flags().IntVar(&flagJobs, "jobs", 0, "parallel parse workers (0 = one per CPU, 1 = serial)")
	generateCmd.Flags().StringVar(&flagRulesDir, "rules-dir", "", "load classification rules from disk instead of embedded")
	generateCmd.Flags().BoolVar(&flagFailFast, "fail-fast", false, "abort on the first malformed document instead of excluding the chip")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	// Flags override the config file.
	jobs := cfg.Jobs
	if cmd.Flags().Changed("jobs") {
		jobs = flagJobs
	}
	rulesDir := cfg.RulesDir
	if flagRulesDir != "" {
		rulesDir = flagRulesDir
	}
	outDir := cfg.Output.HeaderDir
	if flagOut != "" {
		outDir = flagOut
	}

	opts := []sool.Option{
		sool.WithJobs(jobs),
		sool.WithFailFast(flagFailFast),
	}
	if len(cfg.Families) > 0 {
		opts = append(opts, sool.WithFamilies(cfg.Families))
	}
	if rulesDir != "" {
		opts = append(opts, sool.WithRulesDir(rulesDir))
	}

	catalogPath := flagCatalog
	if catalogPath == "" {
		catalogPath = cfg.Output.Catalog
	}
	if catalogPath != "" {
		s, err := store.Open(catalogPath)
		if err != nil {
			return fmt.Errorf("opening catalog: %w", err)
		}
		defer s.Close()
		if err := s.Migrate(); err != nil {
			return fmt.Errorf("migrating catalog: %w", err)
		}
		opts = append(opts, sool.WithCatalog(s))
	}

	res, err := sool.New(opts...).Run(context.Background(), args)
	if err != nil {
		return err
	}

	if err := emit.WriteHeaders(outDir, res.Peripherals, res.Guards); err != nil {
		return err
	}

	warns, errs := 0, 0
	for _, d := range res.Diagnostics {
		if d.Level == diag.LevelError {
			errs++
		} else {
			warns++
		}
	}

	// Print the run summary to stderr.
	fmt.Fprintf(os.Stderr, "Merged %d chips into %d peripherals, %d guards in %s (%d warnings, %d errors)\n",
		len(res.Chips), len(res.Peripherals), res.Guards.Len(),
		time.Since(start).Round(time.Millisecond), warns, errs)
	if len(res.Failed) > 0 {
		fmt.Fprintf(os.Stderr, "Excluded %d malformed inputs\n", len(res.Failed))
	}
	fmt.Fprintf(os.Stderr, "Headers: %s\n", outDir)
	if catalogPath != "" {
		fmt.Fprintf(os.Stderr, "Catalog: %s\n", catalogPath)
	}

	return nil
}
