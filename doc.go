// Package sool unifies per-chip hardware register descriptions into one
// cross-chip register tree and renders it as guarded C++ headers.
//
// # Pipeline
//
// A generation run has two phases:
//
//  1. Ingest: each SVD document is parsed into a single-chip peripheral
//     tree, compiled (duplicate layouts folded), optionally corrected by
//     pre-merge hooks, classified into a logical peripheral type by the
//     Risor rule scripts, and merged into the cross-chip accumulator.
//
//  2. Finalize: scopes are recomputed bottom-up and canonicalized against
//     the chip family registry, post-merge correction hooks run, and the
//     guard table is inferred from every node whose scope is narrower than
//     its parent's.
//
// # Usage
//
// Create an Engine, ingest the documents, finalize, and emit:
//
//	e := sool.New(sool.WithFamilies(cfg.Families))
//	if err := e.Ingest(ctx, paths); err != nil { ... }
//	res, err := e.Finalize()
//	err = emit.WriteHeaders(outDir, res.Peripherals, res.Guards)
//
// Ingestion runs a bounded parallel parse phase; merging is serialized in
// input order so results never depend on goroutine scheduling. Attaching a
// catalog store persists the finalized tree, guard table and diagnostics to
// SQLite for the inspection commands.
//
// # Rules
//
// Peripheral classification lives in Risor scripts, one per vendor group
// label, embedded by default and overridable per run:
//
//   - internal/classify/rules/{GROUP}.risor
//
// Scripts read the peripheral through host functions and assign the logical
// type name with set_name. See the internal/classify package for the full
// set of globals exposed to rules.
package sool
