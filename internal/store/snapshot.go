package store

import (
	"fmt"

	"github.com/SooL/sool-builder/internal/chip"
	"github.com/SooL/sool-builder/internal/diag"
	"github.com/SooL/sool-builder/internal/model"
)

// SaveSnapshot replaces the catalog contents with one finalized run: the
// merged peripherals flattened to rows, the guard table, and the run's
// diagnostics. The whole snapshot commits in a single transaction.
func (s *Store) SaveSnapshot(periphs []*model.Peripheral, guards *model.GuardTable, diags []diag.Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM registers",
		"DELETE FROM instances",
		"DELETE FROM guards",
		"DELETE FROM diagnostics",
		"DELETE FROM peripherals",
		"DELETE FROM chips",
	} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("clear previous snapshot: %w", err)
		}
	}

	all := chip.NewSet()
	for _, p := range periphs {
		all.Add(p.Scope())
	}
	for _, name := range all.Chips() {
		if _, err := tx.Exec("INSERT INTO chips (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("insert chip %s: %w", name, err)
		}
	}

	for _, p := range periphs {
		res, err := tx.Exec(
			"INSERT INTO peripherals (name, group_name, brief, chips) VALUES (?, ?, ?, ?)",
			p.NodeName(), p.Group(), p.Brief(), p.Scope().Key())
		if err != nil {
			return fmt.Errorf("insert peripheral %s: %w", p.NodeName(), err)
		}
		pid, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("peripheral id: %w", err)
		}

		for _, r := range p.Registers() {
			fields := 0
			for _, v := range r.Variants() {
				fields += len(v.Fields())
			}
			if _, err := tx.Exec(
				"INSERT INTO registers (peripheral_id, name, size, access, variant_count, field_count, chips) VALUES (?, ?, ?, ?, ?, ?, ?)",
				pid, r.NodeName(), r.Size(), r.Access(), len(r.Variants()), fields, r.Scope().Key()); err != nil {
				return fmt.Errorf("insert register %s/%s: %w", p.NodeName(), r.NodeName(), err)
			}
		}

		for _, inst := range p.Instances() {
			if _, err := tx.Exec(
				"INSERT INTO instances (peripheral_id, name, address, chips) VALUES (?, ?, ?, ?)",
				pid, inst.NodeName(), int64(inst.Address()), inst.Scope().Key()); err != nil {
				return fmt.Errorf("insert instance %s/%s: %w", p.NodeName(), inst.NodeName(), err)
			}
		}
	}

	if guards != nil {
		for _, group := range guards.Groups() {
			scope := group.Scope.Key()
			for _, g := range group.Guards {
				if _, err := tx.Exec(
					"INSERT INTO guards (scope, alias, value, undefine, define_not) VALUES (?, ?, ?, ?, ?)",
					scope, g.Alias, g.Value, g.Undefine, g.DefineNot); err != nil {
					return fmt.Errorf("insert guard %s: %w", g.Alias, err)
				}
			}
		}
	}

	for _, d := range diags {
		if _, err := tx.Exec(
			"INSERT INTO diagnostics (level, kind, chip, peripheral, message) VALUES (?, ?, ?, ?, ?)",
			string(d.Level), d.Kind, d.Chip, d.Peripheral, d.Message); err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	return tx.Commit()
}
