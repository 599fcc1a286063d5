package store

import "fmt"

// Chips returns every chip identifier in the catalog, sorted.
func (s *Store) Chips() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM chips ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query chips: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan chip: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Peripherals returns the catalog peripherals with register and instance
// counts, optionally restricted to one vendor group.
func (s *Store) Peripherals(group string) ([]PeripheralRow, error) {
	q := `SELECT p.id, p.name, p.group_name, p.brief, p.chips,
  (SELECT COUNT(*) FROM registers r WHERE r.peripheral_id = p.id),
  (SELECT COUNT(*) FROM instances i WHERE i.peripheral_id = p.id)
FROM peripherals p`
	args := []any{}
	if group != "" {
		q += " WHERE p.group_name = ?"
		args = append(args, group)
	}
	q += " ORDER BY p.name"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query peripherals: %w", err)
	}
	defer rows.Close()

	var out []PeripheralRow
	for rows.Next() {
		var p PeripheralRow
		if err := rows.Scan(&p.ID, &p.Name, &p.Group, &p.Brief, &p.Chips, &p.Registers, &p.Instances); err != nil {
			return nil, fmt.Errorf("scan peripheral: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Registers returns the registers of one peripheral.
func (s *Store) Registers(peripheralID int64) ([]RegisterRow, error) {
	rows, err := s.db.Query(
		`SELECT id, peripheral_id, name, size, access, variant_count, field_count, chips
FROM registers WHERE peripheral_id = ? ORDER BY name`, peripheralID)
	if err != nil {
		return nil, fmt.Errorf("query registers: %w", err)
	}
	defer rows.Close()

	var out []RegisterRow
	for rows.Next() {
		var r RegisterRow
		if err := rows.Scan(&r.ID, &r.PeripheralID, &r.Name, &r.Size, &r.Access, &r.VariantCount, &r.FieldCount, &r.Chips); err != nil {
			return nil, fmt.Errorf("scan register: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Instances returns the placements of one peripheral.
func (s *Store) Instances(peripheralID int64) ([]InstanceRow, error) {
	rows, err := s.db.Query(
		"SELECT id, peripheral_id, name, address, chips FROM instances WHERE peripheral_id = ? ORDER BY name",
		peripheralID)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()

	var out []InstanceRow
	for rows.Next() {
		var i InstanceRow
		var addr int64
		if err := rows.Scan(&i.ID, &i.PeripheralID, &i.Name, &addr, &i.Chips); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		i.Address = uint64(addr)
		out = append(out, i)
	}
	return out, rows.Err()
}

// Guards returns every guard entry, grouped by scope in insertion order.
func (s *Store) Guards() ([]GuardRow, error) {
	rows, err := s.db.Query("SELECT id, scope, alias, value, undefine, define_not FROM guards ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query guards: %w", err)
	}
	defer rows.Close()

	var out []GuardRow
	for rows.Next() {
		var g GuardRow
		if err := rows.Scan(&g.ID, &g.Scope, &g.Alias, &g.Value, &g.Undefine, &g.DefineNot); err != nil {
			return nil, fmt.Errorf("scan guard: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Diagnostics returns the run findings, optionally filtered by level.
func (s *Store) Diagnostics(level string) ([]DiagnosticRow, error) {
	q := "SELECT id, level, kind, chip, peripheral, message FROM diagnostics"
	args := []any{}
	if level != "" {
		q += " WHERE level = ?"
		args = append(args, level)
	}
	q += " ORDER BY id"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []DiagnosticRow
	for rows.Next() {
		var d DiagnosticRow
		if err := rows.Scan(&d.ID, &d.Level, &d.Kind, &d.Chip, &d.Peripheral, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
