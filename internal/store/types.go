package store

// PeripheralRow is one catalog peripheral, flattened.
type PeripheralRow struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Group     string `json:"group"`
	Brief     string `json:"brief,omitempty"`
	Chips     string `json:"chips"`
	Registers int    `json:"registers"`
	Instances int    `json:"instances"`
}

// RegisterRow is one catalog register.
type RegisterRow struct {
	ID           int64  `json:"id"`
	PeripheralID int64  `json:"peripheral_id"`
	Name         string `json:"name"`
	Size         uint   `json:"size"`
	Access       string `json:"access,omitempty"`
	VariantCount int    `json:"variant_count"`
	FieldCount   int    `json:"field_count"`
	Chips        string `json:"chips"`
}

// InstanceRow is one catalog instance placement.
type InstanceRow struct {
	ID           int64  `json:"id"`
	PeripheralID int64  `json:"peripheral_id"`
	Name         string `json:"name"`
	Address      uint64 `json:"address"`
	Chips        string `json:"chips"`
}

// GuardRow is one guard table entry.
type GuardRow struct {
	ID        int64  `json:"id"`
	Scope     string `json:"scope"`
	Alias     string `json:"alias"`
	Value     string `json:"value,omitempty"`
	Undefine  bool   `json:"undefine"`
	DefineNot bool   `json:"define_not"`
}

// DiagnosticRow is one recorded run finding.
type DiagnosticRow struct {
	ID         int64  `json:"id"`
	Level      string `json:"level"`
	Kind       string `json:"kind"`
	Chip       string `json:"chip,omitempty"`
	Peripheral string `json:"peripheral,omitempty"`
	Message    string `json:"message"`
}
