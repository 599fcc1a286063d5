package sool

import (
	"github.com/SooL/sool-builder/internal/diag"
	"github.com/SooL/sool-builder/internal/model"
	"github.com/SooL/sool-builder/internal/store"
)

// Public type aliases for internal types used in the Engine API. These are
// Go type aliases (=), identical to the internal types at compile time;
// external consumers use these names without conversion.

type Store = store.Store
type PeripheralRow = store.PeripheralRow
type RegisterRow = store.RegisterRow
type InstanceRow = store.InstanceRow
type GuardRow = store.GuardRow
type DiagnosticRow = store.DiagnosticRow

type Peripheral = model.Peripheral
type Register = model.Register
type Instance = model.Instance
type GuardTable = model.GuardTable
type Corrector = model.Corrector
type Hook = model.Hook

type Diagnostic = diag.Entry
