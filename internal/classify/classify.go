// Package classify assigns a deterministic logical name to each peripheral
// group before its first cross-chip merge.
//
// Vendor documents label peripherals with a group ("TIM", "USB") but the
// logical type within a group varies per chip: an advanced timer and a basic
// timer both arrive as group TIM. Classification rules are Risor scripts,
// one per group label, embedded by default and overridable from disk. A rule
// reads the peripheral through host functions (brief text, register names of
// the first mapping, instance names) and assigns the logical name with
// set_name. The same peripheral content always yields the same name, so
// structurally identical peripherals from different chips become merge
// candidates regardless of ingestion order.
package classify

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/risor-io/risor"

	"github.com/SooL/sool-builder/internal/diag"
	"github.com/SooL/sool-builder/internal/model"
)

//go:embed rules/*.risor
var embeddedRules embed.FS

// Classifier loads and runs the per-group rule scripts.
type Classifier struct {
	rulesDir string
	fsys     fs.FS
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRulesDir loads rule scripts from a directory on disk instead of the
// embedded set. A group without a script there falls back to the generic
// name; the embedded rules are not consulted.
func WithRulesDir(dir string) Option {
	return func(c *Classifier) {
		c.rulesDir = dir
		c.fsys = nil
	}
}

// WithRulesFS loads rule scripts from the given filesystem. Mainly for
// tests.
func WithRulesFS(fsys fs.FS) Option {
	return func(c *Classifier) {
		c.fsys = fsys
		c.rulesDir = ""
	}
}

// New returns a Classifier over the embedded rule set unless an option
// redirects it.
func New(opts ...Option) *Classifier {
	sub, err := fs.Sub(embeddedRules, "rules")
	if err != nil {
		panic(fmt.Sprintf("classify: embedded rules: %v", err))
	}
	c := &Classifier{fsys: sub}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify assigns the peripheral's logical name. A peripheral that already
// has one is left alone. When no rule script exists for the group, or the
// script leaves the name unset, the vendor group label is used and a
// fallback finding is recorded. Script evaluation errors abort the chip's
// ingestion; rules must be total.
func (c *Classifier) Classify(ctx context.Context, p *model.Peripheral, sink *diag.Sink) error {
	if p.NodeName() != "" {
		return nil
	}

	src, found, err := c.loadRule(p.Group())
	if err != nil {
		return fmt.Errorf("classify: load rule for group %s: %w", p.Group(), err)
	}
	if found {
		var opts []risor.Option
		for name, fn := range hostGlobals(p, sink) {
			opts = append(opts, risor.WithGlobal(name, fn))
		}
		if _, err := risor.Eval(ctx, src, opts...); err != nil {
			return fmt.Errorf("classify: rule %s: %w", p.Group(), err)
		}
	}

	if p.NodeName() == "" {
		p.SetName(p.Group())
		sink.Warnf(diag.KindClassifyFallback, "", p.Group(),
			"no classification rule matched for chips %s, using group label %q",
			p.Scope(), p.Group())
	}
	return nil
}

// loadRule returns the script source for a group, or found=false when no
// script exists for it.
func (c *Classifier) loadRule(group string) (src string, found bool, err error) {
	name := group + ".risor"
	var data []byte
	if c.rulesDir != "" {
		data, err = os.ReadFile(filepath.Join(c.rulesDir, name))
	} else {
		data, err = fs.ReadFile(c.fsys, name)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}
