package classify

import (
	"context"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/SooL/sool-builder/internal/diag"
	"github.com/SooL/sool-builder/internal/model"
)

// hostGlobals builds the host functions a rule script sees, closed over one
// peripheral. Risor cannot touch Go structs directly, so everything the
// rules need is exposed as thin accessors plus the two mutators set_name
// and set_brief.
func hostGlobals(p *model.Peripheral, sink *diag.Sink) map[string]any {
	return map[string]any{
		"brief": object.NewBuiltin("brief",
			func(ctx context.Context, args ...object.Object) object.Object {
				if len(args) != 0 {
					return object.NewArgsError("brief", 0, len(args))
				}
				return object.NewString(p.Brief())
			}),

		"brief_has": object.NewBuiltin("brief_has",
			func(ctx context.Context, args ...object.Object) object.Object {
				token, errObj := stringArg("brief_has", args)
				if errObj != nil {
					return errObj
				}
				for _, t := range strings.Fields(p.Brief()) {
					if t == token {
						return object.True
					}
				}
				return object.False
			}),

		"brief_contains": object.NewBuiltin("brief_contains",
			func(ctx context.Context, args ...object.Object) object.Object {
				sub, errObj := stringArg("brief_contains", args)
				if errObj != nil {
					return errObj
				}
				return object.NewBool(strings.Contains(p.Brief(), sub))
			}),

		"brief_endswith": object.NewBuiltin("brief_endswith",
			func(ctx context.Context, args ...object.Object) object.Object {
				suffix, errObj := stringArg("brief_endswith", args)
				if errObj != nil {
					return errObj
				}
				return object.NewBool(strings.HasSuffix(p.Brief(), suffix))
			}),

		"has_register": object.NewBuiltin("has_register",
			func(ctx context.Context, args ...object.Object) object.Object {
				name, errObj := stringArg("has_register", args)
				if errObj != nil {
					return errObj
				}
				return object.NewBool(p.RegisterNamed(name) != nil)
			}),

		// register_names returns the first mapping's register names in
		// offset order, the fingerprint the TIM rules key on.
		"register_names": object.NewBuiltin("register_names",
			func(ctx context.Context, args ...object.Object) object.Object {
				if len(args) != 0 {
					return object.NewArgsError("register_names", 0, len(args))
				}
				var items []object.Object
				if len(p.Mappings()) > 0 {
					m := p.Mappings()[0]
					for _, off := range m.Offsets() {
						items = append(items, object.NewString(m.At(off).NodeName()))
					}
				}
				return object.NewList(items)
			}),

		"instance_count": object.NewBuiltin("instance_count",
			func(ctx context.Context, args ...object.Object) object.Object {
				if len(args) != 0 {
					return object.NewArgsError("instance_count", 0, len(args))
				}
				return object.NewInt(int64(len(p.Instances())))
			}),

		"instance_name": object.NewBuiltin("instance_name",
			func(ctx context.Context, args ...object.Object) object.Object {
				if len(args) != 1 {
					return object.NewArgsError("instance_name", 1, len(args))
				}
				idx, ok := args[0].(*object.Int)
				if !ok {
					return object.Errorf("instance_name: index must be an int, got %s", args[0].Type())
				}
				i := int(idx.Value())
				if i < 0 || i >= len(p.Instances()) {
					return object.Errorf("instance_name: index %d out of range", i)
				}
				return object.NewString(p.Instances()[i].NodeName())
			}),

		"instance_has": object.NewBuiltin("instance_has",
			func(ctx context.Context, args ...object.Object) object.Object {
				sub, errObj := stringArg("instance_has", args)
				if errObj != nil {
					return errObj
				}
				for _, inst := range p.Instances() {
					if strings.Contains(inst.NodeName(), sub) {
						return object.True
					}
				}
				return object.False
			}),

		"chips": object.NewBuiltin("chips",
			func(ctx context.Context, args ...object.Object) object.Object {
				if len(args) != 0 {
					return object.NewArgsError("chips", 0, len(args))
				}
				return object.NewString(p.Scope().String())
			}),

		"set_name": object.NewBuiltin("set_name",
			func(ctx context.Context, args ...object.Object) object.Object {
				name, errObj := stringArg("set_name", args)
				if errObj != nil {
					return errObj
				}
				p.SetName(name)
				return object.Nil
			}),

		"set_brief": object.NewBuiltin("set_brief",
			func(ctx context.Context, args ...object.Object) object.Object {
				brief, errObj := stringArg("set_brief", args)
				if errObj != nil {
					return errObj
				}
				p.SetBrief(brief)
				return object.Nil
			}),

		// fallback assigns a generic name and records the detection failure.
		"fallback": object.NewBuiltin("fallback",
			func(ctx context.Context, args ...object.Object) object.Object {
				name, errObj := stringArg("fallback", args)
				if errObj != nil {
					return errObj
				}
				p.SetName(name)
				sink.Errorf(diag.KindClassifyFallback, "", p.Group(),
					"%s type detection failure for chips %s, assigning %s",
					p.Group(), p.Scope(), name)
				return object.Nil
			}),
	}
}

func stringArg(fn string, args []object.Object) (string, object.Object) {
	if len(args) != 1 {
		return "", object.NewArgsError(fn, 1, len(args))
	}
	s, ok := args[0].(*object.String)
	if !ok {
		return "", object.Errorf("%s: argument must be a string, got %s", fn, args[0].Type())
	}
	return s.Value(), nil
}
