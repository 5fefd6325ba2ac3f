package codegen

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/abi-tools/abi-tools-go/abi"
	"github.com/abi-tools/abi-tools-go/abi/ir"
)

// Unit is everything a backend needs to emit one named type's translation
// unit: the selected plan and its extracted dynamic parameters.
type Unit struct {
	Plan   Plan
	Params *ir.ParamList
}

// EmitBackend is the per-target-language capability set the planner drives.
// A backend never makes plan-selection decisions itself; it only
// stringifies the [Unit] the planner already computed.
type EmitBackend interface {
	// EmitView returns the source text of u's read-only view type.
	EmitView(u Unit) (string, error)
	// EmitBuilder returns the source text of u's builder type, or "" if
	// u's plan has no builder (never the case for the six struct plans,
	// but a bare primitive TypeDef has nothing to build beyond its raw
	// bytes).
	EmitBuilder(u Unit) (string, error)
	// EmitValidator returns the source text of u's footprint/validate pair
	// and its wire.Registry registration.
	EmitValidator(u Unit) (string, error)
	// EmitParams returns the source text of u's parameter namespace type,
	// or "" if u.Params is empty.
	EmitParams(u Unit) (string, error)
}

// Output is one backend's emitted translation unit for a single named
// type, assembled in this order: optional parameter namespace, view,
// builder, validator. The TypeDef's own comment is not emitted.
type Output struct {
	TypeName string
	Source   string
}

// Generate emits one [Output] per resolved type in g, using order (normally
// the dependency analyzer's topological order, so a TypeRef's target is
// always emitted independently of emission order -- each unit only
// stringifies its own plan and never reads another unit's output) to label
// work; the actual per-type passes are independent and run concurrently,
// bounded by GOMAXPROCS, since no unit's generation can observe another's
// (see the concurrency note in the base specification).
func Generate(ctx context.Context, g *abi.Graph, order []string, backend EmitBackend) ([]Output, error) {
	if order == nil {
		order = make([]string, len(g.Types))
		for i, t := range g.Types {
			order[i] = t.Name
		}
	}

	outputs := make([]Output, len(order))
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(runtime.GOMAXPROCS(0))

	for i, name := range order {
		i, name := i, name
		grp.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			rt := g.Lookup(name)
			if rt == nil {
				return nil
			}
			out, err := generateOne(rt, backend)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func generateOne(rt *abi.ResolvedType, backend EmitBackend) (Output, error) {
	plan := SelectPlan(rt)
	params := ExtractParams(rt)
	unit := Unit{Plan: plan, Params: params}

	var src string

	if paramSrc, err := backend.EmitParams(unit); err != nil {
		return Output{}, err
	} else if paramSrc != "" {
		src += paramSrc
	}

	viewSrc, err := backend.EmitView(unit)
	if err != nil {
		return Output{}, err
	}
	src += viewSrc

	builderSrc, err := backend.EmitBuilder(unit)
	if err != nil {
		return Output{}, err
	}
	src += builderSrc

	validatorSrc, err := backend.EmitValidator(unit)
	if err != nil {
		return Output{}, err
	}
	src += validatorSrc

	return Output{TypeName: rt.Name, Source: src}, nil
}
