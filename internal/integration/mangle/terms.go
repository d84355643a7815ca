package mangle

import (
	"fmt"
	"strings"

	"github.com/google/mangle/ast"

	"github.com/dwrance/storyhook/internal/story"
)

// termFor converts an event argument to a Mangle term. GUID arguments
// written with a leading slash become name constants; everything else
// maps to the matching constant type.
func termFor(v story.Value) (ast.BaseTerm, error) {
	switch v.Type {
	case story.TypeInt64:
		return ast.Number(v.Int), nil
	case story.TypeFloat64:
		return ast.Float64(v.F64), nil
	case story.TypeString:
		return ast.String(v.Str), nil
	case story.TypeGUIDString:
		if strings.HasPrefix(v.Str, "/") {
			return ast.Name(v.Str)
		}
		return ast.String(v.Str), nil
	default:
		return nil, fmt.Errorf("unsupported argument type %d", int(v.Type))
	}
}

// valueFor converts a Mangle term back to an event argument.
func valueFor(t ast.BaseTerm) story.Value {
	c, ok := t.(ast.Constant)
	if !ok {
		return story.StringValue(t.String())
	}
	switch c.Type {
	case ast.NumberType:
		return story.Int64Value(c.NumValue)
	case ast.Float64Type:
		f, _ := c.Float64Value()
		return story.Float64Value(f)
	case ast.StringType:
		return story.StringValue(c.Symbol)
	case ast.NameType:
		return story.GUIDValue(c.Symbol)
	default:
		return story.StringValue(c.String())
	}
}

// atomFor builds a ground atom for pred from the argument list.
func atomFor(pred ast.PredicateSym, args *story.Args) (ast.Atom, error) {
	if args.Len() != pred.Arity {
		return ast.Atom{}, fmt.Errorf("%s expects %d arguments, got %d", pred.Symbol, pred.Arity, args.Len())
	}
	terms := make([]ast.BaseTerm, 0, args.Len())
	var convErr error
	args.Each(func(v story.Value) {
		t, err := termFor(v)
		if err != nil {
			if convErr == nil {
				convErr = err
			}
			return
		}
		terms = append(terms, t)
	})
	if convErr != nil {
		return ast.Atom{}, convErr
	}
	return ast.Atom{Predicate: pred, Args: terms}, nil
}

// argsOf converts an atom's terms into an argument list.
func argsOf(atom ast.Atom) *story.Args {
	a := story.NewArgs()
	for _, t := range atom.Args {
		a.Append(valueFor(t))
	}
	return a
}
