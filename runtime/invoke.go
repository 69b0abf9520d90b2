package runtime

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// goFunc is a Go implementation of an imported function. Accepted shapes
// are func([ctx,] args...) with outputs (), (error), (T) or (T, error),
// where T is present exactly when the signature has an output.
type goFunc struct {
	fn      reflect.Value
	name    string
	in      []reflect.Type
	withCtx bool
	result  bool
	failing bool
}

func newGoFunc(sig *schema.FunctionSignature, impl any) (*goFunc, error) {
	fn := reflect.ValueOf(impl)
	if fn.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
			Path(sig.Name).
			GoType(fmt.Sprintf("%T", impl)).
			Detail("implementation must be a function").
			Build()
	}
	ft := fn.Type()
	g := &goFunc{fn: fn, name: sig.Name}

	first := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		g.withCtx = true
		first = 1
	}
	if ft.IsVariadic() || ft.NumIn()-first != len(sig.Params) {
		return nil, shapeError(sig, ft, "takes %d arguments", len(sig.Params))
	}
	for i := first; i < ft.NumIn(); i++ {
		g.in = append(g.in, ft.In(i))
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			g.failing = true
		} else {
			g.result = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, shapeError(sig, ft, "second output must be error")
		}
		g.result, g.failing = true, true
	default:
		return nil, shapeError(sig, ft, "returns at most a value and an error")
	}
	if g.result != (sig.Output != nil) {
		return nil, shapeError(sig, ft, "value output must match the declared output")
	}
	return g, nil
}

func shapeError(sig *schema.FunctionSignature, ft reflect.Type, format string, args ...any) error {
	return errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
		Path(sig.Name).
		GoType(ft.String()).
		TypeName(sig.String()).
		Detail(format, args...).
		Build()
}

func (g *goFunc) invoke(ctx context.Context, args []any) (any, error) {
	in := make([]reflect.Value, 0, len(args)+1)
	if g.withCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, a := range args {
		v, err := adapt(reflect.ValueOf(a), g.in[i])
		if err != nil {
			return nil, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
				Path(g.name, "param["+strconv.Itoa(i)+"]").
				GoType(g.in[i].String()).
				Cause(err).
				Build()
		}
		in = append(in, v)
	}

	out := g.fn.Call(in)
	var (
		value any
		err   error
	)
	if g.result {
		value = out[0].Interface()
	}
	if g.failing {
		if e := out[len(out)-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
	}
	return value, err
}

// adapt converts a lifted value to the parameter type of an
// implementation: assignable values pass through, numeric and string
// kinds convert, and slices convert element by element.
func adapt(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(to), nil
	}
	from := v.Type()
	switch {
	case from.AssignableTo(to):
		return v, nil
	case from.Kind() == reflect.Slice && to.Kind() == reflect.Slice:
		out := reflect.MakeSlice(to, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			e, err := adapt(v.Index(i), to.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(e)
		}
		return out, nil
	case sameFamily(from.Kind(), to.Kind()) && from.ConvertibleTo(to):
		return v.Convert(to), nil
	}
	return reflect.Value{}, errors.TypeMismatch(errors.PhaseRuntime, nil, from.String(), to.String())
}

func sameFamily(a, b reflect.Kind) bool {
	family := func(k reflect.Kind) int {
		switch k {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return 1
		case reflect.Float32, reflect.Float64:
			return 2
		case reflect.String:
			return 3
		case reflect.Bool:
			return 4
		}
		return 0
	}
	return family(a) != 0 && family(a) == family(b)
}
