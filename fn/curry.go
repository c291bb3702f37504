package fn

import (
	"reflect"
)

// Curried is a function produced by Curry. Calling it with at least as many
// arguments as it still needs returns the wrapped function's result; calling it
// with fewer returns another Curried waiting for the rest.
type Curried func(args ...any) any

// Curry adapts f so that its arguments can be supplied across several calls.
// arity is the number of arguments f needs before it runs. An arity of zero or
// less runs f on the first call. Arguments beyond arity are passed through.
//
//	sum := Curry(func(args ...any) any {
//	    return args[0].(int) + args[1].(int) + args[2].(int)
//	}, 3)
//	sum(5).(Curried)(3).(Curried)(2) // 10
//	sum(5, 3).(Curried)(2)           // 10
func Curry(f func(...any) any, arity int) Curried {
	return func(args ...any) any {
		if len(args) >= arity {
			return f(args...)
		}
		return Curry(Partial(f, args...), arity-len(args))
	}
}

// CurryFunc curries an arbitrary function value. The arity is the number of
// non-variadic parameters of f, computed once here.
//
// A nil argument is passed as the zero value of its parameter. Numeric
// arguments are converted to the parameter's numeric type. Arguments beyond the
// parameter list of a non-variadic f are dropped. The result is nil for a
// function without results, the single result, or a []any of all results.
//
// Curried has no error result, so an argument that cannot be passed to its
// parameter makes the final application panic with a *errors.Error in
// CategoryBadInput carrying TextCodeInvalidArgument. f is not called then.
func CurryFunc(f any) (Curried, error) {
	rv := reflect.ValueOf(f)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, newInvalidFunctionError("curry target must be a function")
	}

	rt := rv.Type()
	arity := rt.NumIn()
	if rt.IsVariadic() {
		arity--
	}

	return Curry(func(args ...any) any {
		return callReflect(rv, rt, args)
	}, arity), nil
}

func callReflect(rv reflect.Value, rt reflect.Type, args []any) any {
	numIn := rt.NumIn()
	if !rt.IsVariadic() && len(args) > numIn {
		args = args[:numIn]
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var paramType reflect.Type
		if rt.IsVariadic() && i >= numIn-1 {
			paramType = rt.In(numIn - 1).Elem()
		} else {
			paramType = rt.In(i)
		}
		v, ok := argValue(arg, paramType)
		if !ok {
			panic(newInvalidArgumentError(i, arg, paramType))
		}
		in[i] = v
	}

	out := rv.Call(in)
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0].Interface()
	default:
		results := make([]any, len(out))
		for i, v := range out {
			results[i] = v.Interface()
		}
		return results
	}
}

func argValue(arg any, paramType reflect.Type) (reflect.Value, bool) {
	if arg == nil {
		return reflect.Zero(paramType), true
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(paramType) {
		return v, true
	}
	if isNumeric(v.Kind()) && isNumeric(paramType.Kind()) {
		return v.Convert(paramType), true
	}
	return reflect.Value{}, false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// Curry2 converts a binary function into a chain of unary ones.
func Curry2[A, B, R any](f func(A, B) R) func(A) func(B) R {
	return func(a A) func(B) R {
		return func(b B) R {
			return f(a, b)
		}
	}
}

// Curry3 converts a ternary function into a chain of unary ones.
func Curry3[A, B, C, R any](f func(A, B, C) R) func(A) func(B) func(C) R {
	return func(a A) func(B) func(C) R {
		return func(b B) func(C) R {
			return func(c C) R {
				return f(a, b, c)
			}
		}
	}
}

// Curry4 converts a four argument function into a chain of unary ones.
func Curry4[A, B, C, D, R any](f func(A, B, C, D) R) func(A) func(B) func(C) func(D) R {
	return func(a A) func(B) func(C) func(D) R {
		return func(b B) func(C) func(D) R {
			return func(c C) func(D) R {
				return func(d D) R {
					return f(a, b, c, d)
				}
			}
		}
	}
}

// Uncurry2 is the inverse of Curry2.
func Uncurry2[A, B, R any](f func(A) func(B) R) func(A, B) R {
	return func(a A, b B) R {
		return f(a)(b)
	}
}

// Uncurry3 is the inverse of Curry3.
func Uncurry3[A, B, C, R any](f func(A) func(B) func(C) R) func(A, B, C) R {
	return func(a A, b B, c C) R {
		return f(a)(b)(c)
	}
}
