package fn

// Partial fixes the leading arguments of f. The returned function calls
// f(fixed..., rest...) unconditionally; unlike Curry it never checks how many
// arguments were given.
func Partial[T, R any](f func(...T) R, fixed ...T) func(...T) R {
	bound := append([]T(nil), fixed...)
	return func(rest ...T) R {
		args := make([]T, 0, len(bound)+len(rest))
		args = append(args, bound...)
		args = append(args, rest...)
		return f(args...)
	}
}

// PartialRight fixes the trailing arguments of f: the returned function calls
// f(rest..., fixed...).
func PartialRight[T, R any](f func(...T) R, fixed ...T) func(...T) R {
	bound := append([]T(nil), fixed...)
	return func(rest ...T) R {
		args := make([]T, 0, len(bound)+len(rest))
		args = append(args, rest...)
		args = append(args, bound...)
		return f(args...)
	}
}

// Partial1 fixes the first argument of a binary function.
func Partial1[A, B, R any](f func(A, B) R, a A) func(B) R {
	return func(b B) R {
		return f(a, b)
	}
}

// Partial2 fixes the first two arguments of a ternary function.
func Partial2[A, B, C, R any](f func(A, B, C) R, a A, b B) func(C) R {
	return func(c C) R {
		return f(a, b, c)
	}
}
