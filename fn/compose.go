package fn

// Identity returns its argument.
func Identity[T any](v T) T {
	return v
}

// Compose threads a value through fns from left to right:
// Compose(f, g, h)(x) == h(g(f(x))). With no fns it is Identity.
// A panic in a stage propagates and stops the remaining stages.
func Compose[T any](fns ...func(T) T) func(T) T {
	stages := append([]func(T) T(nil), fns...)
	return func(v T) T {
		for _, f := range stages {
			v = f(v)
		}
		return v
	}
}

// Pipe is the eager form of Compose: Pipe(x, f, g, h) == h(g(f(x))).
func Pipe[T any](v T, fns ...func(T) T) T {
	for _, f := range fns {
		v = f(v)
	}
	return v
}

// ComposeE is Compose for fallible stages. The first error stops the pipeline
// and is returned as is, together with the zero value.
func ComposeE[T any](fns ...func(T) (T, error)) func(T) (T, error) {
	stages := append([]func(T) (T, error)(nil), fns...)
	return func(v T) (T, error) {
		return PipeE(v, stages...)
	}
}

// PipeE is the eager form of ComposeE.
func PipeE[T any](v T, fns ...func(T) (T, error)) (T, error) {
	for _, f := range fns {
		next, err := f(v)
		if err != nil {
			var zero T
			return zero, err
		}
		v = next
	}
	return v, nil
}

// Compose2 is left to right composition of two functions with differing types.
func Compose2[A, B, C any](f func(A) B, g func(B) C) func(A) C {
	return func(a A) C {
		return g(f(a))
	}
}

// Compose3 is left to right composition of three functions with differing types.
func Compose3[A, B, C, D any](f func(A) B, g func(B) C, h func(C) D) func(A) D {
	return func(a A) D {
		return h(g(f(a)))
	}
}

// Pipe2 applies f then g to a.
func Pipe2[A, B, C any](a A, f func(A) B, g func(B) C) C {
	return g(f(a))
}

// Pipe3 applies f, g then h to a.
func Pipe3[A, B, C, D any](a A, f func(A) B, g func(B) C, h func(C) D) D {
	return h(g(f(a)))
}
