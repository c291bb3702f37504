package cache

import (
	"reflect"
	"runtime"
	"strings"
	"unicode"
)

// Namespace converts a (possibly reflected) function name into a snake_case key
// prefix. Package paths are dropped, everything after the last '/' is kept.
//
//	Namespace("github.com/acme/billing.(*Invoice).Total-fm") == "billing_invoice_total_fm"
func Namespace(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return toSnake(name)
}

// FuncNamespace returns the Namespace of the function value f, or "anonymous"
// when f is not a function or its name cannot be resolved.
func FuncNamespace(f any) string {
	rv := reflect.ValueOf(f)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		return "anonymous"
	}
	info := runtime.FuncForPC(rv.Pointer())
	if info == nil {
		return "anonymous"
	}
	if ns := Namespace(info.Name()); ns != "" {
		return ns
	}
	return "anonymous"
}

// toSnake converts the provided string to snake_case using ASCII-aware rules.
// Punctuation that shows up in reflected names (pointers, receivers, closure
// suffixes) collapses into single underscores so the result is safe to use as a
// key prefix.
func toSnake(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if (unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower) && !lastUnderscore {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false

		case unicode.IsLower(r):
			b.WriteRune(r)
			lastUnderscore = false

		case unicode.IsDigit(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				if !unicode.IsDigit(prev) && !lastUnderscore {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r)
			lastUnderscore = false

		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}
