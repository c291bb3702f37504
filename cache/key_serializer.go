package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// Every value is rendered together with its type so that argument lists which are not
// structurally equal never share a key, while equal lists always do.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a cache key from a namespace and the full argument list.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)

	for _, arg := range args {
		parts = append(parts, s.serializeArg(arg))
	}

	return strings.Join(parts, KeySeparator)
}

func (s *defaultKeySerializer) serializeArg(arg any) string {
	var b strings.Builder
	s.writeValue(&b, reflect.ValueOf(arg), visited{})
	return b.String()
}

// visit identifies a pointer, map or slice on the current rendering path.
// The type is part of it because a struct and its first field share an address.
type visit struct {
	addr uintptr
	typ  reflect.Type
}

// visited holds the references being rendered. A reference met again while it
// is still on the path is a cycle.
type visited map[visit]bool

// enter marks rv as being rendered. It reports false when rv is already on the
// path; otherwise the caller must call leave once rv is done.
func (v visited) enter(rv reflect.Value) (visit, bool) {
	key := visit{addr: rv.Pointer(), typ: rv.Type()}
	if v[key] {
		return key, false
	}
	v[key] = true
	return key, true
}

func (v visited) leave(key visit) {
	delete(v, key)
}

// writeValue renders rv into b. seen tracks the pointers, maps and slices on
// the current path so that cyclic structures terminate.
func (s *defaultKeySerializer) writeValue(b *strings.Builder, rv reflect.Value, seen visited) {
	if !rv.IsValid() {
		b.WriteString("nil")
		return
	}

	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			b.WriteString("nil")
			return
		}
		s.writeValue(b, rv.Elem(), seen)

	case reflect.Ptr:
		if rv.IsNil() {
			fmt.Fprintf(b, "%s(nil)", rt.String())
			return
		}
		key, ok := seen.enter(rv)
		if !ok {
			fmt.Fprintf(b, "cycle:%s", rt.String())
			return
		}
		s.writeValue(b, rv.Elem(), seen)
		seen.leave(key)

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// Identity is the only equality these kinds have.
		if rv.IsNil() {
			fmt.Fprintf(b, "%s(nil)", rt.String())
			return
		}
		fmt.Fprintf(b, "%s:0x%x", kindPrefix(rt.Kind()), rv.Pointer())

	case reflect.Slice:
		if rv.IsNil() {
			fmt.Fprintf(b, "%s(nil)", rt.String())
			return
		}
		// empty slices may share a base address and cannot contain anything
		if rv.Len() == 0 {
			s.writeSequence(b, rt.String(), rv, seen)
			return
		}
		key, ok := seen.enter(rv)
		if !ok {
			fmt.Fprintf(b, "cycle:%s", rt.String())
			return
		}
		s.writeSequence(b, rt.String(), rv, seen)
		seen.leave(key)

	case reflect.Array:
		s.writeSequence(b, rt.String(), rv, seen)

	case reflect.Map:
		if rv.IsNil() {
			fmt.Fprintf(b, "%s(nil)", rt.String())
			return
		}
		key, ok := seen.enter(rv)
		if !ok {
			fmt.Fprintf(b, "cycle:%s", rt.String())
			return
		}
		s.writeMap(b, rv, seen)
		seen.leave(key)

	case reflect.Struct:
		s.writeStruct(b, rv, rt, seen)

	default:
		b.WriteString(rt.String())
		b.WriteByte(':')
		b.WriteString(basicString(rv))
	}
}

// writeSequence handles slices and arrays recursively.
func (s *defaultKeySerializer) writeSequence(b *strings.Builder, typeName string, rv reflect.Value, seen visited) {
	length := rv.Len()
	fmt.Fprintf(b, "%s[%d]{", typeName, length)
	for i := 0; i < length; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		s.writeValue(b, rv.Index(i), seen)
	}
	b.WriteByte('}')
}

// writeMap renders map entries ordered by their serialized key.
func (s *defaultKeySerializer) writeMap(b *strings.Builder, rv reflect.Value, seen visited) {
	type pair struct {
		key   string
		value string
	}

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var kb, vb strings.Builder
		s.writeValue(&kb, iter.Key(), seen)
		s.writeValue(&vb, iter.Value(), seen)
		pairs = append(pairs, pair{key: kb.String(), value: vb.String()})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].key < pairs[j].key
	})

	fmt.Fprintf(b, "%s[%d]{", rv.Type().String(), len(pairs))
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	b.WriteByte('}')
}

// writeStruct renders every field, exported or not. Two values of the same struct
// type produce the same key exactly when all their fields do.
func (s *defaultKeySerializer) writeStruct(b *strings.Builder, rv reflect.Value, rt reflect.Type, seen visited) {
	b.WriteString(rt.String())
	b.WriteByte('{')
	for i := 0; i < rv.NumField(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(rt.Field(i).Name)
		b.WriteByte(':')
		s.writeValue(b, rv.Field(i), seen)
	}
	b.WriteByte('}')
}

// basicString formats scalar kinds without going through Interface, which is not
// allowed for values reached through unexported fields.
func basicString(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Complex64:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 64)
	case reflect.Complex128:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 128)
	case reflect.String:
		return strconv.Quote(rv.String())
	default:
		return fmt.Sprintf("%v", rv)
	}
}

func kindPrefix(kind reflect.Kind) string {
	switch kind {
	case reflect.Func:
		return "func"
	case reflect.Chan:
		return "chan"
	default:
		return "ptr"
	}
}
