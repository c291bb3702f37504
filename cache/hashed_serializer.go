package cache

import (
	"bytes"
	"errors"
	"reflect"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// hashedKeySerializer reduces keys produced by another serializer to a fixed
// width xxhash digest. The namespace prefix is kept verbatim so prefix based
// invalidation still works.
type hashedKeySerializer struct {
	inner KeySerializer
}

// NewHashedKeySerializer wraps inner so that keys carry a 64 bit digest of the
// serialized argument list instead of the full rendering. Useful when arguments
// are large (slices, nested structs) and the cache is long lived.
func NewHashedKeySerializer(inner KeySerializer) KeySerializer {
	if inner == nil {
		inner = NewDefaultKeySerializer()
	}
	return &hashedKeySerializer{inner: inner}
}

func (s *hashedKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}
	digest := xxhash.Sum64String(s.inner.SerializeKey(method, args...))
	return method + KeySeparator + formatDigest("xx", digest)
}

// errUnencodable marks values that only have identity, not structure.
var errUnencodable = errors.New("value has no canonical encoding")

// msgpackKeySerializer walks every argument and writes a canonical msgpack
// stream which is then hashed with xxhash. Values are preceded by their type
// name and pointers are followed. Structs contribute all of their fields, with
// unexported ones included and struct tags ignored. Map entries are ordered by
// their encoded key. Two argument
// lists therefore share a key exactly when the default serializer would give
// them the same one.
type msgpackKeySerializer struct {
	fallback KeySerializer
}

// NewMsgpackKeySerializer creates a serializer backed by a canonical msgpack
// encoding. Arguments holding functions, channels or unsafe pointers make the
// whole key fall back to the hashed reflection serializer.
func NewMsgpackKeySerializer() KeySerializer {
	return &msgpackKeySerializer{fallback: NewHashedKeySerializer(NewDefaultKeySerializer())}
}

func (s *msgpackKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeArrayLen(len(args)); err != nil {
		return s.fallback.SerializeKey(method, args...)
	}

	w := &msgpackKeyWriter{seen: visited{}}
	for _, arg := range args {
		if err := w.write(enc, reflect.ValueOf(arg)); err != nil {
			return s.fallback.SerializeKey(method, args...)
		}
	}

	return method + KeySeparator + formatDigest("mp", xxhash.Sum64(buf.Bytes()))
}

type msgpackKeyWriter struct {
	seen visited
}

func (w *msgpackKeyWriter) write(enc *msgpack.Encoder, rv reflect.Value) error {
	if !rv.IsValid() {
		return enc.EncodeNil()
	}

	rt := rv.Type()
	switch rt.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return enc.EncodeNil()
		}
		return w.write(enc, rv.Elem())
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return errUnencodable
	case reflect.Ptr:
		// pointers are transparent, as in the reflection serializer
		if rv.IsNil() {
			if err := enc.EncodeString(rt.String()); err != nil {
				return err
			}
			return enc.EncodeNil()
		}
		return w.nested(enc, rv, func() error { return w.write(enc, rv.Elem()) })
	}

	if err := enc.EncodeString(rt.String()); err != nil {
		return err
	}

	switch rt.Kind() {
	case reflect.Bool:
		return enc.EncodeBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return enc.EncodeInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return enc.EncodeUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return enc.EncodeFloat64(rv.Float())
	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		if err := enc.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := enc.EncodeFloat64(real(c)); err != nil {
			return err
		}
		return enc.EncodeFloat64(imag(c))
	case reflect.String:
		return enc.EncodeString(rv.String())

	case reflect.Slice:
		if rv.IsNil() {
			return enc.EncodeNil()
		}
		if rv.Len() == 0 {
			return enc.EncodeArrayLen(0)
		}
		return w.nested(enc, rv, func() error { return w.writeSequence(enc, rv) })
	case reflect.Array:
		return w.writeSequence(enc, rv)

	case reflect.Map:
		if rv.IsNil() {
			return enc.EncodeNil()
		}
		return w.nested(enc, rv, func() error { return w.writeMap(enc, rv) })

	case reflect.Struct:
		if err := enc.EncodeArrayLen(rv.NumField()); err != nil {
			return err
		}
		for i := 0; i < rv.NumField(); i++ {
			if err := enc.EncodeString(rt.Field(i).Name); err != nil {
				return err
			}
			if err := w.write(enc, rv.Field(i)); err != nil {
				return err
			}
		}
		return nil
	}

	return errUnencodable
}

// nested runs body with rv on the path, or writes a cycle marker when rv is
// already on it.
func (w *msgpackKeyWriter) nested(enc *msgpack.Encoder, rv reflect.Value, body func() error) error {
	key, ok := w.seen.enter(rv)
	if !ok {
		return enc.EncodeString("cycle:" + rv.Type().String())
	}
	defer w.seen.leave(key)
	return body()
}

func (w *msgpackKeyWriter) writeSequence(enc *msgpack.Encoder, rv reflect.Value) error {
	if err := enc.EncodeArrayLen(rv.Len()); err != nil {
		return err
	}
	for i := 0; i < rv.Len(); i++ {
		if err := w.write(enc, rv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// writeMap encodes every entry into its own buffer and emits them sorted by the
// encoded key, which makes the stream independent of iteration order.
func (w *msgpackKeyWriter) writeMap(enc *msgpack.Encoder, rv reflect.Value) error {
	type entry struct {
		key   []byte
		value []byte
	}

	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var kb, vb bytes.Buffer
		if err := w.write(msgpack.NewEncoder(&kb), iter.Key()); err != nil {
			return err
		}
		if err := w.write(msgpack.NewEncoder(&vb), iter.Value()); err != nil {
			return err
		}
		entries = append(entries, entry{key: kb.Bytes(), value: vb.Bytes()})
	}

	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	if err := enc.EncodeMapLen(len(entries)); err != nil {
		return err
	}
	for _, e := range entries {
		if err := enc.Encode(msgpack.RawMessage(e.key)); err != nil {
			return err
		}
		if err := enc.Encode(msgpack.RawMessage(e.value)); err != nil {
			return err
		}
	}
	return nil
}

func formatDigest(prefix string, digest uint64) string {
	hex := strconv.FormatUint(digest, 16)
	for len(hex) < 16 {
		hex = "0" + hex
	}
	return prefix + ":" + hex
}
