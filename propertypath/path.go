// Package propertypath reads and writes nested properties addressed by dotted
// paths such as "material.emissiveColor" or "position.x".
//
// Struct fields are matched by their `prop` tag, falling back to a
// case-insensitive match on the field name. String-keyed maps, pointers and
// interfaces are traversed transparently. Intermediate containers are never
// created: a path that runs into a nil pointer, a missing map key or a
// non-container value is a structural mismatch, reported as (nil, false) or
// false.
package propertypath

import (
	"reflect"
	"strings"

	"github.com/slighter12/twinscene-go/value"
)

// RotationNormalizer is implemented by targets that keep an alternate
// rotation representation. It is invoked before any path starting with
// "rotation" is read or written.
type RotationNormalizer interface {
	NormalizeRotation()
}

// Get returns the value at path. The bool is false when the path cannot be
// resolved.
func Get(target any, path string) (any, bool) {
	normalize(target, path)
	cur := reflect.ValueOf(target)
	for _, key := range split(path) {
		next, ok := child(cur, key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	if !cur.IsValid() {
		return nil, false
	}
	if !cur.CanInterface() {
		return nil, false
	}
	return cur.Interface(), true
}

// Set assigns v to path. It reports false when the container of the last
// key cannot be reached or v cannot be converted to the property's type.
func Set(target any, path string, v any) bool {
	normalize(target, path)
	keys := split(path)
	if len(keys) == 0 {
		return false
	}
	cur := reflect.ValueOf(target)
	for _, key := range keys[:len(keys)-1] {
		next, ok := child(cur, key)
		if !ok {
			return false
		}
		cur = next
	}
	return assignChild(cur, keys[len(keys)-1], v)
}

func normalize(target any, path string) {
	if !strings.HasPrefix(path, "rotation") {
		return
	}
	if n, ok := target.(RotationNormalizer); ok {
		n.NormalizeRotation()
	}
}

func split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// indirect follows pointers and interfaces down to a concrete value.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

func child(container reflect.Value, key string) (reflect.Value, bool) {
	c, ok := indirect(container)
	if !ok {
		return reflect.Value{}, false
	}
	switch c.Kind() {
	case reflect.Struct:
		idx, ok := fieldIndex(c.Type(), key)
		if !ok {
			return reflect.Value{}, false
		}
		f, err := c.FieldByIndexErr(idx)
		if err != nil {
			return reflect.Value{}, false
		}
		return f, true
	case reflect.Map:
		if c.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		v := c.MapIndex(reflect.ValueOf(key).Convert(c.Type().Key()))
		if !v.IsValid() {
			return reflect.Value{}, false
		}
		return v, true
	}
	return reflect.Value{}, false
}

func assignChild(container reflect.Value, key string, v any) bool {
	c, ok := indirect(container)
	if !ok {
		return false
	}
	switch c.Kind() {
	case reflect.Struct:
		idx, ok := fieldIndex(c.Type(), key)
		if !ok {
			return false
		}
		f, err := c.FieldByIndexErr(idx)
		if err != nil || !f.CanSet() {
			return false
		}
		rv, ok := convert(v, f.Type())
		if !ok {
			return false
		}
		f.Set(rv)
		return true
	case reflect.Map:
		kt := c.Type().Key()
		if kt.Kind() != reflect.String || c.IsNil() {
			return false
		}
		rv, ok := convert(v, c.Type().Elem())
		if !ok {
			return false
		}
		c.SetMapIndex(reflect.ValueOf(key).Convert(kt), rv)
		return true
	}
	return false
}

// convert adapts v to t. Null, Void and nil become the zero value; Unknown
// is unwrapped; numbers convert between numeric kinds.
func convert(v any, t reflect.Type) (reflect.Value, bool) {
	switch x := v.(type) {
	case nil, value.Null, value.Void:
		return reflect.Zero(t), true
	case value.Unknown:
		return convert(x.V, t)
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(t):
		return rv, true
	case t.Kind() == reflect.Pointer && rv.Type().AssignableTo(t.Elem()):
		p := reflect.New(t.Elem())
		p.Elem().Set(rv)
		return p, true
	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type().AssignableTo(t):
		return rv.Elem(), true
	case isNumeric(rv.Kind()) && isNumeric(t.Kind()):
		return rv.Convert(t), true
	case rv.Kind() == t.Kind() && rv.Type().ConvertibleTo(t) && rv.Kind() != reflect.Struct:
		return rv.Convert(t), true
	}
	return reflect.Value{}, false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// fieldIndex resolves key against the visible fields of t, embedded fields
// included.
func fieldIndex(t reflect.Type, key string) ([]int, bool) {
	var fallback []int
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tag := f.Tag.Get("prop")
		if tag == "-" {
			continue
		}
		if tag != "" {
			if tag == key {
				return f.Index, true
			}
			continue
		}
		if fallback == nil && strings.EqualFold(f.Name, key) {
			fallback = f.Index
		}
	}
	return fallback, fallback != nil
}

// Keys lists the property keys directly addressable on target, in field
// order. Maps report their keys unsorted.
func Keys(target any) []string {
	c, ok := indirect(reflect.ValueOf(target))
	if !ok {
		return nil
	}
	switch c.Kind() {
	case reflect.Struct:
		var keys []string
		for _, f := range reflect.VisibleFields(c.Type()) {
			if !f.IsExported() || f.Anonymous {
				continue
			}
			tag := f.Tag.Get("prop")
			switch tag {
			case "-":
				continue
			case "":
				keys = append(keys, strings.ToLower(f.Name[:1])+f.Name[1:])
			default:
				keys = append(keys, tag)
			}
		}
		return keys
	case reflect.Map:
		if c.Type().Key().Kind() != reflect.String {
			return nil
		}
		keys := make([]string, 0, c.Len())
		for _, k := range c.MapKeys() {
			keys = append(keys, k.String())
		}
		return keys
	}
	return nil
}
