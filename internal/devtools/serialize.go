package devtools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Serializable is implemented by values that need converting to plain data
// before an inspector sees them.
type Serializable interface {
	ToSerializable() any
}

const maxDepth = 32

// Serialize replaces every Serializable value inside v by the result of its
// conversion. Values with no Serializable part are returned unchanged.
// Containers holding converted values are rebuilt as map[string]any or []any.
func Serialize(v any) any {
	out, _ := serialize(v, 0)
	return out
}

func serialize(v any, depth int) (any, bool) {
	if v == nil || depth > maxDepth {
		return v, false
	}
	rv := reflect.ValueOf(v)
	if s, ok := v.(Serializable); ok && !isNilPointer(rv) {
		out, _ := serialize(s.ToSerializable(), depth+1)
		return out, true
	}
	if !mayContain(rv.Type(), 0) {
		return v, false
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return v, false
		}
		out, changed := serialize(rv.Elem().Interface(), depth+1)
		if !changed {
			return v, false
		}
		return out, true

	case reflect.Map:
		if rv.Len() == 0 {
			return v, false
		}
		out := make(map[string]any, rv.Len())
		changed := false
		iter := rv.MapRange()
		for iter.Next() {
			elem, c := serialize(valueOf(iter.Value()), depth+1)
			changed = changed || c
			out[fmt.Sprint(iter.Key().Interface())] = elem
		}
		if !changed {
			return v, false
		}
		return out, true

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return v, false
		}
		out := make([]any, rv.Len())
		changed := false
		for i := range out {
			elem, c := serialize(valueOf(rv.Index(i)), depth+1)
			changed = changed || c
			out[i] = elem
		}
		if !changed {
			return v, false
		}
		return out, true

	case reflect.Struct:
		return serializeStruct(v, rv, depth)
	}
	return v, false
}

func serializeStruct(v any, rv reflect.Value, depth int) (any, bool) {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	changed := false
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, skip := fieldName(f)
		if skip {
			continue
		}
		elem, c := serialize(valueOf(rv.Field(i)), depth+1)
		changed = changed || c
		out[name] = elem
	}
	if !changed {
		return v, false
	}
	return out, true
}

func fieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return f.Name, false
}

func valueOf(rv reflect.Value) any {
	if !rv.IsValid() || !rv.CanInterface() {
		return nil
	}
	return rv.Interface()
}

func isNilPointer(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}

var serializableType = reflect.TypeFor[Serializable]()

// mayContain reports whether a value of type t can hold a Serializable.
func mayContain(t reflect.Type, depth int) bool {
	if depth > 8 {
		return true
	}
	if t.Implements(serializableType) || reflect.PointerTo(t).Implements(serializableType) {
		return true
	}
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return mayContain(t.Elem(), depth+1)
	case reflect.Map:
		return mayContain(t.Elem(), depth+1)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.IsExported() && mayContain(f.Type, depth+1) {
				return true
			}
		}
	}
	return false
}

// Marshal serializes v and encodes it as JSON. Values the encoder rejects are
// replaced by their fmt rendering.
func Marshal(v any) (json.RawMessage, error) {
	data, err := json.Marshal(Serialize(v))
	if err == nil {
		return data, nil
	}
	return json.Marshal(fmt.Sprintf("%v", v))
}
