// Package reflectutils walks structs with reflection, mostly to prepare configuration structs.
package reflectutils

import (
	"reflect"

	"github.com/a-peyrard/kitdi/fn"
)

// Visitor is called for every visited value, with its static type and the path of field names
// leading to it.
type Visitor = fn.TriConsumer[reflect.Value, reflect.Type, []string]

// WalkStruct applies the visitor on the element, then on all its exported fields, recursively.
// The visitor is called before descending, so it can initialize a nil pointer to walk into it.
func WalkStruct[T any](element T, visitor Visitor) {
	walkStructInternal(reflect.ValueOf(element), []string{}, visitor)
}

func walkStructInternal(val reflect.Value, path []string, visitor Visitor) {
	visitor(val, val.Type(), path)

	val = Deref(val)
	if !val.IsValid() || val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		structField := typ.Field(i)
		if !structField.IsExported() {
			continue
		}
		fieldPath := make([]string, len(path), len(path)+1)
		copy(fieldPath, path)
		walkStructInternal(val.Field(i), append(fieldPath, structField.Name), visitor)
	}
}

// Deref dereferences recursively a reflect.Value until it reaches a non-pointer or non-interface value
func Deref(value reflect.Value) reflect.Value {
	if value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface {
		return Deref(value.Elem())
	}
	return value
}

// CreateNilStructs allocates nil struct pointers.
func CreateNilStructs(val reflect.Value, typ reflect.Type, _ []string) {
	if typ.Kind() == reflect.Pointer &&
		val.IsNil() &&
		val.CanSet() &&
		typ.Elem().Kind() == reflect.Struct {

		val.Set(reflect.New(typ.Elem()))
	}
}

// CreateEmptySlices replaces nil slices by empty ones.
func CreateEmptySlices(val reflect.Value, typ reflect.Type, _ []string) {
	if typ.Kind() == reflect.Slice && val.IsNil() && val.CanSet() {
		val.Set(reflect.MakeSlice(typ, 0, 0))
	}
}
