package kitdi

import (
	"reflect"
)

var (
	ErrorType    = TypeOf[error]()
	ProviderType = TypeOf[*Provider]()
	deferredType = TypeOf[deferred]()
)

// Key identifies a service contract. Two keys are equal only if their types are identical.
type Key struct {
	typ reflect.Type
}

// KeyOf returns the key of the type T, T can be an interface type.
func KeyOf[T any]() Key {
	return Key{typ: TypeOf[T]()}
}

// KeyFor wraps an already known reflect.Type.
func KeyFor(typ reflect.Type) Key {
	return Key{typ: typ}
}

func (k Key) Type() reflect.Type {
	return k.typ
}

// Name returns the bare name of the type, or its full representation for unnamed types
// such as pointers or slices.
func (k Key) Name() string {
	if k.typ == nil {
		return "<nil>"
	}
	if name := k.typ.Name(); name != "" {
		return name
	}
	return k.typ.String()
}

func (k Key) String() string {
	if k.typ == nil {
		return "<nil>"
	}
	return k.typ.String()
}

func (k Key) IsZero() bool {
	return k.typ == nil
}

// isDeferred tells if the key denotes a deferred handle (*Lazy[T]) that can be synthesized on a
// lookup miss.
func (k Key) isDeferred() bool {
	return k.typ != nil && k.typ.Kind() == reflect.Pointer && k.typ.Implements(deferredType)
}

func TypeOf[I any]() reflect.Type {
	var i I
	t := reflect.TypeOf(i)
	if t == nil {
		t = reflect.TypeOf((*I)(nil)).Elem()
	}
	return t
}

func keysToStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
