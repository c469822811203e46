package kitdi

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync/atomic"
)

// Strategy is the way a descriptor builds its instance.
type Strategy int

const (
	StrategyImplementation Strategy = iota
	StrategyFactory
	StrategyInstance
)

func (s Strategy) String() string {
	switch s {
	case StrategyImplementation:
		return "implementation"
	case StrategyFactory:
		return "factory"
	case StrategyInstance:
		return "instance"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

type (
	// Descriptor is the recipe registered for a key.
	Descriptor struct {
		key      Key
		strategy Strategy

		implementation Key
		constructors   []*constructor
		factory        func(p *Provider) (any, error)

		instance atomic.Pointer[instanceBox]
	}

	instanceBox struct {
		value any
	}

	// constructor is a function declaring the dependencies of an implementation through its
	// parameters.
	constructor struct {
		fn           reflect.Value
		name         string
		dependencies []Key
	}
)

func (d *Descriptor) Key() Key {
	return d.key
}

func (d *Descriptor) Strategy() Strategy {
	return d.strategy
}

// Implementation returns the implementation key, zero for factory and instance descriptors.
func (d *Descriptor) Implementation() Key {
	return d.implementation
}

// Dependencies lists the keys declared by the constructors of the implementation, in order.
// Factories discover their dependencies while running, so they report none.
func (d *Descriptor) Dependencies() []Key {
	var deps []Key
	for _, ctor := range d.constructors {
		deps = append(deps, ctor.dependencies...)
	}
	return deps
}

// Instance returns the cached instance if it was built already.
func (d *Descriptor) Instance() (any, bool) {
	box := d.instance.Load()
	if box == nil {
		return nil, false
	}
	return box.value, true
}

// setInstance caches the instance, the first stored instance wins. It tells whether the given
// value was the one stored.
func (d *Descriptor) setInstance(value any) (any, bool) {
	if d.instance.CompareAndSwap(nil, &instanceBox{value: value}) {
		return value, true
	}
	return d.instance.Load().value, false
}

func (d *Descriptor) clone() *Descriptor {
	cloned := &Descriptor{
		key:            d.key,
		strategy:       d.strategy,
		implementation: d.implementation,
		constructors:   d.constructors,
		factory:        d.factory,
	}
	if box := d.instance.Load(); box != nil {
		cloned.instance.Store(box)
	}
	return cloned
}

func (d *Descriptor) String() string {
	switch d.strategy {
	case StrategyImplementation:
		return fmt.Sprintf("%s => %s", d.key, d.implementation)
	default:
		return fmt.Sprintf("%s => <%s>", d.key, d.strategy)
	}
}

func newConstructor(fn any, implementation reflect.Type) (*constructor, error) {
	if fn == nil {
		return nil, errors.New("constructor must not be nil")
	}
	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %s", t)
	}
	if t.IsVariadic() {
		return nil, errors.New("constructor must not be variadic")
	}
	if t.NumOut() != 1 && t.NumOut() != 2 {
		return nil, errors.New("constructor must either return the instance and an error, or just the instance")
	}
	if t.NumOut() == 2 && t.Out(1) != ErrorType {
		return nil, errors.New("if constructor returns two elements, it must return an error as the second element")
	}
	if !t.Out(0).AssignableTo(implementation) {
		return nil, fmt.Errorf("constructor returns %s, which is not assignable to %s", t.Out(0), implementation)
	}

	dependencies := make([]Key, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		dependencies[i] = KeyFor(t.In(i))
	}

	v := reflect.ValueOf(fn)
	return &constructor{
		fn:           v,
		name:         runtime.FuncForPC(v.Pointer()).Name(),
		dependencies: dependencies,
	}, nil
}

func (c *constructor) call(args []reflect.Value) (instance any, err error) {
	// panic recovery, as `Call` can panic if the constructor has a panic
	var results []reflect.Value
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic calling constructor %s: %v", c.name, r)
			}
		}()
		results = c.fn.Call(args)
	}()
	if err != nil {
		return nil, err
	}

	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}

	return results[0].Interface(), nil
}

func (c *constructor) String() string {
	return fmt.Sprintf("%s%v", c.name, keysToStrings(c.dependencies))
}

// defaultInstance is the no-argument construction path of an implementation.
func defaultInstance(typ reflect.Type) any {
	if typ.Kind() == reflect.Pointer {
		return reflect.New(typ.Elem()).Interface()
	}
	return reflect.New(typ).Elem().Interface()
}

func callFactory(key Key, factory func(p *Provider) (any, error), p *Provider) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = fmt.Errorf("panic calling factory for %s: %v", key, r)
		}
	}()
	return factory(p)
}
