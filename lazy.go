package kitdi

import (
	"errors"
	"fmt"
	"sync"
)

type (
	// deferred is implemented by the handles the provider knows how to synthesize.
	deferred interface {
		bind(p *Provider)
		deferredKey() Key
		scoped(p *Provider) any
	}

	// Lazy is a deferred handle on a T, T is resolved the first time the handle is forced.
	//
	// Lazy handles are not registered, asking a provider for a *Lazy[T] is enough. This is the way
	// to break a dependency cycle: A depends on *Lazy[B], B depends on A. Forcing the handle while
	// A is still under construction reports the cycle, forcing it afterward resolves B.
	Lazy[T any] struct {
		provider *Provider
		state    *lazyState[T]
	}

	// lazyState is shared by a handle and the views given to constructors and factories.
	lazyState[T any] struct {
		mu      sync.Mutex
		created bool
		value   T
	}
)

// NewLazy creates a handle bound to the provider.
func NewLazy[T any](p *Provider) *Lazy[T] {
	l := &Lazy[T]{}
	l.bind(p)
	return l
}

func (l *Lazy[T]) bind(p *Provider) {
	l.provider = p
	if l.state == nil {
		l.state = &lazyState[T]{}
	}
}

func (l *Lazy[T]) deferredKey() Key {
	return KeyOf[T]()
}

// scoped returns a view of the handle resolving through p, the forced value is shared.
func (l *Lazy[T]) scoped(p *Provider) any {
	return &Lazy[T]{provider: p, state: l.state}
}

// Value forces the handle. A successful resolution is kept, a failed one is tried again on the
// next call.
func (l *Lazy[T]) Value() (T, error) {
	var zero T
	if l.provider == nil || l.state == nil {
		return zero, errors.New("lazy handle is not bound to a provider")
	}

	l.state.mu.Lock()
	if l.state.created {
		defer l.state.mu.Unlock()
		return l.state.value, nil
	}
	l.state.mu.Unlock()

	// resolved without holding the state lock, the provider hands out the same singleton anyway
	val, err := Get[T](l.provider)
	if err != nil {
		return zero, fmt.Errorf("failed to force lazy %s:\n\t%w", l.deferredKey(), err)
	}

	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.value = val
	l.state.created = true

	return val, nil
}

func (l *Lazy[T]) MustValue() T {
	val, err := l.Value()
	if err != nil {
		panic(err.Error())
	}
	return val
}

func (l *Lazy[T]) IsValueCreated() bool {
	if l.state == nil {
		return false
	}
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	return l.state.created
}

func (l *Lazy[T]) String() string {
	if l.state != nil {
		l.state.mu.Lock()
		defer l.state.mu.Unlock()
		if l.state.created {
			return fmt.Sprintf("Lazy[%s](%v)", l.deferredKey(), l.state.value)
		}
	}
	return fmt.Sprintf("Lazy[%s](<not created>)", l.deferredKey())
}
