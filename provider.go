package kitdi

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type (
	// Provider resolves services from the registrations of a Collection. Every service is built at
	// most once and the same instance is returned to every lookup.
	//
	// A Provider is safe for concurrent use.
	Provider struct {
		core *core

		// scope is set on the handles given to factories and constructors, it is only honored
		// while the call runs.
		scope *scope
	}

	// scope holds the keys under construction when a factory or a constructor was called.
	scope struct {
		chain []Key
		done  atomic.Bool
	}

	core struct {
		mu          sync.RWMutex
		descriptors map[Key]*Descriptor
		order       []Key
		built       []Key

		locks  *LockManager
		logger zerolog.Logger
	}
)

// Get resolves the service registered for T.
func Get[T any](p *Provider) (T, error) {
	var zero T
	val, err := p.Resolve(KeyOf[T]())
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}
	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("resolved value %v is of type %T, not %T", val, val, zero)
	}
	return typed, nil
}

// MustGet is like Get but panics if the service cannot be resolved.
func MustGet[T any](p *Provider) T {
	val, err := Get[T](p)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s:\n\t%v", KeyOf[T](), err))
	}
	return val
}

// GetLazy returns the deferred handle of T, T is only resolved when the handle is forced.
func GetLazy[T any](p *Provider) (*Lazy[T], error) {
	return Get[*Lazy[T]](p)
}

// Resolve resolves the service registered for the key.
func (p *Provider) Resolve(key Key) (any, error) {
	if !p.inScope() {
		return p.core.get(key, NewTracker())
	}

	instance, err := p.core.get(key, NewTrackerFrom(p.scope.chain))
	if err != nil || !key.isDeferred() {
		return instance, err
	}
	// deferred handles forced during the call must see the keys under construction
	return instance.(deferred).scoped(p), nil
}

func (p *Provider) inScope() bool {
	return p.scope != nil && !p.scope.done.Load()
}

func (c *core) scoped(tracker *Tracker) *Provider {
	return &Provider{core: c, scope: &scope{chain: tracker.Chain()}}
}

func (c *core) root() *Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	instance, _ := c.descriptors[KeyFor(ProviderType)].Instance()
	return instance.(*Provider)
}

func (c *core) get(key Key, tracker *Tracker) (any, error) {
	d, err := c.lookup(key)
	if err != nil {
		return nil, err
	}

	if instance, found := d.Instance(); found {
		return instance, nil
	}

	if err := tracker.Push(key); err != nil {
		return nil, err
	}
	defer tracker.Pop()

	lock := c.locks.GetLockFor(key)
	lock.Lock()
	defer lock.Unlock()

	// now that we have the lock, check if the instance was built while we were waiting
	if instance, found := d.Instance(); found {
		return instance, nil
	}

	start := time.Now()
	instance, err := c.construct(d, tracker)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("key", key.String()).
			Msg("failed to construct service")
		return nil, err
	}
	instance, stored := d.setInstance(instance)
	if stored {
		c.mu.Lock()
		c.built = append(c.built, key)
		c.mu.Unlock()
	}
	c.locks.ReleaseLock(key) // no need to store the lock anymore, the instance is cached

	c.logger.Debug().
		Str("key", key.String()).
		Str("strategy", d.strategy.String()).
		Dur("took", time.Since(start)).
		Msg("service constructed")

	return instance, nil
}

func (c *core) lookup(key Key) (*Descriptor, error) {
	c.mu.RLock()
	d, found := c.descriptors[key]
	c.mu.RUnlock()
	if found {
		return d, nil
	}

	if !key.isDeferred() {
		return nil, &NotRegisteredError{Key: key}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if d, found = c.descriptors[key]; found {
		return d, nil
	}

	d = &Descriptor{
		key:      key,
		strategy: StrategyFactory,
		factory: func(p *Provider) (any, error) {
			handle := reflect.New(key.typ.Elem()).Interface().(deferred)
			handle.bind(p.core.root())
			return handle, nil
		},
	}
	c.descriptors[key] = d
	c.order = append(c.order, key)

	return d, nil
}

func (c *core) construct(d *Descriptor, tracker *Tracker) (any, error) {
	switch d.strategy {
	case StrategyFactory:
		handle := c.scoped(tracker)
		instance, err := callFactory(d.key, d.factory, handle)
		handle.scope.done.Store(true)
		if err != nil {
			return nil, fmt.Errorf("failed to construct %s using its factory:\n\t%w", d.key, err)
		}
		return instance, nil

	case StrategyImplementation:
		switch len(d.constructors) {
		case 0:
			return defaultInstance(d.implementation.typ), nil
		case 1:
			return c.callConstructor(d, d.constructors[0], tracker)
		default:
			return nil, &AmbiguousConstructionError{
				Key:            d.key,
				Implementation: d.implementation,
				Candidates:     len(d.constructors),
			}
		}

	default:
		// instances are cached at registration, we should never end up here
		return nil, fmt.Errorf("no instance available for %s", d.key)
	}
}

func (c *core) callConstructor(d *Descriptor, ctor *constructor, tracker *Tracker) (any, error) {
	handle := c.scoped(tracker)
	defer handle.scope.done.Store(true)

	args := make([]reflect.Value, len(ctor.dependencies))
	for i, depKey := range ctor.dependencies {
		dep, err := c.get(depKey, tracker)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve dependency %s of %s:\n\t%w", depKey, d.implementation, err)
		}
		if depKey.isDeferred() {
			dep = dep.(deferred).scoped(handle)
		}
		if dep == nil {
			args[i] = reflect.Zero(depKey.typ)
		} else {
			args[i] = reflect.ValueOf(dep)
		}
	}

	instance, err := ctor.call(args)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s using %s:\n\t%w", d.implementation, ctor.name, err)
	}
	return instance, nil
}

// Contains tells if the key is registered, or was synthesized by a previous lookup.
func (p *Provider) Contains(key Key) bool {
	p.core.mu.RLock()
	defer p.core.mu.RUnlock()
	_, found := p.core.descriptors[key]
	return found
}

// Keys lists the registered keys in registration order, the provider itself and the synthesized
// deferred handles come last.
func (p *Provider) Keys() []Key {
	p.core.mu.RLock()
	defer p.core.mu.RUnlock()

	keys := make([]Key, len(p.core.order))
	copy(keys, p.core.order)
	return keys
}

// Descriptors lists the descriptors in the same order as Keys.
func (p *Provider) Descriptors() []*Descriptor {
	p.core.mu.RLock()
	defer p.core.mu.RUnlock()

	descriptors := make([]*Descriptor, len(p.core.order))
	for i, key := range p.core.order {
		descriptors[i] = p.core.descriptors[key]
	}
	return descriptors
}

// Instances lists the instances built so far, including the registered instances, but not the
// provider itself.
func (p *Provider) Instances() []any {
	var instances []any
	for _, d := range p.Descriptors() {
		if d.key == KeyFor(ProviderType) {
			continue
		}
		if instance, found := d.Instance(); found {
			instances = append(instances, instance)
		}
	}
	return instances
}

// Built lists the instances in the order they were built, registered instances first. Disposal
// should walk it backward.
func (p *Provider) Built() []any {
	p.core.mu.RLock()
	keys := make([]Key, len(p.core.built))
	copy(keys, p.core.built)
	p.core.mu.RUnlock()

	instances := make([]any, 0, len(keys))
	for _, key := range keys {
		d, err := p.core.lookup(key)
		if err != nil {
			continue
		}
		if instance, found := d.Instance(); found {
			instances = append(instances, instance)
		}
	}
	return instances
}

func (p *Provider) Describe() string {
	var b strings.Builder
	b.WriteString("* Services:\n")
	for _, d := range p.Descriptors() {
		b.WriteString(fmt.Sprintf("\t- %s (%s)\n", d.key, d.strategy))
		if !d.implementation.IsZero() && d.implementation != d.key {
			b.WriteString(fmt.Sprintf("\t\timplementation: %s\n", d.implementation))
		}
		if len(d.constructors) > 0 {
			b.WriteString("\t\tconstructors:\n")
			for _, ctor := range d.constructors {
				b.WriteString(fmt.Sprintf("\t\t\t- %s\n", ctor))
			}
		}
		if _, built := d.Instance(); built {
			b.WriteString("\t\tresolved: yes\n")
		} else {
			b.WriteString("\t\tresolved: no\n")
		}
	}
	return b.String()
}
