package kitdi

import (
	"reflect"

	"github.com/a-peyrard/kitdi/option"
	"github.com/rs/zerolog"
)

type (
	// Collection accumulates the service registrations before any resolution happens.
	//
	// A Collection is meant to be populated from a single goroutine, then turned into a Provider
	// with Build. It is not safe for concurrent use.
	Collection struct {
		descriptors map[Key]*Descriptor
		order       []Key
		built       bool

		logger zerolog.Logger
	}

	CollectionOptions struct {
		logger zerolog.Logger
	}

	CollectionOption = option.Option[CollectionOptions]

	RegisterOptions struct {
		constructors []any
	}

	RegisterOption = option.Option[RegisterOptions]
)

// WithLogger sets the logger used by the collection and the providers built from it.
func WithLogger(logger zerolog.Logger) CollectionOption {
	return func(opts *CollectionOptions) {
		opts.logger = logger
	}
}

// Constructor declares a construction recipe for an implementation. The parameters of fn are the
// dependencies of the implementation, fn must return the implementation, optionally with an error.
//
// An implementation declaring several constructors can be registered, but fails to resolve.
func Constructor(fn any) RegisterOption {
	return func(opts *RegisterOptions) {
		opts.constructors = append(opts.constructors, fn)
	}
}

func NewCollection(opts ...CollectionOption) *Collection {
	options := option.Build(&CollectionOptions{logger: zerolog.Nop()}, opts...)

	return &Collection{
		descriptors: make(map[Key]*Descriptor),
		order:       make([]Key, 0),
		logger:      options.logger,
	}
}

// Add registers I as the implementation of the contract K.
func Add[K any, I any](c *Collection, opts ...RegisterOption) error {
	return c.addImplementation(KeyOf[K](), KeyOf[I](), opts...)
}

// AddSelf registers T as the implementation of itself.
func AddSelf[T any](c *Collection, opts ...RegisterOption) error {
	key := KeyOf[T]()
	return c.addImplementation(key, key, opts...)
}

// AddFactory registers a factory, the key is the type returned by the factory.
func AddFactory[K any](c *Collection, factory func(p *Provider) (K, error)) error {
	key := KeyOf[K]()
	if factory == nil {
		return configurationError(key, "factory must not be nil")
	}

	return c.add(&Descriptor{
		key:      key,
		strategy: StrategyFactory,
		factory: func(p *Provider) (any, error) {
			return factory(p)
		},
	})
}

// AddInstance registers an already built instance for the contract K.
func AddInstance[K any](c *Collection, instance any) error {
	key := KeyOf[K]()
	if isNil(instance) {
		return configurationError(key, "instance must not be nil")
	}
	if t := reflect.TypeOf(instance); !t.AssignableTo(key.typ) {
		return configurationError(key, "instance of type %s does not satisfy %s", t, key)
	}

	d := &Descriptor{
		key:      key,
		strategy: StrategyInstance,
	}
	d.setInstance(instance)

	return c.add(d)
}

func isNil(instance any) bool {
	if instance == nil {
		return true
	}
	v := reflect.ValueOf(instance)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

func (c *Collection) addImplementation(key, implementation Key, opts ...RegisterOption) error {
	options := option.Build(&RegisterOptions{}, opts...)

	implTyp := implementation.typ
	if implTyp.Kind() == reflect.Interface {
		return configurationError(key, "implementation %s is an interface and cannot be instantiated", implementation)
	}
	if !implTyp.AssignableTo(key.typ) {
		return configurationError(key, "implementation %s does not satisfy %s", implementation, key)
	}

	constructors := make([]*constructor, len(options.constructors))
	for i, fn := range options.constructors {
		ctor, err := newConstructor(fn, implTyp)
		if err != nil {
			return configurationError(key, "invalid constructor #%d for %s: %v", i, implementation, err)
		}
		constructors[i] = ctor
	}

	return c.add(&Descriptor{
		key:            key,
		strategy:       StrategyImplementation,
		implementation: implementation,
		constructors:   constructors,
	})
}

func (c *Collection) add(d *Descriptor) error {
	if c.built {
		return configurationError(d.key, "the collection is already built, no more registration allowed")
	}
	if d.key == KeyFor(ProviderType) {
		return configurationError(d.key, "the key is reserved for the provider itself")
	}
	if existing, found := c.descriptors[d.key]; found {
		return configurationError(d.key, "already registered (%s), cannot register it again (%s)", existing, d)
	}

	c.descriptors[d.key] = d
	c.order = append(c.order, d.key)

	c.logger.Debug().
		Str("key", d.key.String()).
		Str("strategy", d.strategy.String()).
		Msg("service registered")

	return nil
}

// Contains tells if something is registered for the key.
func (c *Collection) Contains(key Key) bool {
	_, found := c.descriptors[key]
	return found
}

// Len returns the number of registrations.
func (c *Collection) Len() int {
	return len(c.order)
}

// Build creates a Provider over a snapshot of the registrations. Once built, the collection
// refuses any new registration.
func (c *Collection) Build() *Provider {
	c.built = true

	descriptors := make(map[Key]*Descriptor, len(c.descriptors)+1)
	order := make([]Key, 0, len(c.order)+1)
	var built []Key
	for _, key := range c.order {
		d := c.descriptors[key]
		descriptors[key] = d.clone()
		order = append(order, key)
		if d.strategy == StrategyInstance {
			built = append(built, key)
		}
	}

	p := &Provider{
		core: &core{
			descriptors: descriptors,
			order:       order,
			built:       built,
			locks:       NewLockManager(),
			logger:      c.logger,
		},
	}

	// register itself, so services can resolve other services on demand
	self := &Descriptor{
		key:      KeyFor(ProviderType),
		strategy: StrategyInstance,
	}
	self.setInstance(p)
	p.core.descriptors[self.key] = self
	p.core.order = append(p.core.order, self.key)

	c.logger.Debug().Int("services", len(order)).Msg("provider built")

	return p
}
