package kitdi

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/a-peyrard/kitdi/concurrent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Get(t *testing.T) {
	t.Run("it should resolve a service with its dependency", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c))
		require.NoError(t, AddSelf[*ServiceWithCtor](c, Constructor(NewServiceWithCtor)))
		p := c.Build()

		// WHEN
		service, err := Get[*ServiceWithCtor](p)

		// THEN
		require.NoError(t, err)
		require.NotNil(t, service.Value)
		iface, err := Get[IIFace](p)
		require.NoError(t, err)
		assert.Same(t, iface, service.Value)
	})

	t.Run("it should return singleton instances (same instance on multiple resolves)", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c))
		p := c.Build()

		// WHEN
		i1, err := Get[IIFace](p)
		require.NoError(t, err)
		i2, err := Get[IIFace](p)
		require.NoError(t, err)

		// THEN
		assert.NotNil(t, i1)
		assert.Same(t, i1, i2, "Expected same instance (singleton)")
	})

	t.Run("it should return the registered instance", func(t *testing.T) {
		// GIVEN
		instance := &IImpl{greeting: "hi"}
		c := NewCollection()
		require.NoError(t, AddInstance[IIFace](c, instance))
		p := c.Build()

		// WHEN
		resolved, err := Get[IIFace](p)

		// THEN
		require.NoError(t, err)
		assert.Same(t, instance, resolved)
	})

	t.Run("it should call the factory once with the provider", func(t *testing.T) {
		// GIVEN
		var calls atomic.Int32
		c := NewCollection()
		require.NoError(t, AddSelf[*ServiceWithCtor](c, Constructor(NewServiceWithCtor)))
		require.NoError(t, AddFactory(c, func(p *Provider) (IIFace, error) {
			calls.Add(1)
			return &IImpl{greeting: "from factory"}, nil
		}))
		p := c.Build()

		// WHEN
		service, err := Get[*ServiceWithCtor](p)
		require.NoError(t, err)
		iface, err := Get[IIFace](p)
		require.NoError(t, err)

		// THEN
		assert.Equal(t, "from factory", service.Value.Hello())
		assert.Same(t, iface, service.Value)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("it should let factories resolve their own dependencies", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c))
		require.NoError(t, AddFactory(c, func(p *Provider) (*ServiceWithCtor, error) {
			iface, err := Get[IIFace](p)
			if err != nil {
				return nil, err
			}
			return &ServiceWithCtor{Value: iface}, nil
		}))
		p := c.Build()

		// WHEN
		service, err := Get[*ServiceWithCtor](p)

		// THEN
		require.NoError(t, err)
		assert.Same(t, MustGet[IIFace](p), service.Value)
	})

	t.Run("it should use the default construction when no constructor is declared", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, AddSelf[*IImpl](c))
		require.NoError(t, AddSelf[IImpl](c))
		p := c.Build()

		// WHEN
		ptr, err := Get[*IImpl](p)
		require.NoError(t, err)
		val, err := Get[IImpl](p)
		require.NoError(t, err)

		// THEN
		assert.NotNil(t, ptr)
		assert.Equal(t, "hello", ptr.Hello())
		assert.Equal(t, "", val.greeting)
	})

	t.Run("it should fail when nothing is registered", func(t *testing.T) {
		// GIVEN
		p := NewCollection().Build()

		// WHEN
		_, err := Get[IIFace](p)

		// THEN
		var notRegistered *NotRegisteredError
		require.ErrorAs(t, err, &notRegistered)
		assert.Equal(t, "IIFace", notRegistered.Key.Name())
		assert.ErrorIs(t, err, ErrNotRegistered)
	})

	t.Run("it should name the missing dependency, not the requesting type", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, AddSelf[*ServiceWithCtor](c, Constructor(NewServiceWithCtor)))
		p := c.Build()

		// WHEN
		_, err := Get[*ServiceWithCtor](p)

		// THEN
		var notRegistered *NotRegisteredError
		require.ErrorAs(t, err, &notRegistered)
		assert.Equal(t, KeyOf[IIFace](), notRegistered.Key)
		assert.Contains(t, err.Error(), "failed to resolve dependency")
	})

	t.Run("it should detect a self dependency", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, AddSelf[*ServiceWithRecursive](c, Constructor(NewServiceWithRecursive)))
		p := c.Build()

		// WHEN
		_, err := Get[*ServiceWithRecursive](p)

		// THEN
		var cyclic *CyclicDependencyError
		require.ErrorAs(t, err, &cyclic)
		key := KeyOf[*ServiceWithRecursive]()
		assert.Equal(t, []Key{key, key}, cyclic.Chain)
		assert.ErrorIs(t, err, ErrCyclicDependency)
	})

	t.Run("it should report the full chain of a transitive cycle", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, AddSelf[*ServiceA](c, Constructor(NewServiceA)))
		require.NoError(t, AddSelf[*ServiceB](c, Constructor(NewServiceB)))
		require.NoError(t, AddSelf[*ServiceC](c, Constructor(NewServiceC)))
		p := c.Build()

		// WHEN
		_, err := Get[*ServiceB](p)

		// THEN
		var cyclic *CyclicDependencyError
		require.ErrorAs(t, err, &cyclic)
		assert.Equal(
			t,
			[]Key{KeyOf[*ServiceB](), KeyOf[*ServiceC](), KeyOf[*ServiceA](), KeyOf[*ServiceB]()},
			cyclic.Chain,
		)
		assert.Equal(t, "*kitdi.ServiceB -> *kitdi.ServiceC -> *kitdi.ServiceA -> *kitdi.ServiceB", cyclic.Path())
	})

	t.Run("it should detect cycles going through factories", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, AddFactory(c, func(p *Provider) (*ServiceA, error) {
			b, err := Get[*ServiceB](p)
			return &ServiceA{B: b}, err
		}))
		require.NoError(t, AddSelf[*ServiceB](c, Constructor(func(a *ServiceA) *ServiceB {
			return &ServiceB{}
		})))
		p := c.Build()

		// WHEN
		_, err := Get[*ServiceA](p)

		// THEN
		var cyclic *CyclicDependencyError
		require.ErrorAs(t, err, &cyclic)
		assert.Equal(t, []Key{KeyOf[*ServiceA](), KeyOf[*ServiceB](), KeyOf[*ServiceA]()}, cyclic.Chain)
	})

	t.Run("it should forget the construction chain once the factory returned", func(t *testing.T) {
		// GIVEN
		type (
			holder struct {
				provider *Provider
			}
			outer struct{}
		)
		c := NewCollection()
		require.NoError(t, AddFactory(c, func(p *Provider) (*holder, error) {
			return &holder{provider: p}, nil
		}))
		require.NoError(t, AddSelf[*outer](c, Constructor(func(h *holder, a *ServiceA) *outer {
			return &outer{}
		})))
		p := c.Build()
		_, err := Get[*outer](p)
		require.ErrorIs(t, err, ErrNotRegistered)
		kept := MustGet[*holder](p).provider

		// WHEN
		_, err = Get[*outer](kept)

		// THEN
		assert.ErrorIs(t, err, ErrNotRegistered)
		assert.NotErrorIs(t, err, ErrCyclicDependency)
	})

	t.Run("it should fail when an implementation declares several constructors", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](
			c,
			Constructor(func() *IImpl { return &IImpl{greeting: "one"} }),
			Constructor(func() *IImpl { return &IImpl{greeting: "two"} }),
		))
		p := c.Build()

		// WHEN
		_, err := Get[IIFace](p)

		// THEN
		var ambiguous *AmbiguousConstructionError
		require.ErrorAs(t, err, &ambiguous)
		assert.Equal(t, KeyOf[*IImpl](), ambiguous.Implementation)
		assert.Equal(t, 2, ambiguous.Candidates)
		assert.ErrorIs(t, err, ErrAmbiguousConstruction)
	})

	t.Run("it should fail when the constructor returns an error", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c, Constructor(NewFailingIImpl)))
		p := c.Build()

		// WHEN
		_, err := Get[IIFace](p)

		// THEN
		require.Error(t, err)
		assert.Contains(t, err.Error(), "constructor intentionally failed")
	})

	t.Run("it should recover from a panicking factory", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, AddFactory(c, func(p *Provider) (IIFace, error) {
			panic("boom")
		}))
		p := c.Build()

		// WHEN
		_, err := Get[IIFace](p)

		// THEN
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("it should not cache a failed resolution", func(t *testing.T) {
		// GIVEN
		var fail atomic.Bool
		fail.Store(true)
		c := NewCollection()
		require.NoError(t, AddFactory(c, func(p *Provider) (IIFace, error) {
			if fail.Load() {
				return nil, errors.New("not yet")
			}
			return &IImpl{}, nil
		}))
		p := c.Build()
		_, err := Get[IIFace](p)
		require.Error(t, err)

		// WHEN
		fail.Store(false)
		iface, err := Get[IIFace](p)

		// THEN
		require.NoError(t, err)
		assert.NotNil(t, iface)
	})

	t.Run("it should build a singleton once under concurrent lookups", func(t *testing.T) {
		// GIVEN
		counter := &Counter{built: &atomic.Int32{}}
		c := NewCollection()
		require.NoError(t, AddFactory(c, func(p *Provider) (*Counter, error) {
			counter.built.Add(1)
			return counter, nil
		}))
		require.NoError(t, AddSelf[*ServiceWithCtor](c, Constructor(func(counter *Counter) *ServiceWithCtor {
			return &ServiceWithCtor{Value: &IImpl{}}
		})))
		p := c.Build()
		results := concurrent.NewSlice[*ServiceWithCtor]()

		// WHEN
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				service, err := Get[*ServiceWithCtor](p)
				if err == nil {
					results.Append(service)
				}
			}()
		}
		wg.Wait()

		// THEN
		assert.Equal(t, int32(1), counter.built.Load())
		require.Equal(t, 50, results.Length())
		first := results.GetAt(0)
		for _, service := range results.Get() {
			assert.Same(t, first, service)
		}
	})
}

func TestProvider_Introspection(t *testing.T) {
	t.Run("it should list keys in registration order", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, AddSelf[*ServiceWithCtor](c, Constructor(NewServiceWithCtor)))
		require.NoError(t, Add[IIFace, *IImpl](c))

		// WHEN
		p := c.Build()

		// THEN
		assert.Equal(
			t,
			[]Key{KeyOf[*ServiceWithCtor](), KeyOf[IIFace](), KeyOf[*Provider]()},
			p.Keys(),
		)
	})

	t.Run("it should only list built instances", func(t *testing.T) {
		// GIVEN
		instance := &ServiceA{}
		c := NewCollection()
		require.NoError(t, AddInstance[*ServiceA](c, instance))
		require.NoError(t, Add[IIFace, *IImpl](c))
		require.NoError(t, AddSelf[*ServiceWithCtor](c, Constructor(NewServiceWithCtor)))
		p := c.Build()
		iface := MustGet[IIFace](p)

		// WHEN
		instances := p.Instances()

		// THEN
		assert.Equal(t, []any{instance, iface}, instances)
	})

	t.Run("it should list built instances in construction order", func(t *testing.T) {
		// GIVEN
		instance := &ServiceA{}
		c := NewCollection()
		require.NoError(t, AddSelf[*ServiceWithCtor](c, Constructor(NewServiceWithCtor)))
		require.NoError(t, Add[IIFace, *IImpl](c))
		require.NoError(t, AddInstance[*ServiceA](c, instance))
		p := c.Build()
		service := MustGet[*ServiceWithCtor](p)

		// WHEN
		built := p.Built()

		// THEN
		assert.Equal(t, []any{instance, service.Value, service}, built)
		assert.Equal(t, []any{service, service.Value, instance}, p.Instances())
	})

	t.Run("it should describe the services", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c))
		require.NoError(t, AddSelf[*ServiceWithCtor](c, Constructor(NewServiceWithCtor)))
		p := c.Build()
		_ = MustGet[IIFace](p)

		// WHEN
		description := p.Describe()

		// THEN
		assert.Contains(t, description, "kitdi.IIFace (implementation)")
		assert.Contains(t, description, "implementation: *kitdi.IImpl")
		assert.Contains(t, description, "NewServiceWithCtor[kitdi.IIFace]")
		assert.Contains(t, description, "resolved: yes")
		assert.Contains(t, description, "resolved: no")
	})

	t.Run("it should tell which keys are known", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c))
		p := c.Build()

		// WHEN
		_, err := GetLazy[IIFace](p)
		require.NoError(t, err)

		// THEN
		assert.True(t, p.Contains(KeyOf[IIFace]()))
		assert.True(t, p.Contains(KeyOf[*Provider]()))
		assert.True(t, p.Contains(KeyOf[*Lazy[IIFace]]()))
		assert.False(t, p.Contains(KeyOf[*IImpl]()))
	})
}
