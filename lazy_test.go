package kitdi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazy(t *testing.T) {
	t.Run("it should synthesize a handle for a registered service", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c))
		p := c.Build()

		// WHEN
		handle, err := GetLazy[IIFace](p)

		// THEN
		require.NoError(t, err)
		require.NotNil(t, handle)
		assert.False(t, handle.IsValueCreated())
		_, built := p.Descriptors()[0].Instance()
		assert.False(t, built, "the service should not be built before the handle is forced")
	})

	t.Run("it should force the same instance as a direct lookup", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c))
		p := c.Build()
		handle, err := GetLazy[IIFace](p)
		require.NoError(t, err)

		// WHEN
		forced, err := handle.Value()

		// THEN
		require.NoError(t, err)
		assert.True(t, handle.IsValueCreated())
		assert.Same(t, MustGet[IIFace](p), forced)
	})

	t.Run("it should return the same handle on every lookup", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c))
		p := c.Build()

		// WHEN
		h1, err := Get[*Lazy[IIFace]](p)
		require.NoError(t, err)
		h2, err := Get[*Lazy[IIFace]](p)
		require.NoError(t, err)

		// THEN
		assert.Same(t, h1, h2)
	})

	t.Run("it should inject handles into constructors", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c))
		require.NoError(t, AddSelf[*ServiceWithLazy](c, Constructor(NewServiceWithLazy)))
		p := c.Build()

		// WHEN
		service, err := Get[*ServiceWithLazy](p)

		// THEN
		require.NoError(t, err)
		shared := MustGet[*Lazy[IIFace]](p)
		assert.Same(t, shared.MustValue(), service.Iface.MustValue())
		assert.True(t, service.Iface.IsValueCreated(), "the injected handle should share the forced value")
		assert.Equal(t, "hello", service.Iface.MustValue().Hello())
	})

	t.Run("it should break a cycle when the handle is forced after construction", func(t *testing.T) {
		// GIVEN
		type (
			left struct {
				right *Lazy[*ServiceB]
			}
		)
		c := NewCollection()
		require.NoError(t, AddSelf[*left](c, Constructor(func(right *Lazy[*ServiceB]) *left {
			return &left{right: right}
		})))
		require.NoError(t, AddSelf[*ServiceB](c, Constructor(func(l *left) *ServiceB {
			return &ServiceB{}
		})))
		p := c.Build()

		// WHEN
		l, err := Get[*left](p)
		require.NoError(t, err)
		b, err := l.right.Value()

		// THEN
		require.NoError(t, err)
		assert.Same(t, MustGet[*ServiceB](p), b)
	})

	t.Run("it should report a cycle when the handle is forced during construction", func(t *testing.T) {
		// GIVEN
		type (
			eager struct {
				right *ServiceB
			}
		)
		c := NewCollection()
		require.NoError(t, AddSelf[*eager](c, Constructor(func(right *Lazy[*ServiceB]) (*eager, error) {
			b, err := right.Value()
			if err != nil {
				return nil, err
			}
			return &eager{right: b}, nil
		})))
		require.NoError(t, AddSelf[*ServiceB](c, Constructor(func(e *eager) *ServiceB {
			return &ServiceB{}
		})))
		p := c.Build()

		// WHEN
		done := make(chan error, 1)
		go func() {
			_, err := Get[*eager](p)
			done <- err
		}()

		// THEN
		select {
		case err := <-done:
			var cyclic *CyclicDependencyError
			require.ErrorAs(t, err, &cyclic)
			assert.Equal(t, []Key{KeyOf[*eager](), KeyOf[*ServiceB](), KeyOf[*eager]()}, cyclic.Chain)
			assert.False(t, MustGet[*Lazy[*ServiceB]](p).IsValueCreated())
		case <-time.After(2 * time.Second):
			t.Fatal("the resolution is blocked instead of reporting the cycle")
		}
	})

	t.Run("it should report a cycle when a factory forces a handle on itself", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, AddFactory(c, func(p *Provider) (*ServiceC, error) {
			handle, err := GetLazy[*ServiceC](p)
			if err != nil {
				return nil, err
			}
			if _, err := handle.Value(); err != nil {
				return nil, err
			}
			return &ServiceC{}, nil
		}))
		p := c.Build()

		// WHEN
		done := make(chan error, 1)
		go func() {
			_, err := Get[*ServiceC](p)
			done <- err
		}()

		// THEN
		select {
		case err := <-done:
			var cyclic *CyclicDependencyError
			require.ErrorAs(t, err, &cyclic)
			assert.Equal(t, "*kitdi.ServiceC -> *kitdi.ServiceC", cyclic.Path())
		case <-time.After(2 * time.Second):
			t.Fatal("the resolution is blocked instead of reporting the cycle")
		}
	})

	t.Run("it should resolve an acyclic handle forced during construction", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, Add[IIFace, *IImpl](c))
		require.NoError(t, AddSelf[*ServiceWithCtor](c, Constructor(func(iface *Lazy[IIFace]) (*ServiceWithCtor, error) {
			value, err := iface.Value()
			if err != nil {
				return nil, err
			}
			return &ServiceWithCtor{Value: value}, nil
		})))
		p := c.Build()

		// WHEN
		service, err := Get[*ServiceWithCtor](p)

		// THEN
		require.NoError(t, err)
		assert.Same(t, MustGet[IIFace](p), service.Value)
		assert.True(t, MustGet[*Lazy[IIFace]](p).IsValueCreated())
	})

	t.Run("it should fail to force a handle of an unregistered service", func(t *testing.T) {
		// GIVEN
		p := NewCollection().Build()
		handle, err := GetLazy[IIFace](p)
		require.NoError(t, err)

		// WHEN
		_, err = handle.Value()

		// THEN
		var notRegistered *NotRegisteredError
		require.ErrorAs(t, err, &notRegistered)
		assert.Equal(t, KeyOf[IIFace](), notRegistered.Key)
		assert.False(t, handle.IsValueCreated())
	})

	t.Run("it should fail to force an unbound handle", func(t *testing.T) {
		// GIVEN
		handle := &Lazy[IIFace]{}

		// WHEN
		_, err := handle.Value()

		// THEN
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not bound")
	})

	t.Run("it should build handles bound to a provider", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		require.NoError(t, AddInstance[IIFace](c, &IImpl{greeting: "hey"}))
		p := c.Build()

		// WHEN
		handle := NewLazy[IIFace](p)

		// THEN
		assert.Equal(t, "hey", handle.MustValue().Hello())
		assert.Contains(t, handle.String(), "Lazy[kitdi.IIFace]")
	})
}
