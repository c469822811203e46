package kitdi

import (
	"errors"
	"sync/atomic"
)

// Test types for DI testing
type (
	IIFace interface {
		Hello() string
	}

	IImpl struct {
		greeting string
	}

	ServiceWithCtor struct {
		Value IIFace
	}

	ServiceWithRecursive struct {
		Self *ServiceWithRecursive
	}

	ServiceA struct {
		B *ServiceB
	}

	ServiceB struct {
		C *ServiceC
	}

	ServiceC struct {
		A *ServiceA
	}

	ServiceWithLazy struct {
		Iface *Lazy[IIFace]
	}

	Counter struct {
		built *atomic.Int32
	}
)

func (i *IImpl) Hello() string {
	if i.greeting == "" {
		return "hello"
	}
	return i.greeting
}

func NewServiceWithCtor(value IIFace) *ServiceWithCtor {
	return &ServiceWithCtor{Value: value}
}

func NewServiceWithRecursive(self *ServiceWithRecursive) *ServiceWithRecursive {
	return &ServiceWithRecursive{Self: self}
}

func NewServiceA(b *ServiceB) *ServiceA {
	return &ServiceA{B: b}
}

func NewServiceB(c *ServiceC) *ServiceB {
	return &ServiceB{C: c}
}

func NewServiceC(a *ServiceA) *ServiceC {
	return &ServiceC{A: a}
}

func NewServiceWithLazy(iface *Lazy[IIFace]) *ServiceWithLazy {
	return &ServiceWithLazy{Iface: iface}
}

func NewFailingIImpl() (*IImpl, error) {
	return nil, errors.New("constructor intentionally failed")
}
