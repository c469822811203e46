// Package kitdi is the service container of the build toolkit.
//
// Services are registered on a Collection, by implementation, factory or instance, then the
// collection is built into a Provider that constructs every service on first lookup and shares it
// afterward:
//
//	c := kitdi.NewCollection()
//	_ = kitdi.Add[Compiler, *GoCompiler](c, kitdi.Constructor(NewGoCompiler))
//	_ = kitdi.AddInstance[*config.Build](c, cfg)
//	p := c.Build()
//
//	compiler, err := kitdi.Get[Compiler](p)
//
// The parameters of a constructor are its dependencies, they are resolved recursively. Asking for a
// *kitdi.Lazy[T] returns a handle resolving T only when forced.
package kitdi
