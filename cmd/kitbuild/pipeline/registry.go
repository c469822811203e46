package pipeline

import "github.com/a-peyrard/kitdi"

//go:generate go run github.com/a-peyrard/kitdi/cmd/kitgen
type Registry struct {
	kitdi.EmptyRegistry
}
