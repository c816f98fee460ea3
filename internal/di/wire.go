//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"
)

// InitializeContainer is the wire injector for the container.
func InitializeContainer(opts Options) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
