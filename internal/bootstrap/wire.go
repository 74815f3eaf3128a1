//go:build wireinject
// +build wireinject

//go:generate wire

package bootstrap

import (
	"context"

	"github.com/google/wire"
)

// InitializeApp builds the application with all its dependencies. The
// returned cleanup closes the store, drains the publisher and syncs
// the loggers.
func InitializeApp(ctx context.Context) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil // Wire will replace this with the actual implementation
}
