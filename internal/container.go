package internal

import (
	"fmt"

	"go.uber.org/dig"

	"github.com/rios0rios0/imagebump/internal/domain/commands"
	"github.com/rios0rios0/imagebump/internal/domain/entities"
	"github.com/rios0rios0/imagebump/internal/infrastructure/controllers"
	"github.com/rios0rios0/imagebump/internal/infrastructure/repositories"
)

// layers lists the registration of each layer, bottom-up: the forge registry and
// ledger factory, the settings loader, the run and ledger commands, then their controllers.
var layers = []struct { //nolint:gochecknoglobals // fixed wiring order
	name     string
	register func(*dig.Container) error
}{
	{name: "repositories", register: repositories.RegisterProviders},
	{name: "entities", register: entities.RegisterProviders},
	{name: "commands", register: commands.RegisterProviders},
	{name: "controllers", register: controllers.RegisterProviders},
}

// RegisterProviders registers every layer and the AppInternal root with the DIG container.
func RegisterProviders(container *dig.Container) error {
	for _, layer := range layers {
		if err := layer.register(container); err != nil {
			return fmt.Errorf("failed to register %s: %w", layer.name, err)
		}
	}
	return container.Provide(NewAppInternal)
}
