package entities

import (
	"go.uber.org/dig"
)

// SettingsLoader reads Settings from a configuration file path.
type SettingsLoader func(path string) (*Settings, error)

// RegisterProviders registers all entity providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// the config path is only known once cobra parsed the flags, so controllers get a loader
	return container.Provide(func() SettingsLoader { return NewSettings })
}
