// Package shared holds the context passed to all CLI commands and
// the bootstrap wiring of the storage registries.
package shared

import (
	"github.com/go-ports/treevault/internal/config"
	"github.com/go-ports/treevault/internal/jsonstore"
	"github.com/go-ports/treevault/internal/serializer"
	"github.com/go-ports/treevault/internal/sqlitestore"
	"github.com/go-ports/treevault/internal/storage"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// Backend overrides the configured backend name.
	Backend string
	// Store overrides the configured store file path. ":memory:"
	// selects an ephemeral store.
	Store string
}

// Registries constructs the serializer and backend registries and
// registers both built-in backends. Registration is explicit,
// performed here at bootstrap; the storage core does no discovery of
// its own.
func Registries() (*serializer.Registry, *storage.Registry, error) {
	sreg := serializer.NewRegistry()
	breg := storage.NewRegistry()

	err := breg.Register("json", jsonstore.NativeKinds, jsonstore.ExtraKinds,
		func(arg string) (storage.Backend, error) {
			switch arg {
			case "":
				arg = config.DefaultStorePath("json")
			case ":memory:":
				arg = ""
			}
			return jsonstore.Open(arg, sreg)
		})
	if err != nil {
		return nil, nil, err
	}

	err = breg.Register("sqlite", sqlitestore.NativeKinds, sqlitestore.ExtraKinds,
		func(arg string) (storage.Backend, error) {
			if arg == "" {
				arg = config.DefaultStorePath("sqlite")
			}
			return sqlitestore.Open(arg, sreg)
		})
	if err != nil {
		return nil, nil, err
	}

	return sreg, breg, nil
}

// Open resolves the configuration and flags into an opened backend.
func (c *Context) Open() (storage.Backend, error) {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return nil, err
	}

	backend := cfg.Backend
	if c.Backend != "" {
		backend = c.Backend
	}
	store := cfg.Store
	if c.Store != "" {
		store = c.Store
	}

	_, breg, err := Registries()
	if err != nil {
		return nil, err
	}
	return breg.Open(backend, store)
}
