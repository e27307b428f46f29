package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// entry holds a parsed configuration value together with the once guard
// that protects its first parse.
type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	cache   sync.Map // reflect.Type -> *entry
	envOnce sync.Once
)

// LoadEnv reads the given .env files into the process environment.
// Values already present in the environment are never overwritten.
// Without arguments it loads ".env" from the working directory and ignores a missing file.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load parses environment variables into v based on its `env` struct tags.
// Each configuration type is parsed once per process; later calls for the same
// type receive a copy of the cached value.
//
//	var cfg mercadopago.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	envOnce.Do(func() { _ = LoadEnv() })

	raw, _ := cache.LoadOrStore(reflect.TypeFor[T](), &entry{})
	e := raw.(*entry)

	e.once.Do(func() {
		var parsed T
		if err := env.Parse(&parsed); err != nil {
			e.err = errors.Join(ErrParsingConfig, err)
			return
		}
		e.value = parsed
	})

	if e.err != nil {
		// Failed parses are not cached so that a fixed environment can be retried.
		cache.CompareAndDelete(reflect.TypeFor[T](), e)
		return e.err
	}

	cached, ok := e.value.(T)
	if !ok {
		return ErrConfigNotLoaded
	}
	*v = cached
	return nil
}

// MustLoad works like Load but panics on failure.
// Use it for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load %T: %v", *new(T), err))
	}
}

// ResetCache drops every cached configuration value.
// Intended for tests that mutate the environment between loads.
func ResetCache() {
	cache.Range(func(key, _ any) bool {
		cache.Delete(key)
		return true
	})
}
