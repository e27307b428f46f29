// Package config loads typed application configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - LoadEnv reads one or more .env files without overriding variables that are
//     already set. The default .env is read automatically on first Load.
//   - Load parses the environment into any struct annotated with `env` tags and
//     caches the result per type, so every package can call Load for its own
//     Config without re-parsing.
//   - MustLoad panics on failure for configuration the process cannot run without.
//   - ResetCache clears the cache, which tests use after changing the environment.
//
// # Usage
//
//	type Config struct {
//		AccessToken string        `env:"MERCADOPAGO_ACCESS_TOKEN,required"`
//		Timeout     time.Duration `env:"MERCADOPAGO_TIMEOUT" envDefault:"5s"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// Failed parses are not cached: once the missing variable is provided, the next
// Load for that type succeeds.
package config
