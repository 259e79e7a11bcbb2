// Package config loads application configuration from environment variables
// into typed structs, parsing each struct type at most once per process.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - Values come from the process environment, optionally seeded from one or
//     more .env files (the default .env in the working directory is picked up
//     automatically on first use).
//   - Parsing is driven by `env` field tags, including defaults and required
//     markers.
//   - Each successfully parsed configuration type is cached, so independent
//     packages can load the same struct without coordinating.
//
// # Usage
//
// Declare a struct describing one concern and annotate its fields:
//
//	type StorageConfig struct {
//	    Bucket string `env:"S3_BUCKET_NAME,required"`
//	    Region string `env:"AWS_REGION" envDefault:"us-east-1"`
//	}
//
// Then populate it wherever it is needed:
//
//	var cfg StorageConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatalf("storage config: %v", err)
//	}
//
// Subsequent calls to Load with the same type return the cached copy, even if
// the environment changed in the meantime.
//
// # Error Handling
//
// Sentinel errors can be matched with errors.Is:
//
//   - ErrParsingConfig: the environment does not satisfy the struct tags.
//   - ErrConfigNotLoaded: the cache lost a type it should hold (internal).
//   - ErrNilPointer: a nil pointer was passed to Load or MustLoad.
//
// # Testing Helpers
//
// ResetCache clears every cached type, and ForceReloadConfig re-parses a
// single struct after the process environment changed. Both exist for tests;
// production code should rely on the load-once behavior.
package config
