package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type cache struct {
	mu     sync.RWMutex
	values map[reflect.Type]any
	onces  map[reflect.Type]*sync.Once
}

var (
	global = &cache{
		values: make(map[reflect.Type]any),
		onces:  make(map[reflect.Type]*sync.Once),
	}

	dotenvOnce sync.Once
)

// Load fills the struct from environment variables using its env tags. The
// first call loads a .env file when one exists; each distinct struct type is
// parsed once and cached, so components can call Load for their own config
// without coordinating.
//
//	type RedisConfig struct {
//		URL string `env:"COMMS_REDIS_URL,required"`
//	}
//
//	var cfg RedisConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	dotenvOnce.Do(func() {
		// A missing .env file is fine; variables come from the process
		// environment then.
		_ = godotenv.Load()
	})
	return parse(v)
}

// LoadEnv is Load with explicit .env files applied first, earlier paths
// winning. Intended for tests and tooling that point at fixture files.
func LoadEnv[T any](v *T, paths ...string) error {
	if len(paths) > 0 {
		_ = godotenv.Load(paths...)
	}
	return parse(v)
}

// MustLoad is Load that panics on failure, for configuration the process
// cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("load configuration: %v", err))
	}
}

func parse[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	key := typeOf[T]()

	global.mu.RLock()
	cached, ok := global.values[key]
	global.mu.RUnlock()
	if ok {
		return assign(v, cached)
	}

	global.mu.Lock()
	once, ok := global.onces[key]
	if !ok {
		once = new(sync.Once)
		global.onces[key] = once
	}
	global.mu.Unlock()

	var parseErr error
	once.Do(func() {
		if err := env.Parse(v); err != nil {
			parseErr = errors.Join(ErrParsingConfig, err)
			return
		}
		global.mu.Lock()
		global.values[key] = *v
		global.mu.Unlock()
	})
	if parseErr != nil {
		return parseErr
	}

	global.mu.RLock()
	cached, ok = global.values[key]
	global.mu.RUnlock()
	if !ok {
		// The winning Do failed earlier for this type; surface that
		// instead of silently handing back a zero value.
		return ErrConfigNotLoaded
	}
	return assign(v, cached)
}

func assign[T any](v *T, cached any) error {
	cv, ok := cached.(T)
	if !ok {
		return fmt.Errorf("%w: cached value is %T, want %T", ErrConfigNotLoaded, cached, *v)
	}
	*v = cv
	return nil
}

// typeOf resolves the cache key without needing an addressable value, so
// distinct local types with the same name never collide.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
