// Package config loads env-tagged configuration structs, backed by
// github.com/caarlos0/env and an optional .env file via godotenv.
//
// Every package that needs configuration declares its own struct with env
// tags (see pkg/redis.Config and pkg/pg.Config) and calls Load. Parsed
// values are cached per struct type, so repeated loads across components are
// cheap and consistent.
package config
