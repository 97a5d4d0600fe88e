// Package config loads typed configuration structs from environment
// variables using caarlos0/env tags, with optional dotenv file support via
// godotenv. Each configuration type is parsed once per process and cached,
// so packages can load their own Config independently without re-reading the
// environment.
package config
