// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// so backend keys and database passwords can live in a .env file instead of the YAML.
package config
