// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A handful of WSCONSOLE_* variables override file values after loading, so the
// endpoint and token can be switched without editing the file.
package config
