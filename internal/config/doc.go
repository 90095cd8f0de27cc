// Package config provides configuration types and loading for the
// workers process.
//
// A single YAML file describes the shared HTTP server settings, the
// observability stack, and one entry per worker service. Values may
// reference environment variables with ${VAR} or ${VAR:-default}; "$$"
// escapes a literal dollar sign.
//
// # Loading
//
//	cfg, err := config.LoadConfig("workers.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    return err
//	}
//
// Fields omitted from the file keep the values from DefaultConfig, which
// reproduces the analytics, api and auth workers on ports 8081-8083.
package config
