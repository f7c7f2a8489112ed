// Package config provides configuration management for the worker pair.
//
// Configuration is loaded from environment variables using the env package.
// With nothing set, the binary behaves like the plain fixture: fast and slow
// workers at 100µs and 400µs writing to stdout, no servers, no Redis.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("fast worker suspends for %s\n", cfg.Workers.FastInterval)
package config
