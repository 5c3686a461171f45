// Shared helpers for memora CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/memoraapp/memora/internal/config"
)

// loadConfig loads the configuration through the container.
func loadConfig() (*config.Config, error) {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// invoke resolves a service from the container with a readable error.
func invoke[T any](what string) (T, error) {
	svc, err := do.Invoke[T](injector)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("open %s: %w", what, err)
	}
	return svc, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// truncate shortens s to n runes for table output.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
