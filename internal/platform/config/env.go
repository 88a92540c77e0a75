// Package config holds shared configuration helpers for command entry points.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv populates target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
