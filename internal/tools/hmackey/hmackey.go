// Package hmackey generates random HMAC signing secrets formatted as env
// assignments for the grant and session signers.
package hmackey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
)

// DefaultEnvVar is the env var populated when none is named.
const DefaultEnvVar = "TORCHLIGHT_GRANT_SECRET"

// Config holds configuration for HMAC key generation.
type Config struct {
	Bytes  int
	EnvVar string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32, EnvVar: DefaultEnvVar}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes (default: 32)")
	fs.StringVar(&cfg.EnvVar, "env", cfg.EnvVar, "env var name to emit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the key and writes it to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes <= 0 {
		return errors.New("bytes must be greater than zero")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if cfg.EnvVar == "" {
		cfg.EnvVar = DefaultEnvVar
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "%s=%s\n", cfg.EnvVar, hex.EncodeToString(buf))
	return err
}
