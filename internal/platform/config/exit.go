package config

import (
	"fmt"
	"os"
)

// Exitf writes a formatted message to stderr and exits with code 1.
// Command entry points use it as their single fatal-exit path.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
