// Package maintenancecheck evaluates the maintenance gate for a list of
// request paths, so operators can preview which routes a flag value and
// exclusion table will block before flipping the flag in production.
package maintenancecheck

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/torchlightrpg/torchlight/internal/maintenance"
)

// Config holds configuration for a gate preview run.
type Config struct {
	Flag     string
	Excluded []string
	Paths    []string
}

type listFlag []string

func (l *listFlag) String() string { return fmt.Sprint([]string(*l)) }

func (l *listFlag) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// ParseConfig parses flags into a Config. Positional arguments are the
// request paths to evaluate.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	var excluded listFlag
	fs.StringVar(&cfg.Flag, "flag", "", "maintenance flag value as it would arrive from the environment")
	fs.Var(&excluded, "exclude", "excluded path pattern (repeatable)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Excluded = excluded
	cfg.Paths = fs.Args()
	return cfg, nil
}

// Run prints the gate verdict for each configured path.
func Run(cfg Config, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	if len(cfg.Paths) == 0 {
		return errors.New("at least one path is required")
	}

	gate := maintenance.NewGate(cfg.Flag, cfg.Excluded...)
	for _, path := range cfg.Paths {
		verdict := "pass"
		switch gate.Decide(path) {
		case maintenance.RedirectHome:
			verdict = "redirect-home"
		case maintenance.RedirectMaintenance:
			verdict = "redirect-maintenance"
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\n", path, verdict); err != nil {
			return err
		}
	}
	return nil
}
