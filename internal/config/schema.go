package config

import (
	_ "embed"
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks the configuration against the embedded CUE schema.
// All violations are reported together.
func (c *Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def.Unify(ctx.Encode(c.values()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w:\n%s", ErrInvalid, cueerrors.Details(err, nil))
	}
	return nil
}

// values mirrors the YAML layout for schema checking.
func (c *Config) values() map[string]any {
	return map[string]any{
		"store": map[string]any{
			"name":            c.Store.Name,
			"dir":             c.Store.Dir,
			"version":         c.Store.Version,
			"blocked_timeout": int64(c.Store.BlockedTimeout),
		},
		"log": map[string]any{
			"level":       c.Log.Level,
			"format":      c.Log.Format,
			"file":        c.Log.File,
			"max_size_mb": c.Log.MaxSizeMB,
			"max_backups": c.Log.MaxBackups,
		},
	}
}
