package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/invstore/internal/manager"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose       bool
	Format        string // "json" | "text"
	ConfigPath    string
	Dir           string
	Name          string
	SchemaVersion int

	// RequestIDs allows overriding the request ID generator (for testing).
	// If nil, the manager uses UUIDv7 IDs.
	RequestIDs manager.RequestIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the invstore CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invstore",
		Short: "invstore - local invoice number store",
		Long: `A local, versioned store of business invoice numbers.

Each store is a SQLite file named after the store (default dbInvoices) in the
data directory. Invoice numbers are unique; invoice IDs are assigned on add
and never reused.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $INVSTORE_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "", "data directory holding the store files")
	cmd.PersistentFlags().StringVarP(&opts.Name, "store", "s", "", "store name")
	cmd.PersistentFlags().IntVar(&opts.SchemaVersion, "schema-version", 0, "schema version to open the store at")

	// Add subcommands
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewDropCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
