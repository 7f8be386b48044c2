package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewDropCommand creates the drop command.
func NewDropCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete the store file",
		Long: `Delete the store's database files. The next command that opens the
store recreates it empty, starting IDs again from 1.

Example:
  invstore drop --store dbInvoices`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return dropStore(ctx, s)
		},
	}

	return cmd
}

func dropStore(ctx context.Context, s *session) error {
	name := s.cfg.Store.Name
	if err := s.reg.DeleteDatabase(ctx, name); err != nil {
		return s.out.Fail(fmt.Sprintf("failed to drop store %s", name), err)
	}
	return s.out.Result(map[string]string{"dropped": name}, fmt.Sprintf("dropped store %s", name))
}
