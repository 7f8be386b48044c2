package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/invstore/internal/invoice"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Contact string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <invNumber>",
		Short: "Add an invoice number",
		Long: `Add an invoice number to the store.

The number is trimmed and Unicode-normalized before it is stored. A number
that already exists is rejected and the store is left unchanged.

Example:
  invstore add LC4578
  invstore add LC4579 --contact "Acme Ltd"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts.RootOptions, cmd, func(ctx context.Context, s *session) error {
				return addInvoice(ctx, s, invoice.New(args[0], opts.Contact))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Contact, "contact", "", "contact name for the invoice")

	return cmd
}

func addInvoice(ctx context.Context, s *session, inv invoice.Invoice) error {
	added, err := s.mgr.Add(ctx, inv).Wait(ctx)
	if err != nil {
		return s.out.Fail(fmt.Sprintf("failed to add invoice %q", inv.Number), err)
	}
	return s.out.Result(added, fmt.Sprintf("added invoice %d (%s)", added.ID, added.Number))
}
