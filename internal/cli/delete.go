package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/invstore/internal/invoice"
)

// deleteResult is the JSON payload of the delete command.
type deleteResult struct {
	ID      int64 `json:"invoiceID"`
	Deleted bool  `json:"deleted"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <invoiceID>",
		Short: "Delete an invoice by ID",
		Long: `Delete the invoice with the given numeric ID.

Deleting an ID that does not exist succeeds and changes nothing. IDs of
deleted invoices are never handed out again.

Example:
  invstore delete 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := invoice.ParseID(args[0])
			if err != nil {
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Fail("failed to delete invoice", err)
			}
			return withStore(rootOpts, cmd, func(ctx context.Context, s *session) error {
				return deleteInvoice(ctx, s, id)
			})
		},
	}

	return cmd
}

func deleteInvoice(ctx context.Context, s *session, id int64) error {
	removed, err := s.mgr.Delete(ctx, id).Wait(ctx)
	if err != nil {
		return s.out.Fail(fmt.Sprintf("failed to delete invoice %d", id), err)
	}

	text := fmt.Sprintf("deleted invoice %d", id)
	if !removed {
		text = fmt.Sprintf("invoice %d not found, nothing deleted", id)
	}
	return s.out.Result(deleteResult{ID: id, Deleted: removed}, text)
}
