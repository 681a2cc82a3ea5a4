package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mediarelay/internal/domain"
)

func newCursorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or reset the persisted scan cursor",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the last processed message ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer a.closeStore(store)

			state, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			if state.LastCheckedMessageID == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no scan has completed yet")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), *state.LastCheckedMessageID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <message-id>",
		Short: "Overwrite the last processed message ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid message ID %q: %w", args[0], err)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer a.closeStore(store)

			if err := store.Save(cmd.Context(), domain.State{LastCheckedMessageID: &id}); err != nil {
				return err
			}
			a.log.WithField("cursor", id).Info("Scan cursor overwritten")
			return nil
		},
	})
	return cmd
}
