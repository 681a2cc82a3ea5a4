package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediarelay/internal/bot"
	"mediarelay/internal/notify"
)

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan-and-notify pass and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer a.closeStore(store)

			botHandler, err := bot.NewHandler(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer botHandler.Close()

			res := notify.New(a.notifyConfig(), botHandler.Platform(), store, a.log).RunOnce(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "outcome=%s cursor=%d->%d links=%d files=%d delivered=%d/%d\n",
				res.Outcome, res.CursorBefore, res.CursorAfter, res.Content.Len(), res.Files, res.Delivered, res.Members)
			return res.Err
		},
	}
}
