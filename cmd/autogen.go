package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newAutogenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "autogen",
		Short: "Generate images for every catalog item that has none",
		Long: `Runs one auto-generation sweep in the foreground.

Items are processed in catalog order. Failed items are retried after a wait
that depends on the failure; quota errors wait the longest. Interrupt with
Ctrl+C to stop; images generated so far are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			updates, unsubscribe := a.Autogen.Subscribe()
			defer unsubscribe()

			done := make(chan struct{})
			go func() {
				defer close(done)
				last := ""
				for p := range updates {
					// countdown ticks repeat the same item; log each status change once
					key := p.CurrentItemID + "|" + p.Status
					if key == last || !p.Running {
						continue
					}
					last = key
					slog.Info("Auto-generation", "item", p.CurrentItemID, "title", p.CurrentItemTitle, "status", p.Status, "generated", p.Generated)
				}
			}()

			summary, err := a.Autogen.Run(cmd.Context())
			unsubscribe()
			<-done
			if err != nil {
				return err
			}

			verb := "Generated"
			if !summary.Completed {
				verb = "Stopped after generating"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d items (%d already had images)\n",
				verb, summary.Generated, summary.Total, summary.Skipped)
			return nil
		},
	}
}
