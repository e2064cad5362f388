package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptmarket/gallery/internal/storage"
)

func newPremiumCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "premium [on|off]",
		Short:     "Show or toggle the simulated premium membership",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			// the flag lives in the simple store; no need to open the database
			local, err := storage.OpenKV(c.localStorePath())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				if err := local.SetPremium(args[0] == "on"); err != nil {
					return err
				}
			}

			state := "off"
			if local.IsPremium() {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Premium: %s\n", state)
			return nil
		},
	}
	return cmd
}
