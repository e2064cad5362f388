package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCharactersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "characters",
		Aliases: []string{"chars"},
		Short:   "Manage characters that can be placed into scenes",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List custom and premade characters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			all := a.Characters.All(cmd.Context())
			l := listing{headers: []string{"ID", "Name", "Premium", "Description"}, data: all}
			for _, ch := range all {
				premium := ""
				if ch.IsPremium {
					premium = "yes"
				}
				l.rows = append(l.rows, []string{ch.ID, ch.Name, premium, ch.Description})
			}
			return l.write(cmd.OutOrStdout(), asJSON)
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Print JSON even on a terminal")

	add := &cobra.Command{
		Use:     "add <name> <description>",
		Short:   "Create a custom character",
		Example: `  gallery characters add Max "a tall man with a red scarf and round glasses"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ch, err := a.Characters.Add(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", ch.ID, ch.Name)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, ok := a.Characters.Find(cmd.Context(), args[0]); !ok {
				return fmt.Errorf("character %q not found", args[0])
			}
			if err := a.Characters.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}
