package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/promptmarket/gallery/internal/app"
	"github.com/promptmarket/gallery/internal/models"
)

func newRecoverCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Find and import images left in any storage location",
		Long: `Recovery tools for images written by older versions of the gallery.

scan lists every key in the simple store, the session store and each
structured database in the data directory. force imports anything in one
entry that looks like an encoded image; dump prints the raw value; import
reads a JSON backup.`,
	}

	cmd.AddCommand(newRecoverScanCmd(c))
	cmd.AddCommand(newRecoverForceCmd(c))
	cmd.AddCommand(newRecoverDumpCmd(c))
	cmd.AddCommand(newRecoverImportCmd(c))

	return cmd
}

func newRecoverScanCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List every stored key, largest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entries := a.Scanner.ScanAll(cmd.Context())
			l := listing{
				headers: []string{"Key", "Source", "Database", "Collection", "Size", "Preview"},
				aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				data:    entries,
			}
			for _, e := range entries {
				preview := e.Preview
				if e.Error != "" {
					preview = "error: " + e.Error
				}
				l.rows = append(l.rows, []string{e.Key, string(e.Source), e.DBName, e.CollectionName, e.SizePretty, preview})
			}
			return l.write(cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON even on a terminal")
	return cmd
}

func newRecoverForceCmd(c *cli) *cobra.Command {
	var dbName string

	cmd := &cobra.Command{
		Use:   "force <key>",
		Short: "Import every image-like value found under one key",
		Example: `  gallery recover force gallery_backup
  gallery recover force 17 --db prompt_market.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := findEntry(cmd, a, args[0], dbName)
			if err != nil {
				return err
			}
			if !a.ForceImport(cmd.Context(), entry) {
				return fmt.Errorf("no image data found under %q", entry.Key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported images from %s (%s)\n", entry.Key, entry.Source)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbName, "db", "", "Only match keys in this database")
	return cmd
}

func newRecoverDumpCmd(c *cli) *cobra.Command {
	var dbName string

	cmd := &cobra.Command{
		Use:   "dump <key>",
		Short: "Print the raw value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entry, err := findEntry(cmd, a, args[0], dbName)
			if err != nil {
				return err
			}
			content, ok := a.Recovery.GetRawItemContent(cmd.Context(), entry)
			if !ok {
				return fmt.Errorf("%q is empty", entry.Key)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), content)
			return err
		},
	}

	cmd.Flags().StringVar(&dbName, "db", "", "Only match keys in this database")
	return cmd
}

func newRecoverImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import images from a JSON backup",
		Long: `Reads a JSON document and stores every string in it that is an image
data URI. Use - to read from stdin.`,
		Example: `  gallery recover import backup.json
  pbpaste | gallery recover import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read backup: %w", err)
			}

			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.ManualImport(cmd.Context(), string(data))
			if !result.Success {
				return fmt.Errorf("no images found in backup")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d images\n", result.ImportedCount)
			return nil
		},
	}
}

func findEntry(cmd *cobra.Command, a *app.App, key, dbName string) (models.StorageInventoryEntry, error) {
	entry, ok := a.FindEntry(cmd.Context(), key, dbName)
	if !ok {
		where := "any store"
		if dbName != "" {
			where = strconv.Quote(dbName)
		}
		return models.StorageInventoryEntry{}, fmt.Errorf("key %q not found in %s", key, where)
	}
	return entry, nil
}
