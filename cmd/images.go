package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/promptmarket/gallery/internal/images"
)

func newImagesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Manage generated images",
	}

	cmd.AddCommand(newImagesListCmd(c))
	cmd.AddCommand(newImagesClearCmd(c))
	cmd.AddCommand(newImagesExportCmd(c))

	return cmd
}

func newImagesListCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored images",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			all := a.Store.GetAllImages(cmd.Context())
			ids := make([]string, 0, len(all))
			for id := range all {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			type row struct {
				ID    string `json:"id"`
				Title string `json:"title,omitempty"`
				Bytes int    `json:"bytes"`
			}
			l := listing{
				headers: []string{"ID", "Title", "Size"},
				aligns:  []columnAlignment{alignLeft, alignLeft, alignRight},
			}
			data := make([]row, 0, len(ids))
			for _, id := range ids {
				r := row{ID: id, Bytes: len(all[id])}
				if item, ok := a.Catalog.Get(id); ok {
					r.Title = item.Title
				}
				data = append(data, r)
				l.rows = append(l.rows, []string{r.ID, r.Title, humanize.IBytes(uint64(r.Bytes))})
			}
			l.data = data

			return l.write(cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON even on a terminal")
	return cmd
}

func newImagesClearCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete images without --yes")
			}

			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ClearImages(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All generated images deleted")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func newImagesExportCmd(c *cli) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored images as a zip archive or a JSON backup",
		Long: `Writes every stored image to a zip archive (images/<id>.<ext>) or to a
JSON backup that "gallery recover import" can read back.`,
		Example: `  gallery images export --out images.zip
  gallery images export --format json --out backup.json
  gallery images export --format json > backup.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "zip" && format != "json" {
				return fmt.Errorf("unknown format %q (want zip or json)", format)
			}
			if format == "zip" && out == "" {
				return fmt.Errorf("--out is required for zip exports")
			}

			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			all := a.Store.GetAllImages(cmd.Context())
			if format == "json" {
				if err := images.WriteBackup(w, all); err != nil {
					return err
				}
				slog.Info("Backup written", "images", len(all), "path", out)
				return nil
			}

			n, err := images.WriteZip(w, all)
			if err != nil {
				return err
			}
			slog.Info("Archive written", "images", n, "path", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "zip", "Export format: zip or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (json defaults to stdout)")
	return cmd
}
