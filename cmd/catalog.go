package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/promptmarket/gallery/internal/catalog"
)

func newCatalogCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and export the prompt catalog",
	}

	var (
		category string
		asJSON   bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			items := a.Catalog.Items(category)
			for i := range items {
				items[i].CustomThumbnail = ""
			}
			l := listing{headers: []string{"ID", "Title", "Category", "Aspect", "Premium", "Image"}, data: items}
			for _, item := range items {
				premium, image := "", ""
				if item.IsPremium {
					premium = "yes"
				}
				if a.Store.HasImage(cmd.Context(), item.ID) {
					image = "yes"
				}
				l.rows = append(l.rows, []string{item.ID, item.Title, item.Category, string(item.AspectRatio), premium, image})
			}
			return l.write(cmd.OutOrStdout(), asJSON)
		},
	}
	list.Flags().StringVar(&category, "category", catalog.AllCategory, "Only list this category")
	list.Flags().BoolVar(&asJSON, "json", false, "Print JSON even on a terminal")

	export := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the catalog to a file usable as catalog.source",
		Long: `Writes the current catalog to <file>. The format follows the extension:
.parquet, .json or .yaml/.yml. Generated thumbnails are not included.`,
		Example: `  gallery catalog export catalog.parquet
  gallery catalog export catalog.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			path := args[0]
			items := a.Catalog.Snapshot()
			for i := range items {
				items[i].CustomThumbnail = ""
			}

			switch strings.ToLower(filepath.Ext(path)) {
			case ".parquet":
				err = catalog.WriteParquet(path, items)
			case ".json":
				err = writeEncoded(path, func(f *os.File) error {
					enc := json.NewEncoder(f)
					enc.SetIndent("", "  ")
					return enc.Encode(catalog.File{Categories: a.Catalog.Categories(), Items: items})
				})
			case ".yaml", ".yml":
				err = writeEncoded(path, func(f *os.File) error {
					enc := yaml.NewEncoder(f)
					enc.SetIndent(2)
					if err := enc.Encode(catalog.File{Categories: a.Catalog.Categories(), Items: items}); err != nil {
						return err
					}
					return enc.Close()
				})
			default:
				return fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d items to %s\n", len(items), path)
			return nil
		},
	}

	cmd.AddCommand(list, export)
	return cmd
}

func writeEncoded(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return f.Close()
}
